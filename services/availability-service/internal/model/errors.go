package model

import "errors"

// Error kinds surfaced by the availability core. Callers match them with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflicting availability window")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage failure")
)
