package storage

import (
	"context"
	_ "embed"

	"github.com/md-rashed-zaman/bookwell/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the service's tables when they are missing. It is safe to run repeatedly.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
