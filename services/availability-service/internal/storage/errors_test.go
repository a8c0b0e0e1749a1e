package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	exclusion := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})
	serialization := &pgconn.PgError{Code: "40001"}
	duplicate := &pgconn.PgError{Code: "23505"}

	if !IsOverlap(exclusion) {
		t.Fatal("expected exclusion violation to be an overlap")
	}
	if IsOverlap(serialization) || IsOverlap(duplicate) {
		t.Fatal("only the exclusion constraint is an overlap")
	}
	if !IsNotFound(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("expected ErrNoRows to be not found")
	}
	if !IsNotFound(&pgconn.PgError{Code: "22P02"}) {
		t.Fatal("expected malformed id to be not found")
	}
	if IsNotFound(errors.New("boom")) || IsOverlap(errors.New("boom")) {
		t.Fatal("plain errors must not be classified")
	}
}
