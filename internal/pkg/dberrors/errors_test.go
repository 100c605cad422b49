package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_chat_requests_pending_pair"})

	if !IsDuplicateConstraintError(err, "uq_chat_requests_pending_pair") {
		t.Fatalf("expected duplicate match")
	}
	if IsDuplicateConstraintError(err, "uq_chat_participants_chat_user") {
		t.Fatalf("unexpected match for other constraint")
	}
	if IsDuplicateConstraintError(errors.New("plain"), "uq_chat_requests_pending_pair") {
		t.Fatalf("plain errors are not constraint errors")
	}
}

func TestIsForeignKeyError(t *testing.T) {
	if !IsForeignKeyError(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("expected foreign key match")
	}
	if IsForeignKeyError(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation is not a foreign key error")
	}
}
