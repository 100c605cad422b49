package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPersistenceErrorMatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("insert message", cause)

	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if err.Error() != "insert message: connection reset" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestPersistenceErrorKeepsDomainErrors(t *testing.T) {
	domain := NewForbiddenError("not a participant")
	err := NewPersistenceError("check membership", fmt.Errorf("wrapped: %w", domain))

	if errors.Is(err, ErrPersistence) {
		t.Fatalf("domain error must not be reclassified as persistence failure")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestNewPersistenceErrorNil(t *testing.T) {
	if err := NewPersistenceError("noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestChatRequestConstructors(t *testing.T) {
	cases := []struct {
		err    error
		target error
	}{
		{NewSelfRequestError(), ErrSelfRequest},
		{NewDuplicateRequestError(), ErrDuplicateRequest},
		{NewAlreadyConnectedError(), ErrAlreadyConnected},
		{NewAlreadyRespondedError(), ErrAlreadyResponded},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.target) {
			t.Fatalf("%v does not match %v", tc.err, tc.target)
		}
		if !IsDomainError(tc.err) {
			t.Fatalf("%v should be a domain error", tc.err)
		}
	}
}

func TestIsMatchesAnyOfList(t *testing.T) {
	err := NewNotFoundError("chat not found")
	if !Is(err, ErrConflict, ErrBadRequest, ErrNotFound) {
		t.Fatalf("expected match in list")
	}
	if Is(err, ErrConflict) {
		t.Fatalf("unexpected match")
	}
}
