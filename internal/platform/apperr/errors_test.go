package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := NotFound("clinic.Get", "clinic %d not found", 4)
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected NotFound error to match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("NotFound must not match ErrConflict")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("expected wrapped error to match ErrNotFound")
	}
}

func TestStore_NilPassthrough(t *testing.T) {
	if Store("op", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestStore_KeepsTypedErrors(t *testing.T) {
	nf := NotFound("op", "missing")
	if got := Store("outer", nf); got != error(nf) {
		t.Errorf("expected typed error to be returned unchanged, got %v", got)
	}
}

func TestKindOf_UnknownIsStore(t *testing.T) {
	if KindOf(errors.New("connection refused")) != KindStore {
		t.Error("expected plain errors to classify as store failures")
	}
}

func TestIsValidation_IncludesTransitions(t *testing.T) {
	if !IsValidation(InvalidTransition("op", "completed", "pending")) {
		t.Error("expected invalid transition to be validation-class")
	}
	if !IsValidation(Validation("op", "diagnosis is required")) {
		t.Error("expected validation error to be validation-class")
	}
	if IsValidation(Conflict("op", "in use")) {
		t.Error("conflict is not validation-class")
	}
	if IsValidation(nil) {
		t.Error("nil is not validation-class")
	}
}

func TestPublicMessage_HidesStoreDetail(t *testing.T) {
	err := Store("appointment.Create", errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if msg := PublicMessage(err); msg != "internal server error" {
		t.Errorf("expected opaque message, got %q", msg)
	}
	if msg := PublicMessage(Validation("op", "treatment is required")); msg != "treatment is required" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestKind_Status(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:           http.StatusNotFound,
		KindValidation:         http.StatusBadRequest,
		KindInvalidTransition:  http.StatusUnprocessableEntity,
		KindConflict:           http.StatusConflict,
		KindInvalidCredentials: http.StatusUnauthorized,
		KindForbidden:          http.StatusForbidden,
		KindStore:              http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := k.Status(); got != want {
			t.Errorf("%s: expected %d, got %d", k, want, got)
		}
	}
}
