// Package apperr defines the error kinds shared by every domain service and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how a caller should react to it.
type Kind int

const (
	KindStore Kind = iota
	KindNotFound
	KindValidation
	KindInvalidTransition
	KindConflict
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "store_failure"
	}
}

// Status returns the HTTP status code used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindInvalidCredentials, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed result carried out of services. Message is safe to show
// to an end user; Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind so errors.Is(err, apperr.ErrNotFound) works
// for any NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrStore              = &Error{Kind: KindStore}
)

func NotFound(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Validation(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(op, from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Op: op, Message: fmt.Sprintf("cannot change status from %s to %s", from, to)}
}

func Conflict(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidCredentials(op string) *Error {
	return &Error{Kind: KindInvalidCredentials, Op: op, Message: "invalid email or password"}
}

func Unauthorized(op, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, Message: msg}
}

func Forbidden(op, msg string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Message: msg}
}

// Store wraps a persistence failure. A nil cause returns nil so repositories
// can write `return apperr.Store(op, err)` unconditionally.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindStore, Op: op, Err: err}
}

// KindOf reports the kind of err. Errors not produced by this package are
// treated as store failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}

// IsValidation reports whether err is a validation-class failure, which
// includes rejected status transitions.
func IsValidation(err error) bool {
	k := KindOf(err)
	return err != nil && (k == KindValidation || k == KindInvalidTransition)
}

// PublicMessage returns the text that may be sent to a client for err.
func PublicMessage(err error) string {
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind == KindStore {
		return "internal server error"
	}
	if ae.Message == "" {
		return ae.Kind.String()
	}
	return ae.Message
}
