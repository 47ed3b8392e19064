// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common sentinels across api/store layers.
var (
	// ErrNotFound indicates the requested note or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, invalid or expired session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the current identity lacks the capability for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrReadOnly indicates an edit attempt on a note the identity cannot edit.
	ErrReadOnly = errors.New("note is read-only")

	// ErrClosed indicates use of an editor session after Close.
	ErrClosed = errors.New("session closed")

	// ErrNoSession indicates an operation that needs an authenticated identity.
	ErrNoSession = errors.New("no active session (login required)")

	// ErrValidation indicates client-side input validation failure.
	ErrValidation = errors.New("validation")
)

// APIError is a non-2xx response from the notes service.
type APIError struct {
	Status  int
	Message string // the response body's "message" field, if any
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap maps well-known statuses onto sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Validation returns an ErrValidation carrying a user-facing message.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

// Message extracts user-facing text from err: the server message of an APIError,
// the text of a validation error, or fallback otherwise.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	var vErr *validationError
	if errors.As(err, &vErr) {
		return vErr.msg
	}
	return fallback
}

// UserError wraps err with a user-facing message while keeping it inspectable.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string { return e.Msg }
func (e *UserError) Unwrap() error { return e.Err }

// Surface wraps err into a UserError whose text comes from Message(err, fallback).
func Surface(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &UserError{Msg: Message(err, fallback), Err: err}
}
