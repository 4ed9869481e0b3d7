package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty title, a date row without a date).
// It is always raised before any store write.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a request collides with another one still in
// progress, such as a second submission under an idempotency key whose first
// run has not finished.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrStore matches any *StoreError via errors.Is.
// Handlers should map this to HTTP 500.
var ErrStore = errors.New("store error")

// StoreError reports a store write or read that failed partway through a
// multi-step workflow. Step names the operation that failed; Position is the
// 1-based index of the tour date being processed, or 0 for steps that are not
// tied to a date.
type StoreError struct {
	Step     string
	Position int
	Err      error
}

func (e *StoreError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("%s (date %d): %v", e.Step, e.Position, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// UserMessage returns the part of err worth showing to a user: the reason
// after a validation or conflict prefix, or the failed step for a store error.
// e.g. "service.ProvisionService.ProvisionTour: validation error: title is required" → "title is required"
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return "could not save tour: " + storeErr.Error()
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrConflict} {
		if !errors.Is(err, sentinel) {
			continue
		}
		if _, after, ok := strings.Cut(msg, sentinel.Error()+": "); ok {
			return after
		}
	}
	return msg
}
