package service

import (
	"errors"
	"fmt"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrStaleRequest         = errors.New("stale_request")
	ErrDiagnosticGeneration = errors.New("diagnostic_generation_failed")
	ErrExternalService      = errors.New("external_service_error")
)

// ValidationError is returned for bad caller input, before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Actor is the authenticated caller.
type Actor struct {
	UID   string
	Admin bool
}

func transitionError(from, to model.RepairStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// readErr maps a repository error on the initial load of a record.
func readErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// writeErr maps a repository error on a conditional write that follows a
// successful read: the record moved or vanished in between.
func writeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrStaleRequest, err)
	}
	return err
}
