package wiki

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalid matches every ValidationError.
	ErrInvalid = errors.New("invalid input")
	// ErrUnavailable matches every TransientError.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrNotConfigured matches every ConfigError.
	ErrNotConfigured = errors.New("not configured")
	// ErrCorrupt reports a stored document that no longer decodes.
	ErrCorrupt = errors.New("stored document is corrupt")
)

// ConfigError reports a missing or unusable configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrNotConfigured }

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// NotFoundError names the entity an operation could not find.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransientError wraps a store failure or timeout.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrUnavailable }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func pageNotFound(id string) error {
	return &NotFoundError{Kind: "page", ID: id}
}

func menuNotFound(id string) error {
	return &NotFoundError{Kind: "menu", ID: id}
}
