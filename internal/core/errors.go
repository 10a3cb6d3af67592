package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the presentation layer.
type Kind string

const (
	KindNone          Kind = ""
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindCommunication Kind = "communication"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Sentinels for errors.Is checks. Typed errors below match them.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrCommunication = errors.New("communication error")
	ErrConfiguration = errors.New("configuration error")
)

// ValidationError reports a rejected input before any write took place.
type ValidationError struct {
	Field Field
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// CommunicationError wraps a failure of a remote collaborator (spreadsheet,
// database driver, language model).
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

func (e *CommunicationError) Is(target error) bool { return target == ErrCommunication }

// ConfigurationError reports missing or inconsistent startup configuration.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Invalid builds a ValidationError for field f.
func Invalid(f Field, err error) error {
	return &ValidationError{Field: f, Err: err}
}

// Communication builds a CommunicationError; nil stays nil.
func Communication(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CommunicationError{Op: op, Err: err}
}

// Misconfigured builds a ConfigurationError.
func Misconfigured(setting string, err error) error {
	return &ConfigurationError{Setting: setting, Err: err}
}

// KindOf reports the taxonomy kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCommunication):
		return KindCommunication
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}
