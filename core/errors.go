package core

import "github.com/pkg/errors"

// FieldError describes a validation failure on one named field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a request error carrying per-field details; the
// API layer renders Fields as a field-to-message map when present.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks the application state as unrecoverable; the web server
// stops serving when one surfaces.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks whether err, at its cause, requests a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
