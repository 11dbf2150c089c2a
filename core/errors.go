package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// PartialError marks a multi-step operation that completed some but not all
// of its steps. The caller decides how to present the detail.
type PartialError struct {
	Op     string
	Errors []error
}

func NewPartialError(op string, errs ...error) error {
	return &PartialError{Op: op, Errors: errs}
}

func (err PartialError) Error() string {
	return err.Op + ": partially completed"
}

func IsPartial(err error) bool {
	var perr *PartialError
	return errors.As(err, &perr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
