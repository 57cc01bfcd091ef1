package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ProcessingError.
type ErrorKind string

const (
	ErrorKindValidation   ErrorKind = "validation"
	ErrorKindDecode       ErrorKind = "decode"
	ErrorKindPersistence  ErrorKind = "persistence"
	ErrorKindSegmentation ErrorKind = "segmentation"
	ErrorKindEnhancement  ErrorKind = "enhancement"
	ErrorKindUnknown      ErrorKind = "unknown"
)

// ProcessingError is a failure confined to a single image.
type ProcessingError struct {
	Kind   ErrorKind
	Op     string
	Path   string
	Reason string
	Err    error
}

func (e *ProcessingError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func NewValidationError(path, reason string) *ProcessingError {
	return &ProcessingError{Kind: ErrorKindValidation, Op: "validate", Path: path, Reason: reason}
}

func NewDecodeError(path string, err error) *ProcessingError {
	return &ProcessingError{Kind: ErrorKindDecode, Op: "load", Path: path, Reason: "cannot decode image", Err: err}
}

func NewPersistenceError(path string, err error) *ProcessingError {
	return &ProcessingError{Kind: ErrorKindPersistence, Op: "save", Path: path, Reason: "cannot write image", Err: err}
}

// KindOf returns the ErrorKind of err, or ErrorKindUnknown when err is not
// a ProcessingError.
func KindOf(err error) ErrorKind {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindUnknown
}

// IsKind reports whether err is a ProcessingError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
