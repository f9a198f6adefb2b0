package sniff

import (
	"errors"
	"fmt"
)

// ErrorType categorizes the failures the engine surfaces to callers.
type ErrorType string

const (
	ErrorTypeDuplicateFormat   ErrorType = "duplicate_format"
	ErrorTypeSourceUnavailable ErrorType = "source_unavailable"
	ErrorTypeInvalidFormat     ErrorType = "invalid_format"
)

// Sentinel errors, usable with errors.Is.
var (
	ErrDuplicateFormat   = errors.New("format already registered")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidFormat     = errors.New("invalid format identifier")
)

// Error is the error type returned by registry and entry point operations.
// Content problems never produce an Error; they degrade the Detection instead.
type Error struct {
	// Type categorizes the failure.
	Type ErrorType

	// Format is the format identifier involved, if any.
	Format string

	// Path is the path that could not be opened, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeDuplicateFormat:
		return fmt.Sprintf("format %q already registered", e.Format)
	case ErrorTypeSourceUnavailable:
		if e.Err != nil {
			return fmt.Sprintf("source unavailable: %s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("source unavailable: %s", e.Path)
	case ErrorTypeInvalidFormat:
		return fmt.Sprintf("invalid format identifier %q", e.Format)
	default:
		return fmt.Sprintf("%s error", e.Type)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the error type.
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeDuplicateFormat:
		return target == ErrDuplicateFormat
	case ErrorTypeSourceUnavailable:
		return target == ErrSourceUnavailable
	case ErrorTypeInvalidFormat:
		return target == ErrInvalidFormat
	}
	return false
}

func newDuplicateFormatError(format string) *Error {
	return &Error{Type: ErrorTypeDuplicateFormat, Format: format}
}

func newInvalidFormatError(format string) *Error {
	return &Error{Type: ErrorTypeInvalidFormat, Format: format}
}

// NewSourceUnavailableError wraps a failure to open or obtain a source.
func NewSourceUnavailableError(path string, err error) *Error {
	return &Error{Type: ErrorTypeSourceUnavailable, Path: path, Err: err}
}

// IsErrorOfType checks if an error is an Error of the specified type
func IsErrorOfType(err error, errType ErrorType) bool {
	var sniffErr *Error
	if errors.As(err, &sniffErr) {
		return sniffErr.Type == errType
	}
	return false
}

// IsDuplicateFormat reports whether err is a DuplicateFormat failure.
func IsDuplicateFormat(err error) bool {
	return errors.Is(err, ErrDuplicateFormat)
}

// IsInvalidFormat reports whether err is a rejected format identifier.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

// IsSourceUnavailable reports whether err is a SourceUnavailable failure.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// GetErrorType returns the type of an Error, or empty string if err is not one
func GetErrorType(err error) ErrorType {
	var sniffErr *Error
	if errors.As(err, &sniffErr) {
		return sniffErr.Type
	}
	return ""
}
