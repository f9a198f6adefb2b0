package identifile

import (
	"errors"
	"fmt"
)

// Backend and rule-file errors
var (
	ErrNotExist       = errors.New("file does not exist")
	ErrNotDir         = errors.New("not a directory")
	ErrIsDir          = errors.New("is a directory")
	ErrNotAllowed     = errors.New("operation not allowed")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrInvalidRule    = errors.New("invalid rule")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsNotAllowed reports whether an error indicates a path outside the
// backend's root
func IsNotAllowed(err error) bool {
	return errors.Is(err, ErrNotAllowed)
}

// IsInvalidRule reports whether an error came from a malformed rule file
func IsInvalidRule(err error) bool {
	return errors.Is(err, ErrInvalidRule)
}
