package parser

import (
	"errors"
	"fmt"
)

// Class says whether a parse error stops the run or only the current item.
type Class int

const (
	// ClassRecoverable errors are logged and parsing continues.
	ClassRecoverable Class = iota
	// ClassFatal errors abort the file and the batch.
	ClassFatal
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors. Match with errors.Is.
var (
	ErrMissingHeader  = errors.New("missing header")
	ErrMalformedLimit = errors.New("malformed limit")
	ErrIOFailure      = errors.New("io failure")
)

// ProfileError ties an error to the profile and, where known, the magnitude it came from.
type ProfileError struct {
	Class     Class
	Path      string
	Magnitude string
	Err       error
}

// Error implements the error interface.
func (e *ProfileError) Error() string {
	switch {
	case e.Path != "" && e.Magnitude != "":
		return fmt.Sprintf("%s: magnitude %s: %v", e.Path, e.Magnitude, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case e.Magnitude != "":
		return fmt.Sprintf("magnitude %s: %v", e.Magnitude, e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e *ProfileError) Unwrap() error {
	return e.Err
}

func fatal(path string, sentinel error, cause error) error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &ProfileError{Class: ClassFatal, Path: path, Err: err}
}

// IsFatal reports whether err should abort the batch.
// Errors that are not ProfileErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProfileError
	if errors.As(err, &pe) {
		return pe.Class == ClassFatal
	}
	return true
}

// IsRecoverable reports whether err only affects the item it was raised for.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProfileError
	if errors.As(err, &pe) {
		return pe.Class == ClassRecoverable
	}
	return errors.Is(err, ErrMalformedLimit)
}
