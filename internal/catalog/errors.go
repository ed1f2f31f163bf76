package catalog

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of catalog error.
type ErrorType string

const (
	ValidationError  ErrorType = "VALIDATION_ERROR"
	InvalidSelection ErrorType = "INVALID_SELECTION"
	NoRatings        ErrorType = "NO_RATINGS"
	StorageError     ErrorType = "STORAGE_ERROR"
)

// Error represents a rejected or failed catalog operation.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Type {
	case ValidationError:
		return fmt.Sprintf("invalid input: %s", e.Message)
	case InvalidSelection:
		return fmt.Sprintf("invalid selection: %s", e.Message)
	case NoRatings:
		return fmt.Sprintf("no ratings found: %s", e.Message)
	case StorageError:
		return fmt.Sprintf("storage error: %v", e.Err)
	default:
		return fmt.Sprintf("catalog error: %s", e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a catalog *Error of type t.
func IsType(err error, t ErrorType) bool {
	var catErr *Error
	return errors.As(err, &catErr) && catErr.Type == t
}
