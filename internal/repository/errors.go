package repository

import "fmt"

// RepositoryError represents an error that occurred within a repository
type RepositoryError struct {
	// Op is the operation that failed
	Op string

	// Err is the underlying error
	Err error
}

// Error returns a string representation of the error
func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap exposes the underlying error to errors.Is and errors.As
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
