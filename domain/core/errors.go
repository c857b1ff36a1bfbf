package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound      = errors.New("resource not found")
	ErrTrialNotFound = fmt.Errorf("%w: trial", ErrNotFound)

	ErrInvalidNCTID        = errors.New("invalid NCT ID format")
	ErrInsufficientHistory = errors.New("insufficient enrollment history")
	ErrSingularDesign      = errors.New("regression design matrix is singular")
)

// NewNotFoundError builds an ErrNotFound for resource/id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
