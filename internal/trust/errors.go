package trust

import "errors"

var (
	// ErrNotFound is returned when a contact or vendor does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)
