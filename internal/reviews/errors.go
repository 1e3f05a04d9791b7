package reviews

import "errors"

var (
	// ErrNotFound indicates the review item does not exist for the org.
	ErrNotFound = errors.New("review item not found")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)
