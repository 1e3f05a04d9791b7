package evidence

import "errors"

var (
	// ErrNotFound indicates the artifact or match does not exist for the org.
	ErrNotFound = errors.New("evidence not found")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrWeakMatch indicates an accept was attempted on a match below the
	// strong-match threshold. The artifact status is left untouched.
	ErrWeakMatch = errors.New("match confidence below strong-match threshold")
)
