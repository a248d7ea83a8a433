package mapping

import "errors"

// Error kinds. Operations wrap one of these with context so callers can
// branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrState      = errors.New("invalid state")
	ErrRepository = errors.New("repository error")
	ErrTransport  = errors.New("transport error")
)
