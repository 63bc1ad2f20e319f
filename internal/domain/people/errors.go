package people

import "errors"

var (
	ErrNotFound          = errors.New("person not found")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrEmailTaken        = errors.New("email already in use")
)
