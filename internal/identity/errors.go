package identity

import "errors"

var (
	ErrNotFound          = errors.New("identity: not found")
	ErrInvalidInput      = errors.New("identity: invalid input")
	ErrInvalidTransition = errors.New("identity: invalid verification transition")
)
