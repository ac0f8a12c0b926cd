package paper

import "errors"

var (
	ErrInvalidType            = errors.New("paper: invalid paper type")
	ErrMissingBusinessContext = errors.New("paper: business context is required for this type")
	ErrUnexpectedContext      = errors.New("paper: system-wide type must not carry a business context")
	ErrInvalidValidityWindow  = errors.New("paper: invalid validity window")
	ErrInvalidInput           = errors.New("paper: invalid input")
	ErrInvalidTransition      = errors.New("paper: invalid verification transition")
	ErrNotFound               = errors.New("paper: not found")
	ErrForbidden              = errors.New("paper: caller is not allowed to modify this paper")
)
