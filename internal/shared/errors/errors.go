package errors

import "errors"

// Domain errors
var (
	// Policy errors
	ErrPolicyNotReady = errors.New("policy not loaded")
	ErrPolicyLoad     = errors.New("failed to load policy")
	ErrInvalidPolicy  = errors.New("invalid policy document")

	// Host feed errors
	ErrEmptyHost          = errors.New("host cannot be empty")
	ErrInvalidObservation = errors.New("invalid observation")
	ErrHostNotFound       = errors.New("host not found")

	// Advisory errors
	ErrAdvisoryFeed = errors.New("failed to load advisory feed")

	// Rendering errors
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
