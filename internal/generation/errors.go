package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when a remote generation call fails
	// for any reason. The caller decides retry policy; this package does not.
	ErrGenerationFailed = errors.New("text generation request failed")

	// ErrEmptyInput is returned when a generation call is made with no text.
	ErrEmptyInput = errors.New("generation input cannot be empty")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
