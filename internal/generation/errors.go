package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when exercise generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate exercises")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during exercise generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrUnsupportedRequest is returned when a generator cannot serve the
	// requested subject or question types.
	ErrUnsupportedRequest = errors.New("unsupported generation request")

	// ErrStop may be returned by an EmitFunc to end generation early. Generators
	// treat it as a normal end of stream and return nil.
	ErrStop = errors.New("stop generation")
)
