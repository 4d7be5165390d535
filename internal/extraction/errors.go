package extraction

import "errors"

// Common errors returned by extractors
var (
	// ErrInvalidResponse is returned when the classifier response cannot be
	// parsed as JSON.
	ErrInvalidResponse = errors.New("invalid response from classification service")

	// ErrSchemaViolation is returned when a parsed response does not conform
	// to the candidate schema exactly.
	ErrSchemaViolation = errors.New("response violates candidate schema")

	// ErrClassificationFailed is returned for transport errors and timeouts
	// while calling the classification service.
	ErrClassificationFailed = errors.New("classification call failed")

	// ErrInvalidConfig is returned when the extractor configuration is invalid.
	ErrInvalidConfig = errors.New("invalid extractor configuration")
)
