package snapshot

import "errors"

// Sentinel kinds for row validation failures. Callers match with errors.Is.
var (
	ErrBadTimestamp = errors.New("malformed receipt timestamp")
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid field value")
)
