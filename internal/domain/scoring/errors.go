package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
