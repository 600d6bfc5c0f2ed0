package stats

import "errors"

// Sentinel kinds for stats errors.
var (
	ErrUnknownKind = errors.New("unknown stat kind")
)
