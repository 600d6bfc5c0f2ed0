package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("report not found")
	ErrConflict     = errors.New("report already exists")
	ErrInvalidLimit = errors.New("invalid list limit")
)
