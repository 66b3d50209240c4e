package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("row not found")
	ErrUnknownRatingType = errors.New("unknown rating type")
)
