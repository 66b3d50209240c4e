package model

import "errors"

// Sentinel kinds for request parsing. These allow errors.Is from callers.
var (
	ErrMalformedRequest = errors.New("malformed rating request")
	ErrUnknownOutcome   = errors.New("unknown outcome")
)
