package rater

import "errors"

// Sentinel kinds for rating computation errors.
var (
	// ErrGameRating marks an outcome combination that cannot be rated,
	// e.g. two victories or two defeats. Requests failing with it are
	// dropped without retry and without touching any rating.
	ErrGameRating = errors.New("game not ratable")
)
