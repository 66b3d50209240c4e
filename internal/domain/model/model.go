// Package model contains domain models passed between layers.
package model

import "sync"

// PlayerID identifies a player. It is opaque to this service and maps to
// the login id used by the rest of the platform.
type PlayerID int64

// Rating is a belief about a player's skill in one rating scope.
// Mean and Deviation are always read and written together.
type Rating struct {
	Mean      float64
	Deviation float64
}

// Default rating assigned the first time a (player, scope) pair is seen.
const (
	DefaultMean      = 1500.0
	DefaultDeviation = 500.0
)

// DefaultRating returns the rating a player starts out with.
func DefaultRating() Rating {
	return Rating{Mean: DefaultMean, Deviation: DefaultDeviation}
}

// TeamSummary is one side of a finished game: its reported outcome and the
// players on it. PlayerIDs is deduplicated and never empty on a parsed
// request.
type TeamSummary struct {
	Outcome   Outcome
	PlayerIDs []PlayerID
}

// RatingRequest is the unit of work flowing through the rating queue.
// It is transient: built from an inbound bus message, discarded once the
// worker has processed it.
type RatingRequest struct {
	GameID     int64
	RatingType string
	Teams      [2]TeamSummary

	// Completion acknowledges the originating bus message. It is invoked
	// exactly once per accepted request, whether the request succeeds or
	// is dropped.
	Completion *Completion
}

// Players returns every participant across both teams.
func (r *RatingRequest) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(r.Teams[0].PlayerIDs)+len(r.Teams[1].PlayerIDs))
	ids = append(ids, r.Teams[0].PlayerIDs...)
	ids = append(ids, r.Teams[1].PlayerIDs...)
	return ids
}

// Complete invokes the completion handle, if any. Safe on a nil receiver
// inside the request so dropped-before-accept paths need no guarding.
func (r *RatingRequest) Complete() {
	r.Completion.Done()
}

// RatingUpdate is one player's rating transition for a single game, handed
// from the worker to the store.
type RatingUpdate struct {
	PlayerID PlayerID
	Before   Rating
	After    Rating
	Won      bool
}

// Completion wraps the acknowledgement callback of a bus message so it
// runs at most once no matter how many layers touch the request.
type Completion struct {
	once sync.Once
	fn   func()
}

// NewCompletion creates a completion handle around fn.
func NewCompletion(fn func()) *Completion {
	return &Completion{fn: fn}
}

// Done runs the callback on first use and is a no-op afterwards. A nil
// handle is valid and does nothing.
func (c *Completion) Done() {
	if c == nil || c.fn == nil {
		return
	}
	c.once.Do(c.fn)
}
