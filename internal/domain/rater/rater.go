// Package rater defines the contract for computing posterior ratings from
// a finished game's outcomes and prior ratings.
package rater

import (
	"context"
	"fmt"

	"github.com/FAForever/faf-rating-service/internal/domain/model"
	glicko "github.com/zelenin/go-glicko2"
)

// TeamRating pairs one team's outcome with its players' prior ratings.
type TeamRating struct {
	Outcome model.Outcome
	Ratings map[model.PlayerID]model.Rating
}

// GameRater computes posterior ratings for every participant of a game.
//
// Implementations must be deterministic given their inputs and symmetric
// under swapping the two teams. They must not mutate any state: a failed
// computation leaves every rating untouched.
type GameRater interface {
	Rate(ctx context.Context, teams [2]TeamRating) (map[model.PlayerID]model.Rating, error)
}

// Glicko2Rater implements GameRater on the Glicko-2 rating system.
//
// A two-team game is rated as the set of cross-team pairwise matches
// inside a single rating period. The persisted model carries only mean and
// deviation, so priors are seeded with the base volatility and the
// posterior volatility is discarded.
type Glicko2Rater struct{}

// NewGlicko2Rater creates the default rater.
func NewGlicko2Rater() *Glicko2Rater {
	return &Glicko2Rater{}
}

// Rate computes posteriors for both teams.
func (g *Glicko2Rater) Rate(_ context.Context, teams [2]TeamRating) (map[model.PlayerID]model.Rating, error) {
	result, err := matchResult(teams[0].Outcome, teams[1].Outcome)
	if err != nil {
		return nil, err
	}

	period := glicko.NewRatingPeriod()
	players := make(map[model.PlayerID]*glicko.Player, len(teams[0].Ratings)+len(teams[1].Ratings))
	for _, team := range teams {
		for id, prior := range team.Ratings {
			p := glicko.NewPlayer(glicko.NewRating(prior.Mean, prior.Deviation, glicko.RATING_BASE_SIGMA))
			players[id] = p
			period.AddPlayer(p)
		}
	}

	// One pairwise match per cross-team pair, all from the first team's
	// perspective. AddMatch records the inverse result for the opponent,
	// which keeps the computation symmetric under team swap.
	for id0 := range teams[0].Ratings {
		for id1 := range teams[1].Ratings {
			period.AddMatch(players[id0], players[id1], result)
		}
	}

	period.Calculate()

	posteriors := make(map[model.PlayerID]model.Rating, len(players))
	for id, p := range players {
		r := p.Rating()
		posteriors[id] = model.Rating{Mean: r.R(), Deviation: r.Rd()}
	}
	return posteriors, nil
}

// matchResult maps the two reported outcomes onto a Glicko-2 match result
// for the first team. Only the victor/loser convention and mutual draws
// are ratable; everything else fails with ErrGameRating.
func matchResult(a, b model.Outcome) (glicko.MatchResult, error) {
	switch {
	case a == model.OutcomeVictory && b == model.OutcomeDefeat:
		return glicko.MATCH_RESULT_WIN, nil
	case a == model.OutcomeDefeat && b == model.OutcomeVictory:
		return glicko.MATCH_RESULT_LOSS, nil
	case a.IsDraw() && b.IsDraw():
		return glicko.MATCH_RESULT_DRAW, nil
	default:
		return 0, fmt.Errorf("%w: outcomes %s vs %s", ErrGameRating, a, b)
	}
}
