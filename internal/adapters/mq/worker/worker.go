// Package worker processes rating requests off the queue, one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FAForever/faf-rating-service/internal/adapters/repository"
	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/internal/domain/rater"
	"github.com/FAForever/faf-rating-service/pkg/logger"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Drop reasons reported to metrics.
const (
	dropUnknownRatingType = "unknown_rating_type"
	dropNotRatable        = "not_ratable"
)

// defaultRequestTimeout bounds one request's store and bus calls so a
// stalled external dependency cannot wedge the single worker forever.
const defaultRequestTimeout = 30 * time.Second

// Directory resolves rating types to rating scope ids.
type Directory interface {
	Get(ratingType string) (int64, error)
}

// Store reads and writes persisted ratings.
type Store interface {
	GetRating(ctx context.Context, playerID model.PlayerID, leaderboardID int64) (model.Rating, error)
	ApplyGameUpdate(ctx context.Context, gameID, leaderboardID int64, updates []model.RatingUpdate) error
}

// Notifier announces persisted rating changes.
type Notifier interface {
	RatingChanged(ctx context.Context, playerID model.PlayerID, ratingType string, rating model.Rating)
}

// Queue defines how the worker receives rating requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.RatingRequest
}

// Worker drains the queue sequentially. Requests touching the same
// players are therefore always rated in arrival order.
type Worker struct {
	queue     Queue
	directory Directory
	store     Store
	rater     rater.GameRater
	notifier  Notifier

	requestTimeout time.Duration

	done chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(queue Queue, directory Directory, store Store, gameRater rater.GameRater, notifier Notifier, opts ...Option) *Worker {
	w := &Worker{
		queue:          queue,
		directory:      directory,
		store:          store,
		rater:          gameRater,
		notifier:       notifier,
		requestTimeout: defaultRequestTimeout,
		done:           make(chan struct{}),
		logger:         logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run drains the queue until it is closed and empty, or ctx is canceled.
// A failed request is logged and dropped, it never stops the loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				w.logger.Info(ctx, "queue drained, worker stopping")
				return
			}
			w.process(ctx, req)
		}
	}
}

// Done is closed once the worker loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// process rates one game end to end. The request is acknowledged in every
// outcome so the broker never redelivers it.
func (w *Worker) process(parent context.Context, req model.RatingRequest) {
	defer req.Complete()

	start := time.Now()
	defer func() {
		metrics.RecordProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(parent, w.requestTimeout)
	defer cancel()

	if err := w.rateGame(ctx, req); err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownRatingType):
			metrics.RecordRequestDropped(dropUnknownRatingType)
			w.logger.Warn(ctx, "dropping request for unknown rating type",
				logger.Int64("gameID", req.GameID),
				logger.String("ratingType", req.RatingType),
			)
		case errors.Is(err, rater.ErrGameRating):
			metrics.RecordRequestDropped(dropNotRatable)
			w.logger.Warn(ctx, "dropping request for unratable game",
				logger.Int64("gameID", req.GameID),
				logger.Error(err),
			)
		default:
			w.logger.Error(ctx, "rating request failed",
				logger.Int64("gameID", req.GameID),
				logger.Error(err),
			)
		}
		return
	}

	metrics.RecordRequestRated()
}

func (w *Worker) rateGame(ctx context.Context, req model.RatingRequest) error {
	leaderboardID, err := w.directory.Get(req.RatingType)
	if err != nil {
		return err
	}

	var teams [2]rater.TeamRating
	winners := map[model.PlayerID]bool{}
	for i, team := range req.Teams {
		teams[i] = rater.TeamRating{
			Outcome: team.Outcome,
			Ratings: make(map[model.PlayerID]model.Rating, len(team.PlayerIDs)),
		}
		for _, playerID := range team.PlayerIDs {
			rating, err := w.store.GetRating(ctx, playerID, leaderboardID)
			if err != nil {
				return fmt.Errorf("fetch prior rating: %w", err)
			}
			teams[i].Ratings[playerID] = rating
			if team.Outcome == model.OutcomeVictory {
				winners[playerID] = true
			}
		}
	}

	posteriors, err := w.rater.Rate(ctx, teams)
	if err != nil {
		return err
	}

	updates := make([]model.RatingUpdate, 0, len(posteriors))
	for i := range teams {
		for _, playerID := range req.Teams[i].PlayerIDs {
			updates = append(updates, model.RatingUpdate{
				PlayerID: playerID,
				Before:   teams[i].Ratings[playerID],
				After:    posteriors[playerID],
				Won:      winners[playerID],
			})
		}
	}

	if err := w.store.ApplyGameUpdate(ctx, req.GameID, leaderboardID, updates); err != nil {
		return err
	}

	// Notifications go out only for committed ratings.
	for _, update := range updates {
		w.notifier.RatingChanged(ctx, update.PlayerID, req.RatingType, update.After)
	}

	return nil
}
