// Package notify publishes rating-changed notifications on the message bus.
package notify

import (
	"context"
	"encoding/json"

	"github.com/FAForever/faf-rating-service/internal/adapters/mq/bus"
	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/pkg/logger"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Publisher announces persisted rating changes. Delivery is best effort,
// a failed publish never fails the game that produced it.
type Publisher struct {
	bus        bus.Bus
	exchange   string
	routingKey string
	logger     logger.Logger
}

// NewPublisher creates a publisher bound to one exchange and routing key.
func NewPublisher(b bus.Bus, exchange, routingKey string) *Publisher {
	return &Publisher{
		bus:        b,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.Get().Named("notify"),
	}
}

type ratingChanged struct {
	PlayerID           int64   `json:"player_id"`
	RatingType         string  `json:"rating_type"`
	NewRatingMean      float64 `json:"new_rating_mean"`
	NewRatingDeviation float64 `json:"new_rating_deviation"`
}

// RatingChanged publishes one player's new rating in a scope.
func (p *Publisher) RatingChanged(ctx context.Context, playerID model.PlayerID, ratingType string, rating model.Rating) {
	body, err := json.Marshal(ratingChanged{
		PlayerID:           int64(playerID),
		RatingType:         ratingType,
		NewRatingMean:      rating.Mean,
		NewRatingDeviation: rating.Deviation,
	})
	if err != nil {
		metrics.RecordNotificationError()
		p.logger.Error(ctx, "encode rating notification",
			logger.Int64("playerID", int64(playerID)),
			logger.Error(err),
		)
		return
	}

	if err := p.bus.Publish(ctx, p.exchange, p.routingKey, body); err != nil {
		metrics.RecordNotificationError()
		p.logger.Error(ctx, "publish rating notification",
			logger.Int64("playerID", int64(playerID)),
			logger.Error(err),
		)
		return
	}

	metrics.RecordNotificationPublished()
}
