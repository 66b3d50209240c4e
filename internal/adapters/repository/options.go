package repository

import "github.com/FAForever/faf-rating-service/internal/domain/model"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithDefaultRating sets the rating assigned to players on first contact.
func WithDefaultRating(r model.Rating) Option {
	return func(s *Store) {
		if r.Deviation > 0 {
			s.defaultRating = r
		}
	}
}
