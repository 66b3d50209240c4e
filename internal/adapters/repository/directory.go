package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/FAForever/faf-rating-service/pkg/logger"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Directory is the in-memory view of the rating scopes. Workers resolve
// rating types against a snapshot that a background refresh swaps out
// atomically, so lookups never block on the database.
type Directory struct {
	store    *Store
	snapshot atomic.Value // map[string]int64
}

// NewDirectory builds an empty directory over the store. Call Load before
// resolving rating types.
func NewDirectory(store *Store) *Directory {
	d := &Directory{store: store}
	d.snapshot.Store(map[string]int64{})
	return d
}

// Load replaces the snapshot with the current database contents. On
// failure the previous snapshot stays in place.
func (d *Directory) Load(ctx context.Context) error {
	boards, err := d.store.Leaderboards(ctx)
	if err != nil {
		metrics.RecordDirectoryError()
		return fmt.Errorf("refresh rating type directory: %w", err)
	}

	d.snapshot.Store(boards)
	metrics.RecordDirectoryRefresh()
	metrics.UpdateDirectorySize(len(boards))
	logger.Get().Debug(ctx, "rating type directory refreshed", logger.Int("size", len(boards)))

	return nil
}

// Get resolves a rating type to its scope id. Unknown types return
// ErrUnknownRatingType.
func (d *Directory) Get(ratingType string) (int64, error) {
	boards := d.snapshot.Load().(map[string]int64)
	id, ok := boards[ratingType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRatingType, ratingType)
	}
	return id, nil
}

// Size returns the number of known rating types.
func (d *Directory) Size() int {
	return len(d.snapshot.Load().(map[string]int64))
}
