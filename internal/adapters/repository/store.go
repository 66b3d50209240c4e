// Package repository implements the transactional rating store and the
// rating-type directory on the relational database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/FAForever/faf-rating-service/internal/domain/model"
	"github.com/FAForever/faf-rating-service/pkg/metrics"
)

// Store persists ratings, their audit journal, and the rating-scope rows.
type Store struct {
	db            *sqlx.DB
	defaultRating model.Rating
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:            db,
		defaultRating: model.DefaultRating(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open connects to the database and verifies the connection.
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

type transactionCallback func(tx *sqlx.Tx) error

// transaction runs cb inside one transaction, rolling back on error.
func (s *Store) transaction(ctx context.Context, cb transactionCallback) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %w", err2, err)
		}
		return err
	}

	return tx.Commit()
}

// Leaderboards returns every rating scope as technical name -> id.
func (s *Store) Leaderboards(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		ID            int64  `db:"id"`
		TechnicalName string `db:"technical_name"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, technical_name FROM leaderboard`); err != nil {
		return nil, fmt.Errorf("fetch leaderboards: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.TechnicalName] = row.ID
	}
	return out, nil
}

// CreateLeaderboard inserts a rating scope and returns its id. Creating an
// existing scope returns the existing id.
func (s *Store) CreateLeaderboard(ctx context.Context, technicalName string) (int64, error) {
	var id int64
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sq.Insert("leaderboard").
			Options("OR IGNORE").
			SetMap(sq.Eq{"technical_name": technicalName}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		return tx.GetContext(ctx, &id,
			`SELECT id FROM leaderboard WHERE technical_name = ?`, technicalName)
	})
	if err != nil {
		return 0, fmt.Errorf("create leaderboard %q: %w", technicalName, err)
	}
	return id, nil
}

// GetRating reads a player's current rating in a scope, creating the
// default row on first touch. The creation is an idempotent upsert so
// concurrent callers cannot double-create.
func (s *Store) GetRating(ctx context.Context, playerID model.PlayerID, leaderboardID int64) (model.Rating, error) {
	var rating model.Rating
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		got, err := getRating(ctx, tx, playerID, leaderboardID)
		if err == nil {
			rating = got
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if err := createDefaultRating(ctx, tx, playerID, leaderboardID, s.defaultRating); err != nil {
			return err
		}

		rating, err = getRating(ctx, tx, playerID, leaderboardID)
		return err
	})
	if err != nil {
		return model.Rating{}, fmt.Errorf("get rating for player %d: %w", playerID, err)
	}
	return rating, nil
}

func getRating(ctx context.Context, tx *sqlx.Tx, playerID model.PlayerID, leaderboardID int64) (model.Rating, error) {
	var row struct {
		Mean      float64 `db:"mean"`
		Deviation float64 `db:"deviation"`
	}
	err := tx.GetContext(ctx, &row,
		`SELECT mean, deviation FROM leaderboard_rating
		 WHERE login_id = ? AND leaderboard_id = ? LIMIT 1`,
		playerID, leaderboardID)
	if err != nil {
		return model.Rating{}, err
	}
	return model.Rating{Mean: row.Mean, Deviation: row.Deviation}, nil
}

func createDefaultRating(ctx context.Context, tx *sqlx.Tx, playerID model.PlayerID, leaderboardID int64, def model.Rating) error {
	query, args, err := sq.Insert("leaderboard_rating").
		Options("OR IGNORE").
		SetMap(sq.Eq{
			"login_id":       playerID,
			"leaderboard_id": leaderboardID,
			"mean":           def.Mean,
			"deviation":      def.Deviation,
			"total_games":    0,
			"won_games":      0,
		}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// ApplyGameUpdate persists one game's rating transitions: per player, one
// journal entry linked to the participation row plus the rating-row
// update. The whole game commits or rolls back as a unit, so a failure
// halfway through mutates nothing.
func (s *Store) ApplyGameUpdate(ctx context.Context, gameID, leaderboardID int64, updates []model.RatingUpdate) error {
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		for _, update := range updates {
			if err := applyPlayerUpdate(ctx, tx, gameID, leaderboardID, update); err != nil {
				return fmt.Errorf("player %d: %w", update.PlayerID, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordPersistenceError()
		return fmt.Errorf("apply update for game %d: %w", gameID, err)
	}

	for range updates {
		metrics.RecordRatingPersisted()
	}
	return nil
}

func applyPlayerUpdate(ctx context.Context, tx *sqlx.Tx, gameID, leaderboardID int64, update model.RatingUpdate) error {
	statsID, err := ensureParticipation(ctx, tx, gameID, update.PlayerID)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("leaderboard_rating_journal").SetMap(sq.Eq{
		"game_player_stats_id":    statsID,
		"leaderboard_id":          leaderboardID,
		"rating_mean_before":      update.Before.Mean,
		"rating_deviation_before": update.Before.Deviation,
		"rating_mean_after":       update.After.Mean,
		"rating_deviation_after":  update.After.Deviation,
	}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	wonIncrement := 0
	if update.Won {
		wonIncrement = 1
	}
	query, args, err = sq.Update("leaderboard_rating").
		SetMap(sq.Eq{
			"mean":        update.After.Mean,
			"deviation":   update.After.Deviation,
			"total_games": sq.Expr("total_games + 1"),
			"won_games":   sq.Expr("won_games + ?", wonIncrement),
		}).
		Where("login_id = ? AND leaderboard_id = ?", update.PlayerID, leaderboardID).
		ToSql()
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: rating row for player %d", ErrNotFound, update.PlayerID)
	}

	return nil
}

// ensureParticipation resolves the participation row for (game, player),
// creating it when the game server has not written one yet.
func ensureParticipation(ctx context.Context, tx *sqlx.Tx, gameID int64, playerID model.PlayerID) (int64, error) {
	query, args, err := sq.Insert("game_player_stats").
		Options("OR IGNORE").
		SetMap(sq.Eq{"game_id": gameID, "player_id": playerID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}

	var id int64
	err = tx.GetContext(ctx, &id,
		`SELECT id FROM game_player_stats WHERE game_id = ? AND player_id = ? LIMIT 1`,
		gameID, playerID)
	return id, err
}

// RatingRow is the full persisted rating state of one (player, scope) pair.
type RatingRow struct {
	PlayerID      int64   `db:"login_id"`
	LeaderboardID int64   `db:"leaderboard_id"`
	Mean          float64 `db:"mean"`
	Deviation     float64 `db:"deviation"`
	TotalGames    int     `db:"total_games"`
	WonGames      int     `db:"won_games"`
}

// GetRatingRow reads the full rating row, without creating a default.
// Returns ErrNotFound for untouched pairs.
func (s *Store) GetRatingRow(ctx context.Context, playerID model.PlayerID, leaderboardID int64) (RatingRow, error) {
	var row RatingRow
	err := s.db.GetContext(ctx, &row,
		`SELECT login_id, leaderboard_id, mean, deviation, total_games, won_games
		 FROM leaderboard_rating
		 WHERE login_id = ? AND leaderboard_id = ? LIMIT 1`,
		playerID, leaderboardID)
	if errors.Is(err, sql.ErrNoRows) {
		return RatingRow{}, fmt.Errorf("%w: rating row for player %d", ErrNotFound, playerID)
	}
	if err != nil {
		return RatingRow{}, err
	}
	return row, nil
}

// JournalEntry is one append-only audit record of a rating transition.
type JournalEntry struct {
	ID                int64   `db:"id"`
	GamePlayerStatsID int64   `db:"game_player_stats_id"`
	LeaderboardID     int64   `db:"leaderboard_id"`
	MeanBefore        float64 `db:"rating_mean_before"`
	DeviationBefore   float64 `db:"rating_deviation_before"`
	MeanAfter         float64 `db:"rating_mean_after"`
	DeviationAfter    float64 `db:"rating_deviation_after"`
}

// JournalEntries returns a player's audit records in a scope, oldest first.
func (s *Store) JournalEntries(ctx context.Context, playerID model.PlayerID, leaderboardID int64) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT j.id, j.game_player_stats_id, j.leaderboard_id,
		        j.rating_mean_before, j.rating_deviation_before,
		        j.rating_mean_after, j.rating_deviation_after
		 FROM leaderboard_rating_journal j
		 JOIN game_player_stats gps ON gps.id = j.game_player_stats_id
		 WHERE gps.player_id = ? AND j.leaderboard_id = ?
		 ORDER BY j.id`,
		playerID, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("fetch journal for player %d: %w", playerID, err)
	}
	return entries, nil
}

// JournalCount returns the number of audit records in a scope.
func (s *Store) JournalCount(ctx context.Context, leaderboardID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM leaderboard_rating_journal WHERE leaderboard_id = ?`,
		leaderboardID)
	return count, err
}
