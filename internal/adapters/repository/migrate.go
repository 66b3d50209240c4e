package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/FAForever/faf-rating-service/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date over the store's own connection.
// A schema that is already current is not an error.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	drv, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("open migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Get().Debug(context.Background(), "schema already up to date")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Get().Info(context.Background(), "schema migrated")
	return nil
}
