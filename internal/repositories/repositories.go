// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements a models interface for a specific entity type.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spotproxy/internal/shared"
)

// Store bundles the database handle with the repositories built on it.
type Store struct {
	DB     *sql.DB
	Events *AuthEventRepository
}

// Open opens the SQLite database described by cfg, applies migrations and builds the repositories.
func Open(ctx context.Context, cfg shared.DatabaseConfig) (*Store, error) {
	db, err := shared.OpenJournal(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Store{DB: db, Events: NewAuthEventRepository(db)}, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.DB.Close()
}
