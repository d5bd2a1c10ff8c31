package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"upmon/internal/config"
)

// Store is the SQLite-backed repository for projects, monitors and statuses.
//
// It satisfies the repository interfaces declared by the core and history
// packages as well as the CRUD surface used by the HTTP API.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database described by cfg, applies the connection
// pool settings and runs all pending migrations.
//
// WAL journaling and foreign keys are enabled through the DSN so that every
// pooled connection gets them.
func New(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}
	if _, err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", cfg.Path).Msg("Storage initialized")
	return store, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
}

// Migrate applies pending schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	migrator, err := NewMigrator(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return migrator.Migrate(ctx)
}

// MigrationStatus reports the applied and the pending schema migrations.
func (s *Store) MigrationStatus(ctx context.Context) ([]MigrationRecord, []Migration, error) {
	migrator, err := NewMigrator(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}

	applied, err := migrator.Status(ctx)
	if err != nil {
		return nil, nil, err
	}
	pending, err := migrator.Pending(ctx)
	if err != nil {
		return nil, nil, err
	}
	return applied, pending, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
