package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Migrator handles database schema migrations.
//
// It tracks applied migrations in a dedicated table and ensures
// migrations are applied in the correct order exactly once.
type Migrator struct {
	// db is the database connection used for migrations
	db *sql.DB

	// migrations holds all registered migrations sorted by version
	migrations []Migration
}

// Migration represents a single database migration.
type Migration struct {
	// Version is the migration version number (e.g., 1, 2, 3...)
	Version int

	// Name is a human-readable description of the migration
	Name string

	// UpSQL contains the SQL commands to apply the migration
	UpSQL string
}

// MigrationRecord represents an applied migration.
type MigrationRecord struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// NewMigrator creates a new migration manager.
//
// It creates the migrations tracking table if it doesn't exist
// and registers the built-in upmon schema.
func NewMigrator(ctx context.Context, db *sql.DB) (*Migrator, error) {
	migrator := &Migrator{
		db: db,
	}

	if err := migrator.createMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrator.registerBuiltinMigrations()

	return migrator, nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	log.Debug().Msg("Schema migrations table ready")
	return nil
}

// registerBuiltinMigrations registers the tables upmon needs:
//   - projects: monitor groups
//   - monitors: ping/website targets with nullable type-specific columns
//   - monitor_statuses: append-only check results
func (m *Migrator) registerBuiltinMigrations() {
	m.AddMigration(Migration{
		Version: 1,
		Name:    "create_projects_table",
		UpSQL: `
			CREATE TABLE projects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				label TEXT NOT NULL CHECK (length(label) <= 100),
				description TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]', -- JSON array
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
		`,
	})

	m.AddMigration(Migration{
		Version: 2,
		Name:    "create_monitors_table",
		UpSQL: `
			CREATE TABLE monitors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id INTEGER NOT NULL,
				label TEXT NOT NULL,
				periodicity INTEGER NOT NULL CHECK (periodicity BETWEEN 5 AND 300),
				type TEXT NOT NULL CHECK (type IN ('ping', 'website')),
				badge_label TEXT NOT NULL DEFAULT '',
				host TEXT,
				port INTEGER,
				url TEXT,
				check_status BOOLEAN,
				keywords TEXT, -- JSON array
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
			);

			CREATE INDEX idx_monitors_project_id ON monitors(project_id);
			CREATE INDEX idx_monitors_type ON monitors(type);
		`,
	})

	m.AddMigration(Migration{
		Version: 3,
		Name:    "create_monitor_statuses_table",
		UpSQL: `
			CREATE TABLE monitor_statuses (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				monitor_id INTEGER NOT NULL,
				start_time DATETIME NOT NULL,
				status BOOLEAN NOT NULL,
				response_time INTEGER NOT NULL,
				FOREIGN KEY (monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
			);

			CREATE INDEX idx_monitor_statuses_monitor_start ON monitor_statuses(monitor_id, start_time);
		`,
	})

	log.Debug().Int("count", len(m.migrations)).Msg("Built-in migrations registered")
}

// AddMigration registers a new migration, keeping the list sorted by version.
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)

	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// Migrate applies all pending migrations to the database.
//
// This method is idempotent - it only applies migrations that haven't
// been applied yet. Each migration runs in its own transaction.
//
// Returns the number of migrations applied and any error encountered.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedCount := 0
	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; ok {
			log.Debug().
				Int("version", migration.Version).
				Str("name", migration.Name).
				Msg("Migration already applied, skipping")
			continue
		}

		log.Info().
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Applying migration")

		if err := m.applyMigration(ctx, migration); err != nil {
			return appliedCount, fmt.Errorf("failed to apply migration %d (%s): %w",
				migration.Version, migration.Name, err)
		}

		appliedCount++
	}

	if appliedCount > 0 {
		log.Info().Int("count", appliedCount).Msg("Database migrations completed")
	} else {
		log.Debug().Msg("No pending migrations")
	}

	return appliedCount, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions[version] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}

	return versions, nil
}

// applyMigration applies a single migration within a database transaction.
func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	for i, stmt := range splitSQL(migration.UpSQL) {
		log.Debug().
			Int("version", migration.Version).
			Int("statement", i+1).
			Str("sql", stmt).
			Msg("Executing migration statement")

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	recordQuery := `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, recordQuery, migration.Version, migration.Name, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	return nil
}

// splitSQL splits a SQL script on semicolons and drops empty statements.
//
// Comments are stripped line by line first; the schema holds no string
// literals containing ';' or '--'.
func splitSQL(script string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var result []string
	for _, stmt := range strings.Split(cleaned.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}

// Status returns the applied migrations ordered by version.
func (m *Migrator) Status(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration status: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration records: %w", err)
	}

	return records, nil
}

// Pending returns the registered migrations that haven't been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var pending []Migration
	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; !ok {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}
