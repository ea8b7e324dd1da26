package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USERS AND BLOCKS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users and blocks tables
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) PRIMARY KEY,
    display_name VARCHAR(100) NOT NULL,
    gender VARCHAR(20) NOT NULL,
    gender_preference JSONB NOT NULL DEFAULT '[]'::jsonb,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_gender CHECK (gender IN ('female', 'male', 'non_binary')),
    CONSTRAINT valid_status CHECK (status IN ('active', 'deactivated', 'deleted'))
);

CREATE INDEX IF NOT EXISTS idx_users_status ON users(status) WHERE status = 'active';

-- Directed block edges. A block in either direction excludes the pair
-- from matching, so lookups always check both directions.
CREATE TABLE IF NOT EXISTS blocks (
    blocker_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    blocked_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (blocker_id, blocked_id)
);

CREATE INDEX IF NOT EXISTS idx_blocks_blocked_id ON blocks(blocked_id);
`

const migration001Down = `
DROP TABLE IF EXISTS blocks;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROFILE VECTORS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create profile_vectors table
-- Version: 002

-- One psychometric vector per user. Raw Likert answers are kept alongside
-- the derived dimension scores so vectors can be recomputed when the
-- battery version changes.
CREATE TABLE IF NOT EXISTS profile_vectors (
    user_id VARCHAR(64) PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    battery_version VARCHAR(30) NOT NULL,
    answers JSONB NOT NULL DEFAULT '{}'::jsonb,
    single_choice JSONB NOT NULL DEFAULT '{}'::jsonb,
    multi_choice JSONB NOT NULL DEFAULT '{}'::jsonb,
    dimensions JSONB NOT NULL DEFAULT '{}'::jsonb,
    valid BOOLEAN NOT NULL DEFAULT TRUE,
    contradictions INTEGER NOT NULL DEFAULT 0,
    captured_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_contradictions CHECK (contradictions >= 0)
);

CREATE INDEX IF NOT EXISTS idx_profile_vectors_valid ON profile_vectors(valid) WHERE valid = TRUE;
`

const migration002Down = `
DROP TABLE IF EXISTS profile_vectors;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: MATCH BATCHES AND PROPOSALS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create match_batches and match_proposals tables
-- Version: 003

-- A batch records that generation ran for a user in a round, even when it
-- produced no proposal. The unique constraint on (user_id, round_key) is
-- the idempotency anchor for the whole generation path.
CREATE TABLE IF NOT EXISTS match_batches (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    week_key VARCHAR(8) NOT NULL,
    round VARCHAR(3) NOT NULL,
    round_key VARCHAR(12) NOT NULL,
    algorithm_version VARCHAR(30) NOT NULL,
    policy JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_batch_round CHECK (round IN ('thu', 'fri')),
    UNIQUE (user_id, round_key)
);

CREATE INDEX IF NOT EXISTS idx_match_batches_round_key ON match_batches(round_key);

CREATE TABLE IF NOT EXISTS match_proposals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    batch_id UUID NOT NULL REFERENCES match_batches(id) ON DELETE CASCADE,
    proposer_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    candidate_id VARCHAR(64) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    week_key VARCHAR(8) NOT NULL,
    round VARCHAR(3) NOT NULL,
    score INTEGER NOT NULL,
    reasons JSONB NOT NULL DEFAULT '[]'::jsonb,
    rank INTEGER NOT NULL DEFAULT 1,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    rejection_reason VARCHAR(200),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    acted_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_proposal_round CHECK (round IN ('thu', 'fri')),
    CONSTRAINT valid_proposal_status CHECK (status IN ('pending', 'accepted', 'rejected', 'expired', 'mutual_accepted')),
    CONSTRAINT valid_proposal_score CHECK (score >= 0 AND score <= 100),
    CONSTRAINT no_self_proposal CHECK (proposer_id != candidate_id),
    UNIQUE (proposer_id, week_key, round)
);

CREATE INDEX IF NOT EXISTS idx_match_proposals_candidate ON match_proposals(candidate_id, week_key);
CREATE INDEX IF NOT EXISTS idx_match_proposals_pending ON match_proposals(week_key, round) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_match_proposals_rejected ON match_proposals(proposer_id, acted_at) WHERE status = 'rejected';
`

const migration003Down = `
DROP TABLE IF EXISTS match_proposals;
DROP TABLE IF EXISTS match_batches;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a single database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// GetMigrations returns all migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users_and_blocks", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_profile_vectors", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_match_tables", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// Migrator handles database migrations.
type Migrator struct {
	conn   *Connection
	logger *slog.Logger
}

// NewMigrator creates a new migrator.
func NewMigrator(conn *Connection, logger *slog.Logger) *Migrator {
	return &Migrator{
		conn:   conn,
		logger: logger.With(slog.String("component", "migrator")),
	}
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.conn.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("%w: failed to create migrations table: %v", ErrMigrationFailed, err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		start := time.Now()
		m.logger.Info("applying migration",
			slog.Int("version", migration.Version),
			slog.String("name", migration.Name),
		)

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migration.UpSQL); err != nil {
				return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
			}

			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				migration.Version, migration.Name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}

		m.logger.Info("migration applied",
			slog.Int("version", migration.Version),
			slog.Duration("duration", time.Since(start)),
		)
	}

	return nil
}

// Rollback reverts the most recent migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	var version int
	var name string
	err := m.conn.QueryRow(ctx,
		`SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &name)
	if err != nil {
		if IsNoRows(err) {
			return fmt.Errorf("%w: no migrations to roll back", ErrMigrationFailed)
		}
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	var target *Migration
	for _, migration := range GetMigrations() {
		if migration.Version == version {
			mig := migration
			target = &mig
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: unknown migration version %d", ErrMigrationFailed, version)
	}

	m.logger.Info("rolling back migration",
		slog.Int("version", version),
		slog.String("name", name),
	)

	err = m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, target.DownSQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	return nil
}

// Status returns the set of applied migration versions.
func (m *Migrator) Status(ctx context.Context) (map[int]bool, error) {
	if _, err := m.conn.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return m.appliedVersions(ctx)
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read applied migrations: %v", ErrMigrationFailed, err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
