/*
Package store is the narrow data-access boundary the real-time core calls into.

This file contains the Postgres implementation: connection pool setup with
embedded goose migrations, and the two queries the core is allowed to run.
*/
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// NewPool initializes a PostgreSQL connection pool and applies pending migrations.
func NewPool(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// PG is the Postgres-backed Store.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG wraps an initialized pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// PersistSessionResult writes the terminal session outcome. The insert is
// keyed on session_id with ON CONFLICT DO NOTHING, keeping retries idempotent.
func (s *PG) PersistSessionResult(ctx context.Context, result SessionResult) error {
	participants, err := json.Marshal(result.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	const query = `
		INSERT INTO session_results (
			session_id, join_code, kind, state, winner_id, draw, forfeit,
			created_at, started_at, completed_at, participants
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		result.SessionID,
		result.JoinCode,
		result.Kind,
		result.State,
		result.WinnerID,
		result.Draw,
		result.Forfeit,
		result.CreatedAt,
		nullableTime(result.StartedAt),
		result.CompletedAt,
		participants,
	)
	if err != nil {
		return fmt.Errorf("failed to persist session result %s: %w", result.SessionID, err)
	}

	return nil
}

// LookupRelationships resolves users related to userID by kind. Friendships
// and guild memberships are stored symmetrically, so a single directional
// query suffices for every kind.
func (s *PG) LookupRelationships(ctx context.Context, userID string, kind RelationshipKind) ([]string, error) {
	const query = `
		SELECT related_user_id
		FROM relationships
		WHERE user_id = $1 AND kind = $2`

	rows, err := s.pool.Query(ctx, query, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s relationships for %s: %w", kind, userID, err)
	}
	defer rows.Close()

	var related []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		related = append(related, id)
	}

	return related, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
