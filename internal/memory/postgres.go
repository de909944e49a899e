package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArchive persists session snapshots in PostgreSQL.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchive{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_snapshots (
			session_id TEXT PRIMARY KEY,
			session_start TIMESTAMPTZ NOT NULL,
			session_end TIMESTAMPTZ NOT NULL,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			messages JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_snapshots_saved ON session_snapshots (saved_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (a *PostgresArchive) SaveSession(ctx context.Context, sessionID string, snap Snapshot) error {
	msgs, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO session_snapshots (session_id, session_start, session_end, total_tokens, message_count, messages, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO UPDATE SET
			session_start = EXCLUDED.session_start,
			session_end = EXCLUDED.session_end,
			total_tokens = EXCLUDED.total_tokens,
			message_count = EXCLUDED.message_count,
			messages = EXCLUDED.messages,
			saved_at = EXCLUDED.saved_at`,
		sessionID,
		snap.SessionStart,
		snap.SessionEnd,
		snap.TotalTokens,
		snap.MessageCount,
		msgs,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (a *PostgresArchive) LoadSession(ctx context.Context, sessionID string) (Snapshot, error) {
	var (
		snap Snapshot
		raw  []byte
	)
	err := a.pool.QueryRow(ctx,
		`SELECT session_start, session_end, total_tokens, message_count, messages
		 FROM session_snapshots WHERE session_id = $1`,
		sessionID,
	).Scan(&snap.SessionStart, &snap.SessionEnd, &snap.TotalTokens, &snap.MessageCount, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap.Messages); err != nil {
		return Snapshot{}, fmt.Errorf("decode messages: %w", err)
	}
	return snap, nil
}

func (a *PostgresArchive) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT session_id FROM session_snapshots ORDER BY saved_at`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return ids, nil
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
