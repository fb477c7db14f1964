// File: internal/transcript/transcript.go
// Package transcript persists conversation history in PostgreSQL so a
// session survives reloads of the engine. Messages are stored as one JSON
// document per session key; the conversation is small and always loaded
// whole, so a row per message would buy nothing.
package transcript

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts the pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed TranscriptStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
    session_key TEXT PRIMARY KEY,
    messages    JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// New creates a Store, verifies the connection and ensures the schema.
func New(ctx context.Context, pool DBPool, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure transcripts table: %w", err)
	}
	return &Store{pool: pool, log: log.Named("transcript")}, nil
}

// Load returns the stored conversation for a session key. A session with no
// stored transcript yields an empty history, not an error.
func (s *Store) Load(ctx context.Context, key string) ([]schemas.ChatMessage, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT messages FROM transcripts WHERE session_key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %q: %w", key, err)
	}

	var msgs []schemas.ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %q: %w", key, err)
	}
	return msgs, nil
}

// Save upserts the whole conversation for a session key.
func (s *Store) Save(ctx context.Context, key string, msgs []schemas.ChatMessage) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode transcript %q: %w", key, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO transcripts (session_key, messages, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_key)
		DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("failed to save transcript %q: %w", key, err)
	}
	return nil
}

// Clear deletes a session's stored transcript. Callers treat a failure here
// as best-effort cleanup; the error is returned for logging, nothing more.
func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM transcripts WHERE session_key = $1`, key); err != nil {
		return fmt.Errorf("failed to clear transcript %q: %w", key, err)
	}
	return nil
}

var _ schemas.TranscriptStore = (*Store)(nil)
