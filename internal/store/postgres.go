package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool abstracts the pgxpool.Pool methods the durable tier needs, so tests
// can substitute a mock without a running database.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBPool = (*pgxpool.Pool)(nil)

// DurableTier is the persistent document side of the session store. FindOne
// returns (nil, nil) when no document exists; absence is not an error.
type DurableTier interface {
	Upsert(ctx context.Context, sessionID string, doc []byte, updatedAt time.Time) error
	FindOne(ctx context.Context, sessionID string) ([]byte, error)
}

// PostgresStore implements DurableTier with one JSONB document per session,
// keyed by a unique session_id.
type PostgresStore struct {
	pool DBPool
}

var _ DurableTier = (*PostgresStore)(nil)

// NewPostgresStore verifies the connection and returns the tier.
func NewPostgresStore(ctx context.Context, pool DBPool) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// InitSchema creates the sessions table if it does not exist yet.
func (p *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Upsert writes the document, replacing any prior version for the id.
func (p *PostgresStore) Upsert(ctx context.Context, sessionID string, doc []byte, updatedAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, record, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at;
	`, sessionID, doc, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", sessionID, err)
	}
	return nil
}

// FindOne fetches the document for the id, or (nil, nil) when absent.
func (p *PostgresStore) FindOne(ctx context.Context, sessionID string) ([]byte, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx,
		`SELECT record FROM sessions WHERE session_id = $1;`, sessionID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch session %s: %w", sessionID, err)
	}
	return doc, nil
}
