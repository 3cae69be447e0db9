package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id          BIGSERIAL PRIMARY KEY,
	origin      TEXT NOT NULL,
	final_url   TEXT NOT NULL,
	provider    TEXT NOT NULL,
	adapter     TEXT NOT NULL,
	score       INTEGER NOT NULL,
	chain       JSONB NOT NULL DEFAULT '[]',
	attempts    INTEGER NOT NULL,
	elapsed_ms  BIGINT NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS resolutions_origin_idx ON resolutions (origin);
CREATE INDEX IF NOT EXISTS resolutions_resolved_at_idx ON resolutions (resolved_at DESC);
`

// Store appends resolved links to Postgres and serves the recent history.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (*Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("history dsn is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Or(30 * time.Minute))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db, log: logger.With("component", "history")}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Append records one successful resolution.
func (s *Store) Append(ctx context.Context, res *types.Resolution) error {
	if res == nil {
		return errors.New("nil resolution")
	}
	chainJSON, err := json.Marshal(res.Chain)
	if err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	resolvedAt := res.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now()
	}

	const insert = `
INSERT INTO resolutions (origin, final_url, provider, adapter, score, chain, attempts, elapsed_ms, resolved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, insert,
		res.Origin, res.Link.URL, res.Link.Provider, res.Adapter, res.Link.Score,
		chainJSON, res.Attempts, res.Elapsed.Milliseconds(), resolvedAt)
	if isUndefinedTable(err) {
		if err := s.ensureSchema(ctx); err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, insert,
			res.Origin, res.Link.URL, res.Link.Provider, res.Adapter, res.Link.Score,
			chainJSON, res.Attempts, res.Elapsed.Milliseconds(), resolvedAt)
	}
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// Recent returns the latest resolutions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Resolution, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
SELECT origin, final_url, provider, adapter, score, chain, attempts, elapsed_ms, resolved_at
FROM resolutions
ORDER BY resolved_at DESC
LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if isUndefinedTable(err) {
		return []types.Resolution{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []types.Resolution{}
	for rows.Next() {
		var (
			res       types.Resolution
			chainJSON []byte
			elapsedMS int64
		)
		if err := rows.Scan(&res.Origin, &res.Link.URL, &res.Link.Provider, &res.Adapter,
			&res.Link.Score, &chainJSON, &res.Attempts, &elapsedMS, &res.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if len(chainJSON) > 0 {
			if err := json.Unmarshal(chainJSON, &res.Chain); err != nil {
				s.log.Debug("drop malformed chain column", "error", err)
			}
		}
		res.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, res)
	}
	return out, rows.Err()
}

// Close releases the database pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return false
}
