package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/spaceai-assistant/internal/infra"
)

// Schema: идемпотентная миграция для consent_requests и audit_log.
const Schema = `
CREATE TABLE IF NOT EXISTS consent_requests (
	seq             BIGSERIAL,
	id              TEXT PRIMARY KEY,
	capability_name TEXT        NOT NULL,
	payload         JSONB       NOT NULL DEFAULT '{}',
	status          TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	resolved_at     TIMESTAMPTZ,
	resolution      TEXT
);
CREATE INDEX IF NOT EXISTS consent_requests_status_idx ON consent_requests (status, seq);

CREATE TABLE IF NOT EXISTS audit_log (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	event      TEXT        NOT NULL,
	actor      TEXT        NOT NULL,
	details    JSONB       NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_seq_idx ON audit_log (seq);
`

type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo открывает пул и проверяет соединение.
func NewRepo(ctx context.Context, dbCfg infra.DatabaseConfig) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(dbCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 25
	if dbCfg.MaxConns > 0 {
		cfg.MaxConns = dbCfg.MaxConns
	}
	cfg.MinConns = dbCfg.MinConns
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// Migrate применяет Schema.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы (health-check)
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}
