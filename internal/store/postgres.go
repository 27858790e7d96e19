package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps the keyspace in a single kv table with UPSERT writes.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	cfg.MinConns = 1
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS kv_store (
			kv_key     TEXT PRIMARY KEY,
			kv_value   BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_store (kv_key, kv_value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (kv_key) DO UPDATE SET
			kv_value = EXCLUDED.kv_value,
			updated_at = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx, q, key, value)
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT kv_value FROM kv_store WHERE kv_key = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v []byte
	err := p.pool.QueryRow(ctx, q, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE kv_key = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.pool.Exec(ctx, q, key)
	return err
}

func (p *Postgres) Close() {
	p.pool.Close()
}
