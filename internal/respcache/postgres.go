package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a database-backed response cache, shared across processes.
// Writes are idempotent upserts so concurrent writers for the same key are
// harmless.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgres creates a Postgres-backed response cache.
// A zero ttl falls back to DefaultTTL.
func NewPostgres(pool *pgxpool.Pool, ttl time.Duration) *Postgres {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Postgres{pool: pool, ttl: ttl}
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, namespace string, keyData any, out any) (bool, error) {
	key, err := Key(namespace, keyData)
	if err != nil {
		return false, err
	}

	var data []byte
	err = p.pool.QueryRow(ctx,
		`SELECT value FROM response_cache WHERE cache_key = $1 AND expires_at > now()`,
		key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query response cache: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

// Set implements Cache.
func (p *Postgres) Set(ctx context.Context, namespace string, keyData any, value any) error {
	key, err := Key(namespace, keyData)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO response_cache (cache_key, value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cache_key)
		 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, data, time.Now().Add(p.ttl),
	)
	if err != nil {
		return fmt.Errorf("store response cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries. Intended to be run periodically by the
// worker.
func (p *Postgres) Cleanup(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM response_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup response cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
