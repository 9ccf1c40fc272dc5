package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrPoolNotConfigured indicates the postgres store has no connection pool.
var ErrPoolNotConfigured = errors.New("history: pool not configured")

const (
	createHistoryTableSQL = `CREATE TABLE IF NOT EXISTS consensus_history (
        id         BIGSERIAL PRIMARY KEY,
        asset      TEXT        NOT NULL,
        price      NUMERIC     NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS consensus_history_asset_id_idx
        ON consensus_history (asset, id DESC);`

	insertPriceSQL = `INSERT INTO consensus_history (asset, price) VALUES ($1, $2);`

	evictOldSQL = `DELETE FROM consensus_history
    WHERE asset = $1
      AND id NOT IN (
        SELECT id FROM consensus_history
        WHERE asset = $1
        ORDER BY id DESC
        LIMIT $2
      );`

	selectWindowSQL = `SELECT price FROM (
        SELECT id, price FROM consensus_history
        WHERE asset = $1
        ORDER BY id DESC
        LIMIT $2
    ) recent ORDER BY id ASC;`

	advisoryLockSQL = `SELECT pg_advisory_xact_lock(hashtext($1));`
)

// PostgresStore persists the consensus history in PostgreSQL so the window
// survives restarts. Appends for the same asset serialize on a transaction
// advisory lock keyed by the asset.
type PostgresStore struct {
	pool   *pgxpool.Pool
	window int
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects a pgx pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, window int) (*PostgresStore, error) {
	if window <= 0 {
		window = 30
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse history dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if _, err := pool.Exec(ctx, createHistoryTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &PostgresStore{pool: pool, window: window}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Append records a consensus price and evicts entries beyond the window.
func (s *PostgresStore) Append(ctx context.Context, asset string, price decimal.Decimal) error {
	if s.pool == nil {
		return ErrPoolNotConfigured
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Single-writer discipline per asset
	if _, err := tx.Exec(ctx, advisoryLockSQL, asset); err != nil {
		return fmt.Errorf("acquire history lock: %w", err)
	}

	if _, err := tx.Exec(ctx, insertPriceSQL, asset, price.String()); err != nil {
		return fmt.Errorf("insert consensus price: %w", err)
	}

	if _, err := tx.Exec(ctx, evictOldSQL, asset, s.window); err != nil {
		return fmt.Errorf("evict old history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit history append: %w", err)
	}
	return nil
}

// Window returns up to n most recent prices, oldest first.
func (s *PostgresStore) Window(ctx context.Context, asset string, n int) ([]decimal.Decimal, error) {
	if s.pool == nil {
		return nil, ErrPoolNotConfigured
	}
	if n <= 0 || n > s.window {
		n = s.window
	}

	rows, err := s.pool.Query(ctx, selectWindowSQL, asset, n)
	if err != nil {
		return nil, fmt.Errorf("query history window: %w", err)
	}
	defer rows.Close()

	prices := make([]decimal.Decimal, 0, n)
	for rows.Next() {
		var priceStr string
		if err := rows.Scan(&priceStr); err != nil {
			return nil, fmt.Errorf("scan history price: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse history price: %w", err)
		}
		prices = append(prices, price)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return prices, nil
}
