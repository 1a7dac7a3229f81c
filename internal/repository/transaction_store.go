package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"CrediPulse/internal/domain/repository"
)

const (
	insertTransactionSQL = `INSERT INTO transactions (user_id, amount) VALUES ($1, $2);`

	transactionStatsSQL = `SELECT
        COUNT(*),
        COALESCE(AVG(amount), 0)
    FROM transactions
    WHERE user_id = $1
      AND created_at >= $2;`
)

// PostgresTransactionStore implements TransactionStore on pgx.
type PostgresTransactionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTransactionStore creates the Postgres-backed transaction store.
func NewPostgresTransactionStore(pool *pgxpool.Pool) repository.TransactionStore {
	return &PostgresTransactionStore{pool: pool}
}

func (s *PostgresTransactionStore) Record(ctx context.Context, userID string, amount decimal.Decimal) error {
	if _, err := s.pool.Exec(ctx, insertTransactionSQL, userID, amount); err != nil {
		return fmt.Errorf("insert transaction user=%s: %w", userID, err)
	}
	return nil
}

func (s *PostgresTransactionStore) Stats(ctx context.Context, userID string, from time.Time) (int64, decimal.Decimal, error) {
	var count int64
	var avg decimal.Decimal
	if err := s.pool.QueryRow(ctx, transactionStatsSQL, userID, from).Scan(&count, &avg); err != nil {
		return 0, decimal.Zero, fmt.Errorf("query transaction stats user=%s: %w", userID, err)
	}
	return count, avg, nil
}
