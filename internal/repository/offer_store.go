package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"CrediPulse/internal/domain/models"
	"CrediPulse/internal/domain/repository"
)

const (
	insertOfferSQL = `INSERT INTO credit_limits (
        id,
        user_id,
        status,
        credit_limit,
        interest_rate,
        credit_type,
        expires_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	selectOfferSQL = `SELECT
        id, user_id, status, credit_limit, interest_rate, credit_type,
        expires_at, activated_at, notified_at, created_at, updated_at
    FROM credit_limits
    WHERE id = $1;`

	hasOpenOfferSQL = `SELECT EXISTS (
        SELECT 1 FROM credit_limits
        WHERE user_id = $1
          AND status = 'offered'
          AND expires_at > $2
    );`

	activateOfferSQL = `UPDATE credit_limits
    SET status = 'active', activated_at = NOW(), updated_at = NOW()
    WHERE id = $1
      AND user_id = $2
      AND status = 'offered'
      AND expires_at > $3
    RETURNING
        id, user_id, status, credit_limit, interest_rate, credit_type,
        expires_at, activated_at, notified_at, created_at, updated_at;`

	expireOfferSQL = `UPDATE credit_limits
    SET status = 'expired', updated_at = NOW()
    WHERE id = $1
      AND status = 'offered';`

	markNotifiedSQL = `UPDATE credit_limits
    SET notified_at = NOW(), updated_at = NOW()
    WHERE id = $1
      AND notified_at IS NULL;`

	listOffersSQL = `SELECT
        id, user_id, status, credit_limit, interest_rate, credit_type,
        expires_at, activated_at, notified_at, created_at, updated_at
    FROM credit_limits
    WHERE user_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3;`

	countOffersSQL = `SELECT COUNT(*) FROM credit_limits WHERE user_id = $1;`
)

// PostgresOfferStore implements OfferStore on pgx. Lifecycle transitions
// ride on conditional UPDATEs so they are per-offer atomic and idempotent
// with no in-process locking.
type PostgresOfferStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOfferStore creates the Postgres-backed offer store.
func NewPostgresOfferStore(pool *pgxpool.Pool) repository.OfferStore {
	return &PostgresOfferStore{pool: pool}
}

func (s *PostgresOfferStore) Create(ctx context.Context, offer *models.CreditOffer) error {
	_, err := s.pool.Exec(ctx, insertOfferSQL,
		offer.ID,
		offer.UserID,
		offer.Status,
		offer.CreditLimit,
		offer.InterestRate,
		offer.CreditType,
		offer.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert offer %s: %w", offer.ID, err)
	}
	return nil
}

func (s *PostgresOfferStore) Get(ctx context.Context, offerID string) (*models.CreditOffer, error) {
	row := s.pool.QueryRow(ctx, selectOfferSQL, offerID)
	offer, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select offer %s: %w", offerID, err)
	}
	return offer, nil
}

func (s *PostgresOfferStore) HasOpenOffer(ctx context.Context, userID string, now time.Time) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, hasOpenOfferSQL, userID, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("query open offer user=%s: %w", userID, err)
	}
	return exists, nil
}

// Activate performs the offered -> active transition as a single
// conditional UPDATE. When zero rows match, the current row is inspected
// once to classify the failure for the caller.
func (s *PostgresOfferStore) Activate(ctx context.Context, offerID, userID string, now time.Time) (*models.CreditOffer, error) {
	row := s.pool.QueryRow(ctx, activateOfferSQL, offerID, userID, now)
	offer, err := scanOffer(row)
	if err == nil {
		return offer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("activate offer %s: %w", offerID, err)
	}

	current, err := s.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.UserID != userID:
		return nil, repository.ErrOfferNotOwned
	case current.Status == models.OfferStatusActive:
		return current, repository.ErrOfferAlreadyActive
	case current.Status == models.OfferStatusOffered && !current.ExpiresAt.After(now):
		// Lazily retire the row so listings stop showing it as open.
		if _, err := s.pool.Exec(ctx, expireOfferSQL, offerID); err != nil {
			return nil, fmt.Errorf("expire offer %s: %w", offerID, err)
		}
		return nil, repository.ErrOfferExpired
	default:
		return nil, repository.ErrOfferNotActivatable
	}
}

func (s *PostgresOfferStore) MarkNotified(ctx context.Context, offerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, markNotifiedSQL, offerID)
	if err != nil {
		return false, fmt.Errorf("mark notified %s: %w", offerID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresOfferStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.CreditOffer, int64, error) {
	rows, err := s.pool.Query(ctx, listOffersSQL, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list offers user=%s: %w", userID, err)
	}
	defer rows.Close()

	var offers []*models.CreditOffer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan offer row: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.pool.QueryRow(ctx, countOffersSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count offers user=%s: %w", userID, err)
	}
	return offers, total, nil
}

func scanOffer(row pgx.Row) (*models.CreditOffer, error) {
	var o models.CreditOffer
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.CreditLimit,
		&o.InterestRate,
		&o.CreditType,
		&o.ExpiresAt,
		&o.ActivatedAt,
		&o.NotifiedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
