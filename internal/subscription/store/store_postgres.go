package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

// PostgresStore persists subscriptions. It joins the transaction carried in
// the context when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const subscriptionColumns = `id, user_id, category, expires_at, is_promoted, revoked_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, sub *models.Subscription) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(sub.ID), uuid.UUID(sub.UserID), sub.Category, nullTime(sub.ExpiresAt),
		sub.IsPromoted, nullTime(sub.RevokedAt), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("subscription %s: %w", sub.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, sub *models.Subscription) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE subscriptions
		SET expires_at = $3, is_promoted = $4, revoked_at = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2`,
		uuid.UUID(sub.ID), uuid.UUID(sub.UserID), nullTime(sub.ExpiresAt),
		sub.IsPromoted, nullTime(sub.RevokedAt), sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByID locks the row when called inside a transaction so concurrent
// extend and revoke calls serialize.
func (s *PostgresStore) FindByID(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	if _, ok := tx.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(subID))
	return scanSubscription(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Subscription, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE user_id = $1
		ORDER BY created_at DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		subID     uuid.UUID
		userID    uuid.UUID
		expiresAt sql.NullTime
		revokedAt sql.NullTime
	)
	err := row.Scan(&subID, &userID, &sub.Category, &expiresAt, &sub.IsPromoted, &revokedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.ID = id.SubscriptionID(subID)
	sub.UserID = id.UserID(userID)
	if expiresAt.Valid {
		t := expiresAt.Time
		sub.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		sub.RevokedAt = &t
	}
	return &sub, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
