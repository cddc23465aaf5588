package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"kycgate/internal/coupon/models"
	"kycgate/pkg/platform/sentinel"
)

// PostgresStore persists coupons. Redemption is a single conditional UPDATE so
// concurrent redeemers can never push times_used past max_uses.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const couponColumns = `code, discount_type, discount_value, expiry_date, max_uses, times_used, min_amount, applicable_categories, created_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Coupon) error {
	categories := c.ApplicableCategories
	if categories == nil {
		categories = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.Code, string(c.Discount.Type), c.Discount.Value, nullTime(c.ExpiryDate), nullInt(c.MaxUses),
		c.TimesUsed, c.MinAmount, pq.Array(categories), c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("coupon %s: %w", c.Code, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	return scanCoupon(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var out []*models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, code string) (*models.Coupon, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE coupons
		SET times_used = times_used + 1
		WHERE code = $1 AND (max_uses IS NULL OR times_used < max_uses)
		RETURNING `+couponColumns, code)
	c, err := scanCoupon(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	// No row updated: either the coupon is missing or already at its cap.
	if _, findErr := s.FindByCode(ctx, code); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrExhausted
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var (
		c            models.Coupon
		discountType string
		expiry       sql.NullTime
		maxUses      sql.NullInt64
		categories   []string
	)
	err := row.Scan(&c.Code, &discountType, &c.Discount.Value, &expiry, &maxUses,
		&c.TimesUsed, &c.MinAmount, pq.Array(&categories), &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	c.Discount.Type = models.DiscountType(discountType)
	if expiry.Valid {
		c.ExpiryDate = expiry.Time
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	c.ApplicableCategories = categories
	return &c, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
