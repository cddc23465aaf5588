package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/coupon/models"
	"kycgate/pkg/platform/sentinel"
)

var couponRowColumns = []string{"code", "discount_type", "discount_value", "expiry_date", "max_uses", "times_used", "min_amount", "applicable_categories", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_FindByCode(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM coupons WHERE code = $1`)).
		WithArgs("SAVE20").
		WillReturnRows(sqlmock.NewRows(couponRowColumns).
			AddRow("SAVE20", "percentage", 20.0, nil, int64(10), 3, 500.0, "{GSTIN,\"Banking Plan\"}", created))

	c, err := store.FindByCode(context.Background(), "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, models.DiscountPercentage, c.Discount.Type)
	assert.True(t, c.ExpiryDate.IsZero())
	require.NotNil(t, c.MaxUses)
	assert.Equal(t, 10, *c.MaxUses)
	assert.Equal(t, 3, c.TimesUsed)
	assert.Equal(t, []string{"GSTIN", "Banking Plan"}, c.ApplicableCategories)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementUsage(t *testing.T) {
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("conditional update succeeds", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE code = $1 AND (max_uses IS NULL OR times_used < max_uses)`)).
			WithArgs("SAVE20").
			WillReturnRows(sqlmock.NewRows(couponRowColumns).
				AddRow("SAVE20", "fixed", 100.0, nil, nil, 1, 0.0, "{}", created))

		c, err := store.IncrementUsage(context.Background(), "SAVE20")
		require.NoError(t, err)
		assert.Equal(t, 1, c.TimesUsed)
		assert.Nil(t, c.MaxUses)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cap reached", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE coupons`).
			WithArgs("SAVE20").
			WillReturnRows(sqlmock.NewRows(couponRowColumns))
		mock.ExpectQuery(`SELECT .* FROM coupons WHERE code`).
			WithArgs("SAVE20").
			WillReturnRows(sqlmock.NewRows(couponRowColumns).
				AddRow("SAVE20", "fixed", 100.0, nil, int64(1), 1, 0.0, "{}", created))

		_, err := store.IncrementUsage(context.Background(), "SAVE20")
		assert.ErrorIs(t, err, sentinel.ErrExhausted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing coupon", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`UPDATE coupons`).
			WithArgs("NOPE").
			WillReturnRows(sqlmock.NewRows(couponRowColumns))
		mock.ExpectQuery(`SELECT .* FROM coupons WHERE code`).
			WithArgs("NOPE").
			WillReturnRows(sqlmock.NewRows(couponRowColumns))

		_, err := store.IncrementUsage(context.Background(), "NOPE")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	c, err := models.NewCoupon("welcome", models.Discount{Type: models.DiscountFixed, Value: 50}, time.Time{}, nil, 0, nil, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO coupons`).
		WithArgs("WELCOME", "fixed", 50.0, nil, nil, 0, 0.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Create(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}
