package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

var subscriptionRowColumns = []string{"id", "user_id", "category", "expires_at", "is_promoted", "revoked_at", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), db, mock
}

func TestPostgresStore_ListByUser(t *testing.T) {
	store, _, mock := newMockStore(t)
	userID := uuid.New()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	expiry := created.Add(30 * 24 * time.Hour)

	rows := sqlmock.NewRows(subscriptionRowColumns).
		AddRow(uuid.NewString(), userID.String(), "Identity Plan", expiry, false, nil, created, created).
		AddRow(uuid.NewString(), userID.String(), "bvn", nil, true, created, created, created)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions WHERE user_id = $1`)).
		WithArgs(userID).
		WillReturnRows(rows)

	subs, err := store.ListByUser(context.Background(), id.UserID(userID))
	require.NoError(t, err)
	require.Len(t, subs, 2)

	require.NotNil(t, subs[0].ExpiresAt)
	assert.Equal(t, expiry, *subs[0].ExpiresAt)
	assert.False(t, subs[0].IsRevoked())

	assert.True(t, subs[1].NeverExpires())
	assert.True(t, subs[1].IsPromoted)
	assert.True(t, subs[1].IsRevoked())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIDInsideTxLocksRow(t *testing.T) {
	store, db, mock := newMockStore(t)
	subID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(subID).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))
	mock.ExpectRollback()

	err := tx.NewSQLTransactor(db).RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := store.FindByID(ctx, id.SubscriptionID(subID))
		return err
	})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMissing(t *testing.T) {
	store, _, mock := newMockStore(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sub, err := models.NewSubscription(id.SubscriptionID(uuid.New()), id.UserID(uuid.New()), "bvn", nil, false, now)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(uuid.UUID(sub.ID), uuid.UUID(sub.UserID), sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Update(context.Background(), sub), sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, _, mock := newMockStore(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sub, err := models.NewSubscription(id.SubscriptionID(uuid.New()), id.UserID(uuid.New()), "bvn", nil, true, now)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(uuid.UUID(sub.ID), uuid.UUID(sub.UserID), "bvn", nil, true, nil, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Create(context.Background(), sub))
	require.NoError(t, mock.ExpectationsWereMet())
}
