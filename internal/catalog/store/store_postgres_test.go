package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/catalog/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

func newMock(t *testing.T) (*PostgresServiceStore, *PostgresPlanStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresServiceStore(db), NewPostgresPlanStore(db), mock
}

var serviceRowColumns = []string{"id", "name", "category", "subcategory", "price", "service_key", "active", "created_at"}

func TestPostgresServiceStore_FindByKey(t *testing.T) {
	services, _, mock := newMock(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(serviceRowColumns).
		AddRow("svc-1", "BVN Lookup", "Identity", nil, 100.0, "bvn", true, created)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM services WHERE service_key = $1`)).
		WithArgs("bvn").
		WillReturnRows(rows)

	svc, err := services.FindByKey(context.Background(), "bvn")
	require.NoError(t, err)
	assert.Equal(t, id.ServiceID("svc-1"), svc.ID)
	assert.Empty(t, svc.Subcategory)
	assert.Equal(t, 100.0, svc.Price)
	assert.True(t, svc.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresServiceStore_NotFound(t *testing.T) {
	services, _, mock := newMock(t)
	mock.ExpectQuery(`FROM services WHERE id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(serviceRowColumns))

	_, err := services.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresServiceStore_CreateConflict(t *testing.T) {
	services, _, mock := newMock(t)
	svc, err := models.NewService("svc-1", "BVN", "Identity", "bvn", 100, "bvn", time.Now())
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO services`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err = services.Create(context.Background(), svc)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestPostgresServiceStore_UpdateMissing(t *testing.T) {
	services, _, mock := newMock(t)
	svc, err := models.NewService("svc-1", "BVN", "Identity", "", 100, "bvn", time.Now())
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE services`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = services.Update(context.Background(), svc)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresServiceStore_ListError(t *testing.T) {
	services, _, mock := newMock(t)
	mock.ExpectQuery(`FROM services ORDER BY`).WillReturnError(errors.New("boom"))

	_, err := services.List(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestPostgresPlanStore_List(t *testing.T) {
	_, plans, mock := newMock(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"name", "included_service_ids", "price", "duration_days", "created_at"}).
		AddRow("Banking Plan", "{svc-3}", 3000.0, 30, created).
		AddRow("Identity Plan", "{svc-1,svc-2}", 5000.0, 30, created)
	mock.ExpectQuery(`FROM pricing_plans ORDER BY name`).WillReturnRows(rows)

	list, err := plans.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []id.ServiceID{"svc-1", "svc-2"}, list[1].IncludedServiceIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlanStore_Create(t *testing.T) {
	_, plans, mock := newMock(t)
	plan, err := models.NewPricingPlan("Identity Plan", []string{"svc-1"}, 5000, 30, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO pricing_plans`).
		WithArgs("Identity Plan", sqlmock.AnyArg(), 5000.0, 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, plans.Create(context.Background(), plan))
	require.NoError(t, mock.ExpectationsWereMet())
}
