package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"kycgate/internal/catalog/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresServiceStore persists catalog services.
type PostgresServiceStore struct {
	db *sql.DB
}

func NewPostgresServiceStore(db *sql.DB) *PostgresServiceStore {
	return &PostgresServiceStore{db: db}
}

const serviceColumns = `id, name, category, subcategory, price, service_key, active, created_at`

func (s *PostgresServiceStore) Create(ctx context.Context, svc *models.Service) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		svc.ID.String(), svc.Name, svc.Category, nullString(svc.Subcategory),
		svc.Price, svc.ServiceKey, svc.Active, svc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service %s: %w", svc.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (s *PostgresServiceStore) Update(ctx context.Context, svc *models.Service) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $2, category = $3, subcategory = $4, price = $5, service_key = $6, active = $7
		WHERE id = $1`,
		svc.ID.String(), svc.Name, svc.Category, nullString(svc.Subcategory),
		svc.Price, svc.ServiceKey, svc.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service key %s: %w", svc.ServiceKey, sentinel.ErrConflict)
		}
		return fmt.Errorf("update service: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update service rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresServiceStore) FindByID(ctx context.Context, serviceID id.ServiceID) (*models.Service, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, serviceID.String())
	return scanService(row)
}

func (s *PostgresServiceStore) FindByKey(ctx context.Context, serviceKey string) (*models.Service, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE service_key = $1`, serviceKey)
	return scanService(row)
}

func (s *PostgresServiceStore) List(ctx context.Context) ([]*models.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc         models.Service
		serviceID   string
		subcategory sql.NullString
	)
	err := row.Scan(&serviceID, &svc.Name, &svc.Category, &subcategory, &svc.Price, &svc.ServiceKey, &svc.Active, &svc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan service: %w", err)
	}
	svc.ID = id.ServiceID(serviceID)
	svc.Subcategory = subcategory.String
	return &svc, nil
}

// PostgresPlanStore persists pricing plans; included ids are a TEXT[] column.
type PostgresPlanStore struct {
	db *sql.DB
}

func NewPostgresPlanStore(db *sql.DB) *PostgresPlanStore {
	return &PostgresPlanStore{db: db}
}

func (s *PostgresPlanStore) Create(ctx context.Context, plan *models.PricingPlan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_plans (name, included_service_ids, price, duration_days, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		plan.Name, pq.Array(serviceIDStrings(plan.IncludedServiceIDs)), plan.Price, plan.DurationDays, plan.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("plan %s: %w", plan.Name, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *PostgresPlanStore) FindByName(ctx context.Context, name string) (*models.PricingPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, included_service_ids, price, duration_days, created_at
		FROM pricing_plans WHERE name = $1`, name)
	return scanPlan(row)
}

func (s *PostgresPlanStore) List(ctx context.Context) ([]*models.PricingPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, included_service_ids, price, duration_days, created_at
		FROM pricing_plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*models.PricingPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return out, nil
}

func scanPlan(row rowScanner) (*models.PricingPlan, error) {
	var (
		plan models.PricingPlan
		ids  []string
	)
	err := row.Scan(&plan.Name, pq.Array(&ids), &plan.Price, &plan.DurationDays, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	plan.IncludedServiceIDs = make([]id.ServiceID, 0, len(ids))
	for _, s := range ids {
		plan.IncludedServiceIDs = append(plan.IncludedServiceIDs, id.ServiceID(s))
	}
	return &plan, nil
}

func serviceIDStrings(ids []id.ServiceID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
