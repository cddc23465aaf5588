package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kycgate/internal/verification"
	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore writes history through a pgx pool. History is append-only and
// never joins a catalog transaction, so it does not go through database/sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO verification_records (
			id, user_id, service_id, service_key, subject_hash, classification,
			reason, cause, provider_code, raw_envelope, device, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, query,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.UserID),
		rec.ServiceID.String(),
		rec.ServiceKey,
		rec.SubjectHash,
		string(rec.Classification),
		rec.Reason,
		string(rec.Cause),
		rec.ProviderCode,
		[]byte(rec.RawEnvelope),
		rec.Device,
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Record, error) {
	query := `
		SELECT id, user_id, service_id, service_key, subject_hash, classification,
		       reason, cause, provider_code, raw_envelope, device, created_at
		FROM verification_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{uuid.UUID(userID)}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var (
			recordID, owner                  uuid.UUID
			serviceID, classification, cause string
			rec                              models.Record
			raw                              []byte
			createdAt                        time.Time
		)
		if err := rows.Scan(&recordID, &owner, &serviceID, &rec.ServiceKey, &rec.SubjectHash, &classification,
			&rec.Reason, &cause, &rec.ProviderCode, &raw, &rec.Device, &createdAt); err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		rec.ID = id.VerificationID(recordID)
		rec.UserID = id.UserID(owner)
		rec.ServiceID = id.ServiceID(serviceID)
		rec.Classification = verification.Classification(classification)
		rec.Cause = verification.Cause(cause)
		rec.RawEnvelope = raw
		rec.CreatedAt = createdAt
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification records: %w", err)
	}
	return out, nil
}
