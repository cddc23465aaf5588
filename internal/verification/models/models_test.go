package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/verification"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

func TestNewRecord(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	outcome := verification.Classify(verification.DecodeEnvelope([]byte(`{"data":{"code":"1001","message":"no such PAN"}}`)))
	recordID := id.VerificationID(uuid.New())
	userID := id.UserID(uuid.New())

	tests := []struct {
		name    string
		build   func() (*Record, error)
		wantErr bool
	}{
		{name: "valid", build: func() (*Record, error) {
			return NewRecord(recordID, userID, "pan-basic", "pan", "abc", outcome, "Chrome on Windows", now)
		}},
		{name: "nil record id", wantErr: true, build: func() (*Record, error) {
			return NewRecord(id.VerificationID{}, userID, "pan-basic", "pan", "abc", outcome, "", now)
		}},
		{name: "nil user", wantErr: true, build: func() (*Record, error) {
			return NewRecord(recordID, id.UserID{}, "pan-basic", "pan", "abc", outcome, "", now)
		}},
		{name: "missing service key", wantErr: true, build: func() (*Record, error) {
			return NewRecord(recordID, userID, "pan-basic", " ", "abc", outcome, "", now)
		}},
		{name: "missing hash", wantErr: true, build: func() (*Record, error) {
			return NewRecord(recordID, userID, "pan-basic", "pan", "", outcome, "", now)
		}},
		{name: "unknown classification", wantErr: true, build: func() (*Record, error) {
			return NewRecord(recordID, userID, "pan-basic", "pan", "abc", verification.Outcome{Classification: "maybe"}, "", now)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.build()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, verification.Failure, rec.Classification)
			assert.Equal(t, "no such PAN", rec.Reason)
			assert.Equal(t, "1001", rec.ProviderCode)
			assert.Equal(t, outcome, rec.Outcome())
		})
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	rec := &Record{RawEnvelope: []byte(`{"a":1}`)}
	c := rec.Clone()
	c.RawEnvelope[0] = '['
	assert.Equal(t, byte('{'), rec.RawEnvelope[0])
}
