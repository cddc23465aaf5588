package models

import (
	"encoding/json"
	"strings"
	"time"

	"kycgate/internal/verification"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Record is one row of a user's verification history. SubjectHash replaces the
// raw request parameters.
type Record struct {
	ID             id.VerificationID           `json:"id"`
	UserID         id.UserID                   `json:"user_id"`
	ServiceID      id.ServiceID                `json:"service_id"`
	ServiceKey     string                      `json:"service_key"`
	SubjectHash    string                      `json:"subject_hash"`
	Classification verification.Classification `json:"classification"`
	Reason         string                      `json:"reason,omitempty"`
	Cause          verification.Cause          `json:"cause,omitempty"`
	ProviderCode   string                      `json:"provider_code,omitempty"`
	RawEnvelope    json.RawMessage             `json:"raw_envelope,omitempty"`
	Device         string                      `json:"device,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

func NewRecord(
	recordID id.VerificationID,
	userID id.UserID,
	serviceID id.ServiceID,
	serviceKey string,
	subjectHash string,
	outcome verification.Outcome,
	device string,
	now time.Time,
) (*Record, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id cannot be nil")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record user id cannot be nil")
	}
	if serviceID.IsNil() || strings.TrimSpace(serviceKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record must name a service")
	}
	if subjectHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record subject hash cannot be empty")
	}
	switch outcome.Classification {
	case verification.Success, verification.Failure, verification.Inconclusive:
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record classification is unknown")
	}

	return &Record{
		ID:             recordID,
		UserID:         userID,
		ServiceID:      serviceID,
		ServiceKey:     serviceKey,
		SubjectHash:    subjectHash,
		Classification: outcome.Classification,
		Reason:         outcome.Reason,
		Cause:          outcome.Cause,
		ProviderCode:   outcome.ProviderCode,
		RawEnvelope:    append(json.RawMessage(nil), outcome.RawEnvelope...),
		Device:         device,
		CreatedAt:      now,
	}, nil
}

// Outcome rebuilds the classifier result stored on the record.
func (r *Record) Outcome() verification.Outcome {
	return verification.Outcome{
		Classification: r.Classification,
		Reason:         r.Reason,
		Cause:          r.Cause,
		ProviderCode:   r.ProviderCode,
		RawEnvelope:    r.RawEnvelope,
	}
}

func (r *Record) Clone() *Record {
	c := *r
	c.RawEnvelope = append(json.RawMessage(nil), r.RawEnvelope...)
	return &c
}
