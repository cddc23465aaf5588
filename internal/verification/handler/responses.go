package handler

import (
	"encoding/json"
	"time"

	"kycgate/internal/entitlement"
	"kycgate/internal/verification/models"
)

type RecordResponse struct {
	ID             string          `json:"id"`
	ServiceID      string          `json:"service_id"`
	ServiceKey     string          `json:"service_key"`
	Classification string          `json:"classification"`
	Success        bool            `json:"success"`
	Reason         string          `json:"reason,omitempty"`
	Cause          string          `json:"cause,omitempty"`
	ProviderCode   string          `json:"provider_code,omitempty"`
	Device         string          `json:"device,omitempty"`
	RawEnvelope    json.RawMessage `json:"raw_envelope,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type HistoryResponse struct {
	Verifications []*RecordResponse `json:"verifications"`
}

// DeniedResponse extends the error envelope with the purchase that would
// unlock the service.
type DeniedResponse struct {
	Error            string                      `json:"error"`
	ErrorDescription string                      `json:"error_description,omitempty"`
	ServiceID        string                      `json:"service_id"`
	Target           *entitlement.PurchaseTarget `json:"purchase_target,omitempty"`
}

func toRecordResponse(rec *models.Record, withEnvelope bool) *RecordResponse {
	resp := &RecordResponse{
		ID:             rec.ID.String(),
		ServiceID:      rec.ServiceID.String(),
		ServiceKey:     rec.ServiceKey,
		Classification: string(rec.Classification),
		Success:        rec.Outcome().IsSuccess(),
		Reason:         rec.Reason,
		Cause:          string(rec.Cause),
		ProviderCode:   rec.ProviderCode,
		Device:         rec.Device,
		CreatedAt:      rec.CreatedAt,
	}
	if withEnvelope && len(rec.RawEnvelope) > 0 && json.Valid(rec.RawEnvelope) {
		resp.RawEnvelope = rec.RawEnvelope
	}
	return resp
}

func toHistoryResponse(records []*models.Record) *HistoryResponse {
	out := make([]*RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec, false))
	}
	return &HistoryResponse{Verifications: out}
}
