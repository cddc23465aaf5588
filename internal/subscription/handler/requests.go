package handler

import (
	"strings"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// GrantRequest is the body of POST /admin/users/{userID}/subscriptions.
// Omitting expires_at grants open-ended access.
type GrantRequest struct {
	Category  string     `json:"category"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Promoted  bool       `json:"is_promoted"`
}

func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Category) > 200 {
		return dErrors.New(dErrors.CodeValidation, "category must be at most 200 characters")
	}
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	return nil
}

// ExtendRequest is the body of PATCH /admin/subscriptions/{id}.
type ExtendRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

func (r *ExtendRequest) Validate() error {
	if r == nil || r.ExpiresAt == nil || r.ExpiresAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "expires_at is required")
	}
	return nil
}
