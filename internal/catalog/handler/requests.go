package handler

import (
	"strings"

	"kycgate/internal/catalog/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// CreateServiceRequest is the body of POST /admin/services.
type CreateServiceRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Price       float64 `json:"price"`
	ServiceKey  string  `json:"service_key"`

	parsedID id.ServiceID
}

func (r *CreateServiceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Name) > 200 || len(r.Category) > 100 || len(r.Subcategory) > 100 {
		return dErrors.New(dErrors.CodeValidation, "name, category or subcategory is too long")
	}

	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.ServiceKey = strings.TrimSpace(r.ServiceKey)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if r.ServiceKey == "" {
		return dErrors.New(dErrors.CodeValidation, "service_key is required")
	}
	if r.Price < 0 {
		return dErrors.New(dErrors.CodeValidation, "price must be non-negative")
	}

	if raw := strings.TrimSpace(r.ID); raw != "" {
		parsed, err := id.ParseServiceID(raw)
		if err != nil {
			return err
		}
		r.parsedID = parsed
	}
	return nil
}

// Command converts the validated request into a service command.
func (r *CreateServiceRequest) Command() service.CreateServiceCommand {
	return service.CreateServiceCommand{
		ID:          r.parsedID,
		Name:        r.Name,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Price:       r.Price,
		ServiceKey:  r.ServiceKey,
	}
}

// UpdateServiceRequest is the body of PATCH /admin/services/{id}. Only the
// active flag is mutable.
type UpdateServiceRequest struct {
	Active *bool `json:"active"`
}

func (r *UpdateServiceRequest) Validate() error {
	if r == nil || r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "active is required")
	}
	return nil
}

// CreatePlanRequest is the body of POST /admin/plans.
type CreatePlanRequest struct {
	Name               string   `json:"name"`
	IncludedServiceIDs []string `json:"included_service_ids"`
	Price              float64  `json:"price"`
	DurationDays       int      `json:"duration_days"`
}

func (r *CreatePlanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.IncludedServiceIDs) > 500 {
		return dErrors.New(dErrors.CodeValidation, "too many included services")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.IncludedServiceIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "included_service_ids must not be empty")
	}
	if r.Price < 0 {
		return dErrors.New(dErrors.CodeValidation, "price must be non-negative")
	}
	if r.DurationDays <= 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_days must be positive")
	}
	return nil
}
