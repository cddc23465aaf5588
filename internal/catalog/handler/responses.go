package handler

import (
	"time"

	"kycgate/internal/catalog/models"
)

type ServiceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Price       float64   `json:"price"`
	ServiceKey  string    `json:"service_key"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
}

type PlanResponse struct {
	Name               string   `json:"name"`
	IncludedServiceIDs []string `json:"included_service_ids"`
	Price              float64  `json:"price"`
	DurationDays       int      `json:"duration_days"`
}

type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
}

func toServiceResponse(svc *models.Service) ServiceResponse {
	return ServiceResponse{
		ID:          svc.ID.String(),
		Name:        svc.Name,
		Category:    svc.Category,
		Subcategory: svc.Subcategory,
		Price:       svc.Price,
		ServiceKey:  svc.ServiceKey,
		Active:      svc.Active,
		CreatedAt:   svc.CreatedAt,
	}
}

func toServiceList(services []*models.Service) ServiceListResponse {
	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, toServiceResponse(svc))
	}
	return ServiceListResponse{Services: out}
}

func toPlanResponse(plan *models.PricingPlan) PlanResponse {
	ids := make([]string, 0, len(plan.IncludedServiceIDs))
	for _, serviceID := range plan.IncludedServiceIDs {
		ids = append(ids, serviceID.String())
	}
	return PlanResponse{
		Name:               plan.Name,
		IncludedServiceIDs: ids,
		Price:              plan.Price,
		DurationDays:       plan.DurationDays,
	}
}

func toPlanList(plans []*models.PricingPlan) PlanListResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanResponse(plan))
	}
	return PlanListResponse{Plans: out}
}
