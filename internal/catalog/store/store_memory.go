package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kycgate/internal/catalog/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryServiceStore keeps catalog services keyed by id with a unique
// service-key index.
type InMemoryServiceStore struct {
	mu    sync.RWMutex
	byID  map[id.ServiceID]*models.Service
	byKey map[string]id.ServiceID
}

func NewInMemoryServiceStore() *InMemoryServiceStore {
	return &InMemoryServiceStore{
		byID:  make(map[id.ServiceID]*models.Service),
		byKey: make(map[string]id.ServiceID),
	}
}

func (s *InMemoryServiceStore) Create(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[svc.ID]; ok {
		return fmt.Errorf("service %s: %w", svc.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byKey[svc.ServiceKey]; ok {
		return fmt.Errorf("service key %s: %w", svc.ServiceKey, sentinel.ErrConflict)
	}
	cp := *svc
	s.byID[svc.ID] = &cp
	s.byKey[svc.ServiceKey] = svc.ID
	return nil
}

func (s *InMemoryServiceStore) Update(_ context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[svc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.ServiceKey != svc.ServiceKey {
		if _, taken := s.byKey[svc.ServiceKey]; taken {
			return fmt.Errorf("service key %s: %w", svc.ServiceKey, sentinel.ErrConflict)
		}
		delete(s.byKey, existing.ServiceKey)
		s.byKey[svc.ServiceKey] = svc.ID
	}
	cp := *svc
	s.byID[svc.ID] = &cp
	return nil
}

func (s *InMemoryServiceStore) FindByID(_ context.Context, serviceID id.ServiceID) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.byID[serviceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s *InMemoryServiceStore) FindByKey(_ context.Context, serviceKey string) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	serviceID, ok := s.byKey[serviceKey]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[serviceID]
	return &cp, nil
}

// List returns every service ordered by category then name.
func (s *InMemoryServiceStore) List(_ context.Context) ([]*models.Service, error) {
	s.mu.RLock()
	out := make([]*models.Service, 0, len(s.byID))
	for _, svc := range s.byID {
		cp := *svc
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// InMemoryPlanStore keeps pricing plans keyed by name.
type InMemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*models.PricingPlan
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{plans: make(map[string]*models.PricingPlan)}
}

func copyPlan(p *models.PricingPlan) *models.PricingPlan {
	cp := *p
	cp.IncludedServiceIDs = append([]id.ServiceID(nil), p.IncludedServiceIDs...)
	return &cp
}

func (s *InMemoryPlanStore) Create(_ context.Context, plan *models.PricingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[plan.Name]; ok {
		return fmt.Errorf("plan %s: %w", plan.Name, sentinel.ErrConflict)
	}
	s.plans[plan.Name] = copyPlan(plan)
	return nil
}

func (s *InMemoryPlanStore) FindByName(_ context.Context, name string) (*models.PricingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyPlan(plan), nil
}

// List returns every plan ordered by name.
func (s *InMemoryPlanStore) List(_ context.Context) ([]*models.PricingPlan, error) {
	s.mu.RLock()
	out := make([]*models.PricingPlan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, copyPlan(plan))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
