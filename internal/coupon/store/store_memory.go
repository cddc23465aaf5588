package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/coupon/models"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore keys coupons by their normalized code.
type InMemoryStore struct {
	mu      sync.RWMutex
	coupons map[string]*models.Coupon
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{coupons: make(map[string]*models.Coupon)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.coupons[c.Code]; exists {
		return sentinel.ErrConflict
	}
	s.coupons[c.Code] = c.Clone()
	return nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// IncrementUsage bumps TimesUsed under the write lock. It returns
// sentinel.ErrExhausted when the coupon is already at its cap.
func (s *InMemoryStore) IncrementUsage(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.UsageExhausted() {
		return nil, sentinel.ErrExhausted
	}
	c.TimesUsed++
	return c.Clone(), nil
}
