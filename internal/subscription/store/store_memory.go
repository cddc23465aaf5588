package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore keeps subscriptions in memory. Reads and writes hand out
// copies so callers cannot mutate stored state.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.SubscriptionID]*models.Subscription
	byUser map[id.UserID][]id.SubscriptionID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.SubscriptionID]*models.Subscription),
		byUser: make(map[id.UserID][]id.SubscriptionID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[sub.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[sub.ID] = sub.Clone()
	s.byUser[sub.UserID] = append(s.byUser[sub.UserID], sub.ID)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.UserID != sub.UserID {
		return sentinel.ErrConflict
	}
	s.byID[sub.ID] = sub.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sub.Clone(), nil
}

// ListByUser returns every grant of the user, newest first, revoked included.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]*models.Subscription, 0, len(ids))
	for _, subID := range ids {
		out = append(out, s.byID[subID].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
