package store

import (
	"context"
	"sort"
	"sync"

	"kycgate/internal/verification/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// InMemoryStore keeps verification history per user.
type InMemoryStore struct {
	mu      sync.RWMutex
	ids     map[id.VerificationID]struct{}
	records map[id.UserID][]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ids:     make(map[id.VerificationID]struct{}),
		records: make(map[id.UserID][]*models.Record),
	}
}

func (s *InMemoryStore) Save(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	s.ids[rec.ID] = struct{}{}
	s.records[rec.UserID] = append(s.records[rec.UserID], rec.Clone())
	return nil
}

// ListByUser returns at most limit records, newest first. A non-positive
// limit returns everything.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	stored := s.records[userID]
	out := make([]*models.Record, 0, len(stored))
	for _, rec := range stored {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
