package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newSub(userID id.UserID, category string, createdAt time.Time) *models.Subscription {
	sub, err := models.NewSubscription(id.SubscriptionID(uuid.New()), userID, category, nil, false, createdAt)
	s.Require().NoError(err)
	return sub
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	userID := id.UserID(uuid.New())
	sub := s.newSub(userID, "bvn", s.now)
	s.Require().NoError(s.store.Create(s.ctx, sub))

	s.ErrorIs(s.store.Create(s.ctx, sub), sentinel.ErrConflict)

	found, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal("bvn", found.Category)

	found.Category = "mutated"
	again, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal("bvn", again.Category, "store must hand out copies")

	_, err = s.store.FindByID(s.ctx, id.SubscriptionID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	userID := id.UserID(uuid.New())
	sub := s.newSub(userID, "bvn", s.now)
	s.Require().NoError(s.store.Create(s.ctx, sub))

	sub.Revoke(s.now.Add(time.Hour))
	s.Require().NoError(s.store.Update(s.ctx, sub))

	found, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.True(found.IsRevoked())

	ghost := s.newSub(userID, "nin", s.now)
	s.ErrorIs(s.store.Update(s.ctx, ghost), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByUserNewestFirst() {
	alice := id.UserID(uuid.New())
	bob := id.UserID(uuid.New())
	s.Require().NoError(s.store.Create(s.ctx, s.newSub(alice, "old", s.now)))
	s.Require().NoError(s.store.Create(s.ctx, s.newSub(alice, "new", s.now.Add(time.Hour))))
	s.Require().NoError(s.store.Create(s.ctx, s.newSub(bob, "other", s.now)))

	subs, err := s.store.ListByUser(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(subs, 2)
	s.Equal("new", subs[0].Category)
	s.Equal("old", subs[1].Category)

	empty, err := s.store.ListByUser(s.ctx, id.UserID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(empty)
}
