package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/entitlement"
	"kycgate/internal/entitlement/cache"
	subscription "kycgate/internal/subscription/models"
	id "kycgate/pkg/domain"
)

// gatedSubscriptions returns a copy of its grants taken when ListForUser is
// entered. The first call parks until release is closed.
type gatedSubscriptions struct {
	mu      sync.Mutex
	subs    []*subscription.Subscription
	gated   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedSubscriptions(subs ...*subscription.Subscription) *gatedSubscriptions {
	return &gatedSubscriptions{
		subs:    subs,
		gated:   true,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSubscriptions) ListForUser(_ context.Context, _ id.UserID) ([]*subscription.Subscription, error) {
	g.mu.Lock()
	out := make([]*subscription.Subscription, 0, len(g.subs))
	for _, sub := range g.subs {
		out = append(out, sub.Clone())
	}
	gated := g.gated
	g.gated = false
	g.mu.Unlock()

	if gated {
		close(g.entered)
		<-g.release
	}
	return out, nil
}

func (g *gatedSubscriptions) revokeAll(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sub := range g.subs {
		sub.Revoke(at)
	}
}

type entitlementsResult struct {
	set entitlement.ServiceSet
	err error
}

// entitleDuringChange starts a load, runs change while ListForUser is parked,
// then lets the load finish. It returns the in-flight result.
func (s *EntitlementServiceSuite) entitleDuringChange(svc *Service, gate *gatedSubscriptions, change func()) entitlementsResult {
	done := make(chan entitlementsResult, 1)
	go func() {
		set, err := svc.Entitlements(s.ctx, s.userID)
		done <- entitlementsResult{set: set, err: err}
	}()

	<-gate.entered
	change()
	close(gate.release)
	return <-done
}

func (s *EntitlementServiceSuite) newCachedService(gate *gatedSubscriptions, mem *cache.MemoryCache) *Service {
	s.catalog.EXPECT().ListPlans(gomock.Any()).Return(s.plans, nil).AnyTimes()
	s.catalog.EXPECT().ListServices(gomock.Any(), true).
		Return([]*catalog.Service{s.pan, s.aadhaar, s.gstin}, nil).AnyTimes()
	svc, err := New(gate, s.catalog, WithCache(mem, time.Hour))
	s.Require().NoError(err)
	return svc
}

func (s *EntitlementServiceSuite) TestInvalidateDuringLoad() {
	mem := cache.NewMemoryCache()
	gate := newGatedSubscriptions(s.grant("Identity Plan", nil))
	svc := s.newCachedService(gate, mem)

	inflight := s.entitleDuringChange(svc, gate, func() {
		gate.revokeAll(now)
		s.Require().NoError(svc.Invalidate(s.ctx, s.userID))
	})
	s.Require().NoError(inflight.err)
	s.True(inflight.set.Has("pan-basic"), "the in-flight caller sees the set it loaded")

	_, ok, err := mem.Get(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(ok, "a load that raced an invalidation must not be cached")

	set, err := svc.Entitlements(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(set.Has("pan-basic"))
	s.Equal(0, set.Len())
}

func (s *EntitlementServiceSuite) TestCatalogChangeDuringLoad() {
	mem := cache.NewMemoryCache()
	gate := newGatedSubscriptions(s.grant("Identity Plan", nil))
	svc := s.newCachedService(gate, mem)

	inflight := s.entitleDuringChange(svc, gate, func() {
		gate.revokeAll(now)
		svc.CatalogChanged(s.ctx)
	})
	s.Require().NoError(inflight.err)

	_, ok, err := mem.Get(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(ok, "a load that raced a flush must not be cached")

	set, err := svc.Entitlements(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(set.Has("aadhaar-otp"))
}
