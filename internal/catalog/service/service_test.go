package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/catalog/store"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

type countingListener struct {
	calls int
}

func (c *countingListener) CatalogChanged(context.Context) { c.calls++ }

// CatalogServiceSuite covers error translation and change notification; the
// stores themselves are covered in the store package.
type CatalogServiceSuite struct {
	suite.Suite
	svc      *Service
	listener *countingListener
	ctx      context.Context
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.listener = &countingListener{}
	var err error
	s.svc, err = New(store.NewInMemoryServiceStore(), store.NewInMemoryPlanStore(), WithChangeListener(s.listener))
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
}

func (s *CatalogServiceSuite) seed() {
	_, err := s.svc.CreateService(s.ctx, CreateServiceCommand{ID: "svc-bvn", Name: "BVN", Category: "Identity", Subcategory: "bvn", Price: 100, ServiceKey: "bvn"})
	s.Require().NoError(err)
	_, err = s.svc.CreateService(s.ctx, CreateServiceCommand{ID: "svc-acct", Name: "Account", Category: "Banking", Price: 50, ServiceKey: "account"})
	s.Require().NoError(err)
}

func (s *CatalogServiceSuite) TestNew() {
	_, err := New(nil, store.NewInMemoryPlanStore())
	s.Error(err)
	_, err = New(store.NewInMemoryServiceStore(), nil)
	s.Error(err)
}

func (s *CatalogServiceSuite) TestCreateService() {
	s.Run("generates an id when none supplied", func() {
		svc, err := s.svc.CreateService(s.ctx, CreateServiceCommand{Name: "NIN", Category: "Identity", Price: 10, ServiceKey: "nin"})
		s.Require().NoError(err)
		s.False(svc.ID.IsNil())
		s.Equal(1, s.listener.calls)
	})

	s.Run("invariant violations surface as validation errors", func() {
		_, err := s.svc.CreateService(s.ctx, CreateServiceCommand{Name: "", Category: "Identity", ServiceKey: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate key is a conflict", func() {
		_, err := s.svc.CreateService(s.ctx, CreateServiceCommand{Name: "NIN 2", Category: "Identity", ServiceKey: "nin"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *CatalogServiceSuite) TestListAndToggle() {
	s.seed()

	_, err := s.svc.SetServiceActive(s.ctx, "svc-acct", false, "ops")
	s.Require().NoError(err)

	public, err := s.svc.ListServices(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(public, 1)
	s.Equal("svc-bvn", public[0].ID.String())

	all, err := s.svc.ListServices(s.ctx, true)
	s.Require().NoError(err)
	s.Len(all, 2)

	s.Run("toggling an unknown service is not found", func() {
		_, err := s.svc.SetServiceActive(s.ctx, "nope", true, "ops")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestFindByKey() {
	s.seed()

	svc, err := s.svc.FindByKey(s.ctx, " bvn ")
	s.Require().NoError(err)
	s.Equal("svc-bvn", svc.ID.String())

	_, err = s.svc.FindByKey(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.FindByKey(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CatalogServiceSuite) TestCreatePlan() {
	s.seed()

	s.Run("valid plan", func() {
		plan, err := s.svc.CreatePlan(s.ctx, "Identity Plan", []string{"svc-bvn"}, 5000, 30)
		s.Require().NoError(err)
		s.Equal("Identity Plan", plan.Name)
	})

	s.Run("unknown service is rejected", func() {
		_, err := s.svc.CreatePlan(s.ctx, "Banking Plan", []string{"svc-ghost"}, 5000, 30)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate name is a conflict", func() {
		_, err := s.svc.CreatePlan(s.ctx, "Identity Plan", []string{"svc-acct"}, 5000, 30)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty includes are a validation error", func() {
		_, err := s.svc.CreatePlan(s.ctx, "Empty Plan", nil, 5000, 30)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	plans, err := s.svc.ListPlans(s.ctx)
	s.Require().NoError(err)
	s.Len(plans, 1)
}
