package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/catalog/service"
	"kycgate/internal/catalog/store"
	"kycgate/pkg/testutil"
)

type CatalogHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerSuite))
}

func (s *CatalogHandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemoryServiceStore(), store.NewInMemoryPlanStore())
	s.Require().NoError(err)

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAdmin(s.router)
}

func (s *CatalogHandlerSuite) createService(body map[string]any) *ServiceResponse {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/services", body))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[ServiceResponse](s.T(), rr)
}

func (s *CatalogHandlerSuite) TestCreateAndListServices() {
	created := s.createService(map[string]any{
		"id": "svc-bvn", "name": "BVN Lookup", "category": "Identity",
		"subcategory": "bvn", "price": 100, "service_key": "bvn",
	})
	s.Equal("svc-bvn", created.ID)
	s.True(created.Active)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/services", nil))
	s.Equal(http.StatusOK, rr.Code)
	list := testutil.UnmarshalResponse[ServiceListResponse](s.T(), rr)
	s.Require().Len(list.Services, 1)
	s.Equal("bvn", list.Services[0].ServiceKey)
}

func (s *CatalogHandlerSuite) TestCreateServiceValidation() {
	s.Run("missing name", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/services", map[string]any{
			"category": "Identity", "service_key": "nin",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed json", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/admin/services", "{"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("duplicate key", func() {
		body := map[string]any{"name": "NIN", "category": "Identity", "service_key": "nin"}
		s.createService(body)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/services", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})
}

func (s *CatalogHandlerSuite) TestDeactivateHidesFromPublicCatalog() {
	s.createService(map[string]any{"id": "svc-acct", "name": "Account", "category": "Banking", "service_key": "account"})

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/services/svc-acct", map[string]any{"active": false}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.False(testutil.UnmarshalResponse[ServiceResponse](s.T(), rr).Active)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/services", nil))
	s.Empty(testutil.UnmarshalResponse[ServiceListResponse](s.T(), rr).Services)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/services", nil))
	s.Len(testutil.UnmarshalResponse[ServiceListResponse](s.T(), rr).Services, 1)

	s.Run("patch without active flag", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/services/svc-acct", map[string]any{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/services/ghost", map[string]any{"active": true}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *CatalogHandlerSuite) TestPlans() {
	s.createService(map[string]any{"id": "svc-acct", "name": "Account", "category": "Banking", "service_key": "account"})

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/plans", map[string]any{
		"name": "Banking Plan", "included_service_ids": []string{"svc-acct", "svc-acct"}, "price": 5000, "duration_days": 30,
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal([]string{"svc-acct"}, testutil.UnmarshalResponse[PlanResponse](s.T(), rr).IncludedServiceIDs)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/plans", nil))
	s.Len(testutil.UnmarshalResponse[PlanListResponse](s.T(), rr).Plans, 1)

	s.Run("non-positive duration", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/plans", map[string]any{
			"name": "Other Plan", "included_service_ids": []string{"svc-acct"}, "duration_days": 0,
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}
