package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/entitlement"
	"kycgate/internal/entitlement/handler/mocks"
	"kycgate/internal/entitlement/service"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/testutil"
)

type EntitlementHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	userID  string
}

func TestEntitlementHandlerSuite(t *testing.T) {
	suite.Run(t, new(EntitlementHandlerSuite))
}

func (s *EntitlementHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.userID = uuid.NewString()
}

func (s *EntitlementHandlerSuite) authed(req *http.Request) *http.Request {
	return testutil.WithUserID(req, s.userID)
}

func (s *EntitlementHandlerSuite) parsedUser() id.UserID {
	userID, err := id.ParseUserID(s.userID)
	s.Require().NoError(err)
	return userID
}

func (s *EntitlementHandlerSuite) TestEntitlements() {
	s.Run("lists sorted service ids at the request time", func() {
		at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().Entitlements(gomock.Any(), s.parsedUser()).
			Return(entitlement.ServiceSetOf("pan-basic", "aadhaar-otp"), nil)

		req := testutil.WithRequestTime(s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/entitlements", nil)), at)
		rr := testutil.DoRequest(s.router, req)

		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		body := testutil.UnmarshalResponse[EntitlementsResponse](s.T(), rr)
		s.Equal([]string{"aadhaar-otp", "pan-basic"}, body.ServiceIDs)
		s.Equal(s.userID, body.UserID)
		s.True(at.Equal(body.EvaluatedAt))
	})

	s.Run("requires authentication", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/entitlements", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("internal errors hide the description", func() {
		s.service.EXPECT().Entitlements(gomock.Any(), s.parsedUser()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to load entitlement inputs"))

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/entitlements", nil)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *EntitlementHandlerSuite) TestAccess() {
	s.Run("denied access carries the purchase target", func() {
		s.service.EXPECT().Access(gomock.Any(), s.parsedUser(), id.ServiceID("pan-basic")).
			Return(&service.AccessDecision{
				ServiceID: "pan-basic",
				Target: &entitlement.PurchaseTarget{
					Kind:     entitlement.TargetDynamicPlan,
					Category: "PAN",
					Price:    1000,
				},
			}, nil)

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/services/pan-basic/access", nil)))

		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		body := testutil.UnmarshalResponse[AccessResponse](s.T(), rr)
		s.False(body.Allowed)
		s.Require().NotNil(body.Target)
		s.Equal("PAN", body.Target.Category)
		s.Equal(entitlement.TargetDynamicPlan, body.Target.Kind)
	})

	s.Run("allowed access omits the target", func() {
		s.service.EXPECT().Access(gomock.Any(), s.parsedUser(), id.ServiceID("pan-basic")).
			Return(&service.AccessDecision{ServiceID: "pan-basic", Allowed: true}, nil)

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/services/pan-basic/access", nil)))

		s.Require().Equal(http.StatusOK, rr.Code)
		s.NotContains(rr.Body.String(), "purchase_target")
	})

	s.Run("missing plan is not found", func() {
		s.service.EXPECT().Access(gomock.Any(), s.parsedUser(), id.ServiceID("gstin-lookup")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no purchasable plan for category Business"))

		rr := testutil.DoRequest(s.router, s.authed(testutil.NewJSONRequest(s.T(), http.MethodGet, "/me/services/gstin-lookup/access", nil)))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *EntitlementHandlerSuite) TestQuote() {
	s.Run("quotes with a coupon", func() {
		s.service.EXPECT().Quote(gomock.Any(), s.parsedUser(), id.ServiceID("aadhaar-otp"), "SAVE10").
			Return(&service.CheckoutQuote{
				ServiceID:      "aadhaar-otp",
				Target:         entitlement.PurchaseTarget{Kind: entitlement.TargetStaticPlan, Category: "Identity Plan", Price: 2500},
				CouponCode:     "SAVE10",
				BasePrice:      2500,
				DiscountAmount: 250,
				FinalPrice:     2250,
			}, nil)

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/checkout/quote",
			map[string]any{"service_id": " aadhaar-otp ", "coupon_code": "SAVE10"}))
		rr := testutil.DoRequest(s.router, req)

		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		body := testutil.UnmarshalResponse[QuoteResponse](s.T(), rr)
		s.Equal(2250.0, body.FinalPrice)
		s.Equal("Identity Plan", body.Target.Category)
	})

	s.Run("already accessible is a conflict", func() {
		s.service.EXPECT().Quote(gomock.Any(), s.parsedUser(), id.ServiceID("pan-basic"), "").
			Return(nil, dErrors.New(dErrors.CodeConflict, "service is already accessible"))

		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/checkout/quote",
			map[string]any{"service_id": "pan-basic"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("service id is required", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/me/checkout/quote",
			map[string]any{"coupon_code": "SAVE10"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed body", func() {
		req := s.authed(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/me/checkout/quote", "{"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}
