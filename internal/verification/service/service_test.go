package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	catalog "kycgate/internal/catalog/models"
	"kycgate/internal/entitlement"
	entitlementsvc "kycgate/internal/entitlement/service"
	"kycgate/internal/verification"
	"kycgate/internal/verification/provider"
	"kycgate/internal/verification/service/mocks"
	"kycgate/internal/verification/store"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/requestcontext"
)

type capturePublisher struct {
	events []audit.Event
}

func (c *capturePublisher) Emit(_ context.Context, ev audit.Event) error {
	c.events = append(c.events, ev)
	return nil
}

type VerificationServiceSuite struct {
	suite.Suite
	catalog   *mocks.MockServiceCatalog
	access    *mocks.MockAccessChecker
	provider  *mocks.MockProvider
	store     *store.InMemoryStore
	publisher *capturePublisher
	service   *Service
	hasher    *verification.SubjectHasher

	ctx    context.Context
	now    time.Time
	userID id.UserID
	pan    *catalog.Service
	params map[string]string
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.catalog = mocks.NewMockServiceCatalog(ctrl)
	s.access = mocks.NewMockAccessChecker(ctrl)
	s.provider = mocks.NewMockProvider(ctrl)
	s.store = store.NewInMemoryStore()
	s.publisher = &capturePublisher{}

	hasher, err := verification.NewSubjectHasher([]byte("test-subject-key"))
	s.Require().NoError(err)
	s.hasher = hasher

	s.service, err = New(s.catalog, s.access, s.provider, s.store,
		WithSubjectHasher(hasher),
		WithAuditPublisher(s.publisher),
	)
	s.Require().NoError(err)

	s.now = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithClientMetadata(requestcontext.WithTime(context.Background(), s.now), "10.0.0.1", "Chrome on Windows")
	s.userID = id.UserID(uuid.New())
	s.pan, err = catalog.NewService("pan-basic", "PAN Basic", "Identity", "PAN", 150, "pan", s.now)
	s.Require().NoError(err)
	s.params = map[string]string{"pan": "ABCDE1234F"}
}

func (s *VerificationServiceSuite) allow() {
	s.catalog.EXPECT().FindByKey(gomock.Any(), "pan").Return(s.pan, nil)
	s.access.EXPECT().Access(gomock.Any(), s.userID, s.pan.ID).
		Return(&entitlementsvc.AccessDecision{ServiceID: s.pan.ID, Allowed: true}, nil)
}

func (s *VerificationServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.access, s.provider, s.store)
	s.Require().Error(err)
	_, err = New(s.catalog, nil, s.provider, s.store)
	s.Require().Error(err)
	_, err = New(s.catalog, s.access, nil, s.store)
	s.Require().Error(err)
	_, err = New(s.catalog, s.access, s.provider, nil)
	s.Require().Error(err)
}

func (s *VerificationServiceSuite) TestExecuteRecordsClassifiedOutcome() {
	s.Run("success", func() {
		s.allow()
		s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).
			Return(&provider.Response{StatusCode: 200, Body: []byte(`{"data":{"status":"VALID"}}`)}, nil)

		rec, err := s.service.Execute(s.ctx, s.userID, "pan", s.params)
		s.Require().NoError(err)
		s.Equal(verification.Success, rec.Classification)
		s.Equal(s.hasher.Hash(s.params), rec.SubjectHash)
		s.NotContains(rec.SubjectHash, "ABCDE1234F")
		s.Equal("Chrome on Windows", rec.Device)
		s.True(s.now.Equal(rec.CreatedAt))

		s.Require().NotEmpty(s.publisher.events)
		ev := s.publisher.events[len(s.publisher.events)-1]
		s.Equal("success", ev.Decision)
		s.Equal(rec.SubjectHash, ev.SubjectIDHash)
		s.Equal(s.userID, ev.UserID)
	})

	s.Run("4xx body with provider error code", func() {
		s.allow()
		s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).
			Return(&provider.Response{StatusCode: 404, Body: []byte(`{"data":{"code":1004,"message":"Invalid PAN"}}`)}, nil)

		rec, err := s.service.Execute(s.ctx, s.userID, "pan", s.params)
		s.Require().NoError(err)
		s.Equal(verification.Failure, rec.Classification)
		s.Equal(verification.CauseKnownProviderError, rec.Cause)
		s.Equal("Invalid PAN", rec.Reason)
		s.Equal("1004", rec.ProviderCode)
	})

	history, err := s.service.History(s.ctx, s.userID, 0)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *VerificationServiceSuite) TestExecuteDeniedReturnsPurchaseTarget() {
	target := &entitlement.PurchaseTarget{Kind: entitlement.TargetDynamicPlan, Category: "PAN", Price: 1000}
	s.catalog.EXPECT().FindByKey(gomock.Any(), "pan").Return(s.pan, nil)
	s.access.EXPECT().Access(gomock.Any(), s.userID, s.pan.ID).
		Return(&entitlementsvc.AccessDecision{ServiceID: s.pan.ID, Target: target}, nil)

	_, err := s.service.Execute(s.ctx, s.userID, "pan", s.params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	var denied *AccessDeniedError
	s.Require().ErrorAs(err, &denied)
	s.Equal(target, denied.Target)

	s.Require().Len(s.publisher.events, 1)
	s.Equal("denied", s.publisher.events[0].Decision)
	s.Equal(audit.CategorySecurity, audit.EventVerificationDenied.Category())

	history, err := s.service.History(s.ctx, s.userID, 0)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *VerificationServiceSuite) TestProviderOutageIsNotClassified() {
	s.allow()
	s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).
		Return(nil, fmt.Errorf("%w: status 503", provider.ErrUnavailable))

	_, err := s.service.Execute(s.ctx, s.userID, "pan", s.params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	history, err := s.service.History(s.ctx, s.userID, 0)
	s.Require().NoError(err)
	s.Empty(history, "outages leave no history")
}

func (s *VerificationServiceSuite) TestUnexpectedProviderErrorIsInternal() {
	s.allow()
	s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).Return(nil, errors.New("marshal failed"))

	_, err := s.service.Execute(s.ctx, s.userID, "pan", s.params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *VerificationServiceSuite) TestUnknownServiceKeyPassesThrough() {
	s.catalog.EXPECT().FindByKey(gomock.Any(), "nope").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "service not found"))

	_, err := s.service.Execute(s.ctx, s.userID, "nope", s.params)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VerificationServiceSuite) TestStrictClassifierOption() {
	svc, err := New(s.catalog, s.access, s.provider, s.store, WithClassifier(verification.NewClassifier(verification.WithStrict())))
	s.Require().NoError(err)
	s.allow()
	s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).
		Return(&provider.Response{StatusCode: 200, Body: []byte(`{"data":{"foo":"bar"}}`)}, nil)

	rec, err := svc.Execute(s.ctx, s.userID, "pan", s.params)
	s.Require().NoError(err)
	s.Equal(verification.Inconclusive, rec.Classification)
}

func (s *VerificationServiceSuite) TestHistoryLimits() {
	for i := 0; i < 3; i++ {
		s.allow()
		s.provider.EXPECT().Execute(gomock.Any(), "pan", s.params).
			Return(&provider.Response{StatusCode: 200, Body: []byte(`{"success":true,"data":{}}`)}, nil)
		ctx := requestcontext.WithTime(s.ctx, s.now.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Execute(ctx, s.userID, "pan", s.params)
		s.Require().NoError(err)
	}

	limited, err := s.service.History(s.ctx, s.userID, 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.True(limited[0].CreatedAt.After(limited[1].CreatedAt))

	all, err := s.service.History(s.ctx, s.userID, MaxHistoryLimit+10)
	s.Require().NoError(err)
	s.Len(all, 3)
}
