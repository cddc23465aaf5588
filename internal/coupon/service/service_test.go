package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/coupon"
	"kycgate/internal/coupon/models"
	"kycgate/internal/coupon/store"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

type CouponServiceSuite struct {
	suite.Suite
	svc *Service
	ctx context.Context
	now time.Time
}

func TestCouponServiceSuite(t *testing.T) {
	suite.Run(t, new(CouponServiceSuite))
}

func (s *CouponServiceSuite) SetupTest() {
	var err error
	s.svc, err = New(store.NewInMemoryStore())
	s.Require().NoError(err)
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *CouponServiceSuite) create(cmd CreateCommand) *models.Coupon {
	c, err := s.svc.Create(s.ctx, cmd)
	s.Require().NoError(err)
	return c
}

func (s *CouponServiceSuite) TestCreate() {
	c := s.create(CreateCommand{Code: "save20", Discount: models.Discount{Type: models.DiscountPercentage, Value: 20}})
	s.Equal("SAVE20", c.Code)

	_, err := s.svc.Create(s.ctx, CreateCommand{Code: "SAVE20", Discount: models.Discount{Type: models.DiscountFixed, Value: 5}})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.Create(s.ctx, CreateCommand{Code: "BAD", Discount: models.Discount{Type: models.DiscountPercentage, Value: 0}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CouponServiceSuite) TestQuote() {
	s.create(CreateCommand{Code: "SAVE20", Discount: models.Discount{Type: models.DiscountPercentage, Value: 20}})
	s.create(CreateCommand{
		Code:                 "IDONLY",
		Discount:             models.Discount{Type: models.DiscountFixed, Value: 100},
		ApplicableCategories: []string{"Identity Verification Plan"},
	})

	s.Run("case-insensitive lookup and percentage discount", func() {
		q, err := s.svc.Quote(s.ctx, " save20 ", "Banking Plan", 1000)
		s.Require().NoError(err)
		s.InDelta(800, q.FinalPrice, 1e-9)
		s.InDelta(200, q.DiscountAmount, 1e-9)
		s.Equal("SAVE20", q.Code)
	})

	s.Run("ineligible coupon surfaces the reason", func() {
		_, err := s.svc.Quote(s.ctx, "IDONLY", "GSTIN", 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(coupon.ReasonNotApplicable, dErrors.MessageOf(err))
		var ineligible *coupon.IneligibleError
		s.True(errors.As(err, &ineligible))
	})

	s.Run("unknown coupon", func() {
		_, err := s.svc.Quote(s.ctx, "NOPE", "GSTIN", 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty code", func() {
		_, err := s.svc.Quote(s.ctx, "  ", "GSTIN", 1000)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *CouponServiceSuite) TestRedeemNeverExceedsMaxUses() {
	limit := 3
	s.create(CreateCommand{Code: "THREE", Discount: models.Discount{Type: models.DiscountFixed, Value: 10}, MaxUses: &limit})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Redeem(s.ctx, "three")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if dErrors.HasCode(err, dErrors.CodeConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(3, ok)
	s.Equal(7, conflicts)

	c, err := s.svc.Get(s.ctx, "THREE")
	s.Require().NoError(err)
	s.Equal(3, c.TimesUsed)

	_, err = s.svc.Quote(s.ctx, "THREE", "Banking Plan", 100)
	s.Equal(coupon.ReasonUsageLimit, dErrors.MessageOf(err))
}

func (s *CouponServiceSuite) TestRedeemExpired() {
	s.create(CreateCommand{Code: "SOON", Discount: models.Discount{Type: models.DiscountFixed, Value: 10}, ExpiryDate: s.now.Add(time.Hour)})

	later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
	_, err := s.svc.Redeem(later, "SOON")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(coupon.ReasonExpired, dErrors.MessageOf(err))
}
