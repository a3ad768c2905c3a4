package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- Mock Repository ---

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (m *mockCouponRepo) Create(_ context.Context, c *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToUpper(c.Code)
	if _, ok := m.coupons[key]; ok {
		return &mockDuplicateError{}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.coupons[key] = c
	return nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, &mockNotFoundError{}
	}
	return c, nil
}

func (m *mockCouponRepo) FindAll(_ context.Context, filter models.CouponFilter, _, _ int) ([]models.Coupon, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Coupon
	for _, c := range m.coupons {
		if filter.Status == "active" && !c.IsActive {
			continue
		}
		if filter.Status == "inactive" && c.IsActive {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		result = append(result, *c)
	}
	return result, int64(len(result)), nil
}

func (m *mockCouponRepo) Deactivate(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return &mockNotFoundError{}
	}
	c.IsActive = false
	return nil
}

func (m *mockCouponRepo) BulkActivate(_ context.Context, codes []string, startsAt, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, code := range codes {
		if c, ok := m.coupons[strings.ToUpper(code)]; ok {
			c.IsActive = true
			s, e := startsAt, expiresAt
			c.StartsAt, c.ExpiresAt = &s, &e
			updated++
		}
	}
	return updated, nil
}

func (m *mockCouponRepo) BulkDeactivate(_ context.Context, codes []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, code := range codes {
		if c, ok := m.coupons[strings.ToUpper(code)]; ok && c.IsActive {
			c.IsActive = false
			updated++
		}
	}
	return updated, nil
}

// RedeemTx mirrors the conditional UPDATE: the increment succeeds only
// while a redemption is still available.
func (m *mockCouponRepo) RedeemTx(_ *gorm.DB, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok || !c.IsActive {
		return repository.ErrCouponRedemption
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return repository.ErrCouponRedemption
	}
	c.UsedCount++
	return nil
}

type mockNotFoundError struct{}

func (e *mockNotFoundError) Error() string { return "record not found" }

type mockDuplicateError struct{}

func (e *mockDuplicateError) Error() string {
	return `duplicate key value violates unique constraint "idx_coupons_code"`
}

// --- Helpers ---

func newTestCouponService(repo repository.CouponRepository) services.CouponService {
	return services.NewCouponService(repo, zap.NewNop())
}

func activeCoupon(code string, couponType models.CouponType, value, minAmount float64, maxUses, usedCount int) *models.Coupon {
	expires := time.Now().Add(24 * time.Hour)
	return &models.Coupon{
		ID:        uuid.New(),
		Code:      code,
		Type:      couponType,
		Value:     value,
		MinAmount: minAmount,
		MaxUses:   maxUses,
		UsedCount: usedCount,
		ExpiresAt: &expires,
		IsActive:  true,
	}
}

func seedCoupon(t *testing.T, repo repository.CouponRepository, c *models.Coupon) {
	t.Helper()
	assert.NoError(t, repo.Create(context.Background(), c))
}

// --- Tests ---

func TestService_Quote_Percentage(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("TENOFF", models.CouponTypePercentage, 10, 0, 0, 0))

	quote, svcErr := svc.Quote(context.Background(), "TENOFF", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.True(t, quote.Valid)
	assert.Equal(t, 10.0, quote.Discount)
	assert.False(t, quote.FreeShipping)
}

func TestService_Quote_FixedAmountCappedAtSubtotal(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("BIGSAVE", models.CouponTypeFixedAmount, 200, 0, 0, 0))

	quote, svcErr := svc.Quote(context.Background(), "BIGSAVE", 50, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.True(t, quote.Valid)
	assert.Equal(t, 50.0, quote.Discount, "Fixed discount capped at subtotal")
}

func TestService_Quote_FreeShipping(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("SHIPFREE", models.CouponTypeFreeShipping, 0, 0, 0, 0))

	quote, svcErr := svc.Quote(context.Background(), "SHIPFREE", 100, 25, time.Now())
	assert.Nil(t, svcErr)
	assert.True(t, quote.Valid)
	assert.True(t, quote.FreeShipping)
	assert.Equal(t, 25.0, quote.Discount, "Discount offsets the shipping fee line")
}

func TestService_Quote_CaseInsensitive(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("TENOFF", models.CouponTypePercentage, 10, 0, 0, 0))

	quote, svcErr := svc.Quote(context.Background(), "tenoff", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.True(t, quote.Valid)
}

func TestService_Quote_NotFound(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo())

	quote, svcErr := svc.Quote(context.Background(), "GHOST", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponNotFound, quote.Reason)
}

func TestService_Quote_Inactive(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	c := activeCoupon("PAUSED", models.CouponTypePercentage, 10, 0, 0, 0)
	c.IsActive = false
	seedCoupon(t, repo, c)

	quote, svcErr := svc.Quote(context.Background(), "PAUSED", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponInactive, quote.Reason)
}

func TestService_Quote_NotYetActive(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	c := activeCoupon("SOON", models.CouponTypePercentage, 10, 0, 0, 0)
	starts := time.Now().Add(time.Hour)
	c.StartsAt = &starts
	seedCoupon(t, repo, c)

	quote, svcErr := svc.Quote(context.Background(), "SOON", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponNotYetActive, quote.Reason)
}

func TestService_Quote_Expired(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	c := activeCoupon("OLD", models.CouponTypePercentage, 10, 0, 0, 0)
	expired := time.Now().Add(-time.Hour)
	c.ExpiresAt = &expired
	seedCoupon(t, repo, c)

	quote, svcErr := svc.Quote(context.Background(), "OLD", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponExpired, quote.Reason)
}

func TestService_Quote_Exhausted(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("LIMITED", models.CouponTypePercentage, 5, 0, 10, 10))

	quote, svcErr := svc.Quote(context.Background(), "LIMITED", 100, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponExhausted, quote.Reason)
}

func TestService_Quote_BelowMinimum(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("MINVAL", models.CouponTypePercentage, 10, 100, 0, 0))

	quote, svcErr := svc.Quote(context.Background(), "MINVAL", 50, 15, time.Now())
	assert.Nil(t, svcErr)
	assert.False(t, quote.Valid)
	assert.Equal(t, models.CouponBelowMinimum, quote.Reason)
	assert.Contains(t, quote.Message, "Minimum order")
}

func TestService_Quote_DoesNotConsumeRedemption(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("LASTONE", models.CouponTypePercentage, 10, 0, 5, 4))

	for i := 0; i < 3; i++ {
		quote, svcErr := svc.Quote(context.Background(), "LASTONE", 100, 15, time.Now())
		assert.Nil(t, svcErr)
		assert.True(t, quote.Valid)
	}

	stored, err := repo.FindByCode(context.Background(), "LASTONE")
	assert.NoError(t, err)
	assert.Equal(t, 4, stored.UsedCount, "Quoting must not move used_count")
}

func TestService_CreateCoupon_UppercasesCode(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)

	coupon, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:     "save10",
		Type:     models.CouponTypePercentage,
		Value:    10,
		IsActive: true,
	})
	assert.Nil(t, svcErr)
	assert.Equal(t, "SAVE10", coupon.Code)
}

func TestService_CreateCoupon_PercentageOverHundred(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo())

	_, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:  "TOOMUCH",
		Type:  models.CouponTypePercentage,
		Value: 150,
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestService_CreateCoupon_ExpiredDate(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo())

	past := time.Now().Add(-time.Hour)
	_, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:      "OLD",
		Type:      models.CouponTypeFixedAmount,
		Value:     5,
		ExpiresAt: &past,
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestService_CreateCoupon_Duplicate(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("TAKEN", models.CouponTypePercentage, 10, 0, 0, 0))

	_, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:  "TAKEN",
		Type:  models.CouponTypePercentage,
		Value: 10,
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestService_DeactivateCoupon_NotFound(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo())

	svcErr := svc.DeactivateCoupon(context.Background(), "GHOST")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestService_BulkActivate_SetsWindow(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	for _, code := range []string{"B1", "B2"} {
		c := activeCoupon(code, models.CouponTypePercentage, 10, 0, 0, 0)
		c.IsActive = false
		seedCoupon(t, repo, c)
	}

	starts := time.Now()
	expires := starts.Add(48 * time.Hour)
	updated, svcErr := svc.BulkActivate(context.Background(), &models.BulkActivateRequest{
		Codes:     []string{"B1", "B2", "MISSING"},
		StartsAt:  starts,
		ExpiresAt: expires,
	})
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(2), updated)

	stored, err := repo.FindByCode(context.Background(), "B1")
	assert.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.NotNil(t, stored.ExpiresAt)
}

func TestService_BulkActivate_InvalidWindow(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo())

	starts := time.Now()
	_, svcErr := svc.BulkActivate(context.Background(), &models.BulkActivateRequest{
		Codes:     []string{"B1"},
		StartsAt:  starts,
		ExpiresAt: starts.Add(-time.Hour),
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestService_BulkDeactivate(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("D1", models.CouponTypePercentage, 10, 0, 0, 0))
	seedCoupon(t, repo, activeCoupon("D2", models.CouponTypePercentage, 10, 0, 0, 0))

	updated, svcErr := svc.BulkDeactivate(context.Background(), &models.BulkDeactivateRequest{
		Codes: []string{"D1", "D2"},
	})
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(2), updated)
}

func TestService_ListCoupons_FilterByStatus(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo)
	seedCoupon(t, repo, activeCoupon("ON", models.CouponTypePercentage, 10, 0, 0, 0))
	off := activeCoupon("OFF", models.CouponTypePercentage, 10, 0, 0, 0)
	off.IsActive = false
	seedCoupon(t, repo, off)

	coupons, total, svcErr := svc.ListCoupons(context.Background(), models.CouponFilter{Status: "active"}, 1, 10)
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(1), total)
	assert.Len(t, coupons, 1)
	assert.Equal(t, "ON", coupons[0].Code)
}
