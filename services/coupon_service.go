package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"go.uber.org/zap"
)

// CouponService is the coupon resolver plus the admin coupon surface.
// Quoting a coupon never consumes a redemption: used_count moves only
// inside the order-creation transaction.
type CouponService interface {
	Quote(ctx context.Context, code string, subtotal, shippingFee float64, now time.Time) (*models.CouponQuote, *ServiceError)
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, *ServiceError)
	ListCoupons(ctx context.Context, filter models.CouponFilter, page, limit int) ([]models.Coupon, int64, *ServiceError)
	DeactivateCoupon(ctx context.Context, code string) *ServiceError
	BulkActivate(ctx context.Context, req *models.BulkActivateRequest) (int64, *ServiceError)
	BulkDeactivate(ctx context.Context, req *models.BulkDeactivateRequest) (int64, *ServiceError)
}

type couponServiceImpl struct {
	repo   repository.CouponRepository
	logger *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponServiceImpl{repo: repo, logger: logger}
}

// Quote validates a code against a cart and prices the discount. A
// rejection is reported with its specific reason, never a generic failure.
func (s *couponServiceImpl) Quote(ctx context.Context, code string, subtotal, shippingFee float64, now time.Time) (*models.CouponQuote, *ServiceError) {
	reject := func(reason models.CouponReason, message string) *models.CouponQuote {
		return &models.CouponQuote{Valid: false, Code: code, Reason: reason, Message: message}
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err.Error() == "record not found" {
			return reject(models.CouponNotFound, "Coupon not found"), nil
		}
		s.logger.Error("Coupon lookup failed", zap.String("code", code), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to validate coupon"}
	}

	if !coupon.IsActive {
		return reject(models.CouponInactive, "Coupon is not active"), nil
	}
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return reject(models.CouponNotYetActive, "Coupon is not active yet"), nil
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return reject(models.CouponExpired, "Coupon has expired"), nil
	}
	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return reject(models.CouponExhausted, "Coupon usage limit reached"), nil
	}
	if coupon.MinAmount > 0 && subtotal < coupon.MinAmount {
		return reject(models.CouponBelowMinimum,
			fmt.Sprintf("Minimum order value of %.2f required", coupon.MinAmount)), nil
	}

	quote := &models.CouponQuote{
		Valid: true,
		Code:  coupon.Code,
		Type:  coupon.Type,
	}
	switch coupon.Type {
	case models.CouponTypePercentage:
		quote.Discount = subtotal * (coupon.Value / 100)
	case models.CouponTypeFixedAmount:
		quote.Discount = coupon.Value
		if quote.Discount > subtotal {
			quote.Discount = subtotal
		}
	case models.CouponTypeFreeShipping:
		// The discount offsets the shipping fee line, not the subtotal.
		quote.Discount = shippingFee
		quote.FreeShipping = true
	default:
		return nil, &ServiceError{StatusCode: 500, Message: "Unknown coupon type"}
	}

	return quote, nil
}

// CreateCoupon creates a new coupon (admin only).
func (s *couponServiceImpl) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError) {
	if req.Type == models.CouponTypePercentage && req.Value > 100 {
		return nil, &ServiceError{StatusCode: 400, Message: "Percentage discount cannot exceed 100"}
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, &ServiceError{StatusCode: 400, Message: "Expiry date must be in the future"}
	}
	if req.StartsAt != nil && req.ExpiresAt != nil && req.ExpiresAt.Before(*req.StartsAt) {
		return nil, &ServiceError{StatusCode: 400, Message: "Expiry date must be after start date"}
	}

	coupon := &models.Coupon{
		Code:        strings.ToUpper(req.Code),
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		MinAmount:   req.MinAmount,
		MaxUses:     req.MaxUses,
		IsActive:    req.IsActive,
		StartsAt:    req.StartsAt,
		ExpiresAt:   req.ExpiresAt,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return nil, &ServiceError{StatusCode: 409, Message: "Coupon code already exists"}
		}
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create coupon"}
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("type", string(coupon.Type)))
	return coupon, nil
}

// GetCoupon retrieves a coupon by code.
func (s *couponServiceImpl) GetCoupon(ctx context.Context, code string) (*models.Coupon, *ServiceError) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, &ServiceError{StatusCode: 404, Message: "Coupon not found"}
	}
	return coupon, nil
}

// ListCoupons returns paginated coupons filtered by status/type.
func (s *couponServiceImpl) ListCoupons(ctx context.Context, filter models.CouponFilter, page, limit int) ([]models.Coupon, int64, *ServiceError) {
	coupons, total, err := s.repo.FindAll(ctx, filter, page, limit)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list coupons"}
	}
	return coupons, total, nil
}

// DeactivateCoupon deactivates a coupon by code.
func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, code string) *ServiceError {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if err.Error() == "record not found" {
			return &ServiceError{StatusCode: 404, Message: "Coupon not found"}
		}
		s.logger.Error("Failed to deactivate coupon", zap.String("code", code), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to deactivate coupon"}
	}

	s.logger.Info("Coupon deactivated", zap.String("code", code))
	return nil
}

// BulkActivate activates a batch of coupons with the operator-supplied
// activation window.
func (s *couponServiceImpl) BulkActivate(ctx context.Context, req *models.BulkActivateRequest) (int64, *ServiceError) {
	if !req.ExpiresAt.After(req.StartsAt) {
		return 0, &ServiceError{StatusCode: 400, Message: "Expiry date must be after start date"}
	}

	updated, err := s.repo.BulkActivate(ctx, req.Codes, req.StartsAt, req.ExpiresAt)
	if err != nil {
		s.logger.Error("Bulk activate failed", zap.Error(err))
		return 0, &ServiceError{StatusCode: 500, Message: "Failed to activate coupons"}
	}

	s.logger.Info("Coupons activated", zap.Int64("count", updated))
	return updated, nil
}

// BulkDeactivate deactivates a batch of coupons.
func (s *couponServiceImpl) BulkDeactivate(ctx context.Context, req *models.BulkDeactivateRequest) (int64, *ServiceError) {
	updated, err := s.repo.BulkDeactivate(ctx, req.Codes)
	if err != nil {
		s.logger.Error("Bulk deactivate failed", zap.Error(err))
		return 0, &ServiceError{StatusCode: 500, Message: "Failed to deactivate coupons"}
	}

	s.logger.Info("Coupons deactivated", zap.Int64("count", updated))
	return updated, nil
}
