package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"checkout-service/models"

	"gorm.io/gorm"
)

// ErrCouponRedemption is returned when the conditional redemption update
// matched no row: the coupon is gone, inactive, or its usage cap would be
// exceeded.
var ErrCouponRedemption = errors.New("coupon redemption rejected")

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindAll(ctx context.Context, filter models.CouponFilter, page, limit int) ([]models.Coupon, int64, error)
	Deactivate(ctx context.Context, code string) error
	BulkActivate(ctx context.Context, codes []string, startsAt, expiresAt time.Time) (int64, error)
	BulkDeactivate(ctx context.Context, codes []string) (int64, error)
	// RedeemTx consumes one redemption inside the caller's transaction.
	// The update is conditional on the usage cap so two concurrent
	// checkouts can never jointly overshoot max_uses.
	RedeemTx(tx *gorm.DB, code string) error
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

// Create inserts a new coupon into the database.
func (r *GormCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// FindByCode retrieves a coupon by its code, case-insensitively. Inactive
// coupons are returned too so callers can report the precise rejection
// reason.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindAll retrieves paginated coupons, optionally filtered by activation
// status and type.
func (r *GormCouponRepository) FindAll(ctx context.Context, filter models.CouponFilter, page, limit int) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Coupon{})
	switch filter.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&coupons).Error; err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}

// Deactivate sets is_active = false for a single coupon.
func (r *GormCouponRepository) Deactivate(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BulkActivate activates the given codes with a shared activation window.
func (r *GormCouponRepository) BulkActivate(ctx context.Context, codes []string, startsAt, expiresAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("UPPER(code) IN ?", upperAll(codes)).
		Updates(map[string]interface{}{
			"is_active":  true,
			"starts_at":  startsAt,
			"expires_at": expiresAt,
		})
	return result.RowsAffected, result.Error
}

// BulkDeactivate deactivates the given codes.
func (r *GormCouponRepository) BulkDeactivate(ctx context.Context, codes []string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("UPPER(code) IN ?", upperAll(codes)).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// RedeemTx increments used_count iff the coupon is still active and under
// its cap. Zero rows affected means the redemption lost the race or the
// coupon changed since it was quoted.
func (r *GormCouponRepository) RedeemTx(tx *gorm.DB, code string) error {
	result := tx.
		Model(&models.Coupon{}).
		Where("LOWER(code) = ? AND is_active = ? AND (max_uses = 0 OR used_count < max_uses)",
			strings.ToLower(code), true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCouponRedemption
	}
	return nil
}

func upperAll(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(c)
	}
	return out
}
