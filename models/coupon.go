package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponType represents the type of discount a coupon provides.
type CouponType string

const (
	CouponTypePercentage   CouponType = "PERCENTAGE"
	CouponTypeFixedAmount  CouponType = "FIXED_AMOUNT"
	CouponTypeFreeShipping CouponType = "FREE_SHIPPING"
)

// CouponReason is a machine-readable rejection code for a coupon that
// cannot be applied.
type CouponReason string

const (
	CouponNotFound     CouponReason = "not_found"
	CouponInactive     CouponReason = "inactive"
	CouponNotYetActive CouponReason = "not_yet_active"
	CouponExpired      CouponReason = "expired"
	CouponExhausted    CouponReason = "exhausted"
	CouponBelowMinimum CouponReason = "below_minimum"
)

// Coupon represents a promotional coupon stored in Postgres. Codes are
// stored uppercased; lookups are case-insensitive. MaxUses of 0 means
// unlimited redemptions.
type Coupon struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Description string         `gorm:"type:varchar(255)" json:"description,omitempty"`
	Type        CouponType     `gorm:"type:varchar(20);not null" json:"type"`
	Value       float64        `gorm:"not null" json:"value"`
	MinAmount   float64        `gorm:"not null;default:0" json:"min_amount"`
	MaxUses     int            `gorm:"not null;default:0" json:"max_uses"`
	UsedCount   int            `gorm:"not null;default:0" json:"used_count"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// EffectiveAt reports whether the coupon is live at the given instant:
// active, past its start date, and not past its expiry.
func (c *Coupon) EffectiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}

// CreateCouponRequest is the payload for creating a new coupon.
type CreateCouponRequest struct {
	Code        string     `json:"code" binding:"required,min=3,max=64"`
	Description string     `json:"description"`
	Type        CouponType `json:"type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value       float64    `json:"value" binding:"required,gte=0"`
	MinAmount   float64    `json:"min_amount" binding:"gte=0"`
	MaxUses     int        `json:"max_uses" binding:"gte=0"`
	IsActive    bool       `json:"is_active"`
	StartsAt    *time.Time `json:"starts_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// BulkActivateRequest activates a set of coupons with a shared activation
// window. Both dates are required by the admin surface.
type BulkActivateRequest struct {
	Codes     []string  `json:"codes" binding:"required,min=1"`
	StartsAt  time.Time `json:"starts_at" binding:"required"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

// BulkDeactivateRequest deactivates a set of coupons.
type BulkDeactivateRequest struct {
	Codes []string `json:"codes" binding:"required,min=1"`
}

// ValidateCouponRequest is the payload for quoting a coupon against a cart.
type ValidateCouponRequest struct {
	Code        string  `json:"code" binding:"required"`
	Subtotal    float64 `json:"subtotal" binding:"required,gt=0"`
	ShippingFee float64 `json:"shipping_fee" binding:"gte=0"`
}

// CouponQuote is the result of validating a coupon. Quoting never consumes
// a redemption; UsedCount moves only when an order is durably created.
type CouponQuote struct {
	Valid        bool         `json:"valid"`
	Code         string       `json:"code"`
	Type         CouponType   `json:"type,omitempty"`
	Discount     float64      `json:"discount"`
	FreeShipping bool         `json:"free_shipping"`
	Reason       CouponReason `json:"reason,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// CouponFilter narrows admin coupon listings.
type CouponFilter struct {
	Status string // "active", "inactive" or empty
	Type   CouponType
}
