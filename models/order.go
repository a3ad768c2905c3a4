package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the fulfilment track of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// PaymentStatus is the payment track of an order, independent of the
// fulfilment track but carried on the same record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// ValidOrderStatus reports whether s is a known fulfilment status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// Order is a placed order. Totals are frozen at creation time and never
// recomputed from live catalog prices.
type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID        string        `gorm:"not null;index" json:"user_id"`
	TransactionID string        `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"payment_status"`

	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`
	Email     string `gorm:"not null" json:"email"`
	Address   string `gorm:"not null" json:"address"`
	City      string `gorm:"not null" json:"city"`
	State     string `gorm:"not null" json:"state"`
	ZipCode   string `gorm:"not null" json:"zip_code"`
	Country   string `gorm:"not null" json:"country"`
	Phone     string `json:"phone,omitempty"`

	PaymentMethod  string `gorm:"not null" json:"payment_method"`
	ShippingMethod string `gorm:"not null" json:"shipping_method"`
	CouponCode     string `json:"coupon_code,omitempty"`

	Subtotal float64 `gorm:"not null" json:"subtotal"`
	Discount float64 `gorm:"not null;default:0" json:"discount"`
	Shipping float64 `gorm:"not null" json:"shipping"`
	Tax      float64 `gorm:"not null" json:"tax"`
	Total    float64 `gorm:"not null" json:"total"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Notes []OrderNote `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
}

// OrderItem is a line item copied from the cart at order time.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	ProductID string    `gorm:"not null" json:"product_id"`
	Name      string    `gorm:"not null" json:"name"`
	UnitPrice float64   `gorm:"not null" json:"unit_price"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}

// OrderNote is a free-text audit note attached to an order, written on
// creation (fraud audit) and on admin status transitions.
type OrderNote struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Author    string    `gorm:"not null" json:"author"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ShippingAddress is the shipping step payload.
type ShippingAddress struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Address   string `json:"address" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zip_code" binding:"required"`
	Country   string `json:"country" binding:"required"`
	Phone     string `json:"phone"`
}

// Complete reports whether all required address fields are present.
func (a *ShippingAddress) Complete() bool {
	return a.FirstName != "" && a.LastName != "" && a.Email != "" &&
		a.Address != "" && a.City != "" && a.State != "" &&
		a.ZipCode != "" && a.Country != ""
}

// DeliveryMethod is one of a fixed set of shipping options with a flat fee
// and an informational lead time.
type DeliveryMethod struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Fee      float64 `json:"fee"`
	LeadTime string  `json:"lead_time"`
}

// DeliveryMethods is the fixed catalog of delivery options.
var DeliveryMethods = []DeliveryMethod{
	{ID: "standard", Label: "Standard Shipping", Fee: 15.00, LeadTime: "5-7 business days"},
	{ID: "express", Label: "Express Shipping", Fee: 25.00, LeadTime: "2-3 business days"},
	{ID: "overnight", Label: "Overnight Shipping", Fee: 40.00, LeadTime: "1 business day"},
}

// DeliveryMethodByID looks up a delivery method in the fixed catalog.
func DeliveryMethodByID(id string) (DeliveryMethod, bool) {
	for _, m := range DeliveryMethods {
		if m.ID == id {
			return m, true
		}
	}
	return DeliveryMethod{}, false
}

// PaymentSelection is the payment step payload. Card payments require all
// three card fields; non-card methods require none.
type PaymentSelection struct {
	Method     string `json:"method" binding:"required,oneof=card paypal cod"`
	CardNumber string `json:"card_number"`
	CardExpiry string `json:"card_expiry"`
	CardCVC    string `json:"card_cvc"`
}

// Complete reports whether the selection carries everything its method needs.
func (p *PaymentSelection) Complete() bool {
	if p.Method == "" {
		return false
	}
	if p.Method == "card" {
		return p.CardNumber != "" && p.CardExpiry != "" && p.CardCVC != ""
	}
	return true
}

// UpdateOrderStatusRequest is the admin payload for a lifecycle transition.
// Either status may be omitted; both are applied atomically when present.
type UpdateOrderStatusRequest struct {
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Note          string        `json:"note"`
}

// OrderPlacedEvent is published after an order is durably created.
type OrderPlacedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Total       float64   `json:"total"`
	CouponCode  string    `json:"coupon_code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
