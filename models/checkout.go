package models

import "time"

// CheckoutState is a step in the checkout wizard. The session only ever
// moves through the declared order; placed is terminal.
type CheckoutState string

const (
	StateCart     CheckoutState = "cart"
	StateShipping CheckoutState = "shipping"
	StateDelivery CheckoutState = "delivery"
	StatePayment  CheckoutState = "payment"
	StateReview   CheckoutState = "review"
	StatePlaced   CheckoutState = "placed"
)

// stepOrder fixes the forward progression of the wizard.
var stepOrder = []CheckoutState{StateCart, StateShipping, StateDelivery, StatePayment, StateReview, StatePlaced}

// StepIndex returns the position of s in the wizard, or -1 if unknown.
func StepIndex(s CheckoutState) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// PrevState returns the state before s, or s itself when already at the
// start or terminal.
func PrevState(s CheckoutState) CheckoutState {
	i := StepIndex(s)
	if i <= 0 || s == StatePlaced {
		return s
	}
	return stepOrder[i-1]
}

// CheckoutSession is the explicit state machine for one checkout attempt.
// Step payloads are retained across backward navigation; once placed the
// session is immutable and a fresh checkout starts a new one.
type CheckoutSession struct {
	UserID string        `json:"user_id"`
	State  CheckoutState `json:"state"`

	Shipping *ShippingAddress  `json:"shipping,omitempty"`
	Delivery *DeliveryMethod   `json:"delivery,omitempty"`
	Payment  *PaymentSelection `json:"payment,omitempty"`

	CouponCode string  `json:"coupon_code,omitempty"`
	Discount   float64 `json:"discount"`

	// Submission bookkeeping. Submitting disables re-entry while a call is
	// in flight; Blocked is terminal for the attempt; AwaitingChallenge
	// holds the session at review until the shopper explicitly confirms.
	Submitting        bool              `json:"submitting"`
	AwaitingChallenge bool              `json:"awaiting_challenge"`
	Blocked           bool              `json:"blocked"`
	Fraud             *FraudCheckResult `json:"fraud,omitempty"`
	StatusMessage     string            `json:"status_message,omitempty"`

	TransactionID string    `json:"transaction_id,omitempty"`
	OrderNumber   string    `json:"order_number,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SubmitResult is what a submission attempt reports back to the shopper.
type SubmitResult struct {
	Success           bool              `json:"success"`
	OrderNumber       string            `json:"order_number,omitempty"`
	RequiresChallenge bool              `json:"requires_challenge,omitempty"`
	Blocked           bool              `json:"blocked,omitempty"`
	Fraud             *FraudCheckResult `json:"fraud,omitempty"`
	Message           string            `json:"message,omitempty"`
}

// ApplyCouponRequest is the checkout payload for applying a discount code.
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// SelectDeliveryRequest is the delivery step payload.
type SelectDeliveryRequest struct {
	MethodID string `json:"method_id" binding:"required"`
}
