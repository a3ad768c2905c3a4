package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Currency used for transaction minting and fraud assessment.
const checkoutCurrency = "USD"

// CheckoutService drives the checkout wizard as an explicit state machine:
// cart -> shipping -> delivery -> payment -> review -> placed. Step
// payloads survive backward navigation; the fraud gate runs exactly once
// per submission attempt at review -> placed.
type CheckoutService interface {
	Get(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError)
	Start(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError)
	SubmitShipping(ctx context.Context, userID string, addr *models.ShippingAddress) (*models.CheckoutSession, *ServiceError)
	SubmitDelivery(ctx context.Context, userID, methodID string) (*models.CheckoutSession, *ServiceError)
	SubmitPayment(ctx context.Context, userID string, payment *models.PaymentSelection) (*models.CheckoutSession, *ServiceError)
	Back(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError)
	ApplyCoupon(ctx context.Context, userID, code string) (*models.CheckoutSession, *ServiceError)
	Submit(ctx context.Context, userID string) (*models.SubmitResult, *ServiceError)
	ConfirmChallenge(ctx context.Context, userID string) (*models.SubmitResult, *ServiceError)
	Abandon(ctx context.Context, userID string) *ServiceError
}

type checkoutServiceImpl struct {
	sessions repository.SessionStore
	carts    CartService
	coupons  CouponService
	orders   OrderService
	risk     RiskClient
	policy   *AdmissionPolicy
	minter   TransactionMinter
	logger   *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	sessions repository.SessionStore,
	carts CartService,
	coupons CouponService,
	orders OrderService,
	risk RiskClient,
	policy *AdmissionPolicy,
	minter TransactionMinter,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		sessions: sessions,
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		risk:     risk,
		policy:   policy,
		minter:   minter,
		logger:   logger,
	}
}

// Get returns the current session, creating one at the cart step when none
// exists.
func (s *checkoutServiceImpl) Get(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError) {
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load checkout session", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load checkout"}
	}
	if session == nil {
		session = &models.CheckoutSession{UserID: userID, State: models.StateCart}
	}

	// A submission that created its order but lost the follow-up session
	// save leaves the in-flight flag stuck. Reconcile against the order
	// store so the shopper is not locked out until the session expires.
	if session.Submitting && session.TransactionID != "" {
		order, svcErr := s.orders.FindByTransaction(ctx, session.TransactionID)
		if svcErr == nil && order != nil {
			session.Submitting = false
			session.State = models.StatePlaced
			session.OrderNumber = order.OrderNumber
			session.StatusMessage = ""
			s.persist(ctx, session)
		}
	}
	return session, nil
}

// Start moves cart -> shipping. It requires a non-empty cart.
func (s *checkoutServiceImpl) Start(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.State != models.StateCart {
		return session, nil
	}

	cart, svcErr := s.carts.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if len(cart.Items) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Cart is empty"}
	}

	session.State = models.StateShipping
	return s.persist(ctx, session)
}

// SubmitShipping stores the address and moves shipping -> delivery. An
// incomplete payload keeps the state unchanged.
func (s *checkoutServiceImpl) SubmitShipping(ctx context.Context, userID string, addr *models.ShippingAddress) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.mutableAt(ctx, userID, models.StateShipping)
	if svcErr != nil {
		return nil, svcErr
	}
	if addr == nil || !addr.Complete() {
		return nil, &ServiceError{StatusCode: 400, Message: "Shipping address is incomplete"}
	}

	session.Shipping = addr
	session.State = models.StateDelivery
	return s.persist(ctx, session)
}

// SubmitDelivery stores the delivery choice and moves delivery -> payment.
func (s *checkoutServiceImpl) SubmitDelivery(ctx context.Context, userID, methodID string) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.mutableAt(ctx, userID, models.StateDelivery)
	if svcErr != nil {
		return nil, svcErr
	}

	method, ok := models.DeliveryMethodByID(methodID)
	if !ok {
		return nil, &ServiceError{StatusCode: 400, Message: "Unknown delivery method"}
	}

	session.Delivery = &method
	session.State = models.StatePayment
	return s.persist(ctx, session)
}

// SubmitPayment stores the payment selection and moves payment -> review.
// Card payments require number, expiry and CVC.
func (s *checkoutServiceImpl) SubmitPayment(ctx context.Context, userID string, payment *models.PaymentSelection) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.mutableAt(ctx, userID, models.StatePayment)
	if svcErr != nil {
		return nil, svcErr
	}
	if payment == nil || !payment.Complete() {
		return nil, &ServiceError{StatusCode: 400, Message: "Payment details are incomplete"}
	}

	session.Payment = payment
	session.State = models.StateReview
	return s.persist(ctx, session)
}

// Back navigates one step backwards, preserving previously entered
// payloads for editing. It is refused once the session is placed or the
// attempt was blocked.
func (s *checkoutServiceImpl) Back(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.State == models.StatePlaced {
		return nil, &ServiceError{StatusCode: 409, Message: "Order already placed"}
	}
	if session.Blocked {
		return nil, &ServiceError{StatusCode: 403, Message: session.StatusMessage}
	}
	if session.Submitting {
		return nil, &ServiceError{StatusCode: 409, Message: "Submission in progress"}
	}

	session.AwaitingChallenge = false
	session.State = models.PrevState(session.State)
	return s.persist(ctx, session)
}

// ApplyCoupon quotes a discount code against the current cart at the
// review step. No redemption is consumed until the order is created.
func (s *checkoutServiceImpl) ApplyCoupon(ctx context.Context, userID, code string) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.mutableAt(ctx, userID, models.StateReview)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.Delivery == nil {
		return nil, &ServiceError{StatusCode: 400, Message: "Select a delivery method first"}
	}

	cart, svcErr := s.carts.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	quote, svcErr := s.coupons.Quote(ctx, code, cart.Subtotal(), session.Delivery.Fee, time.Now())
	if svcErr != nil {
		return nil, svcErr
	}
	if !quote.Valid {
		return nil, &ServiceError{StatusCode: 422, Message: quote.Message, Reason: string(quote.Reason)}
	}

	session.CouponCode = quote.Code
	session.Discount = quote.Discount
	return s.persist(ctx, session)
}

// Submit runs the admission-control gate and, when admitted, creates the
// order. The risk engine is consulted exactly once per attempt; a
// challenge pauses at review and ConfirmChallenge proceeds without a
// second score.
func (s *checkoutServiceImpl) Submit(ctx context.Context, userID string) (*models.SubmitResult, *ServiceError) {
	session, svcErr := s.submittable(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.AwaitingChallenge {
		return &models.SubmitResult{
			RequiresChallenge: true,
			Fraud:             session.Fraud,
			Message:           session.StatusMessage,
		}, nil
	}

	cart, svcErr := s.carts.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if len(cart.Items) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Cart is empty"}
	}

	subtotal := cart.Subtotal()
	total := round2(subtotal - session.Discount + session.Delivery.Fee + round2(subtotal*TaxRate))
	result, evalErr := s.risk.Evaluate(ctx, &models.FraudAssessmentRequest{
		UserID:    userID,
		Email:     session.Shipping.Email,
		Amount:    total,
		Currency:  checkoutCurrency,
		ItemCount: cart.ItemCount(),
		Country:   session.Shipping.Country,
	})
	decision := s.policy.Decide(result, evalErr)
	session.Fraud = result

	switch decision.Outcome {
	case models.AdmissionBlock:
		session.Blocked = true
		session.StatusMessage = decision.Message
		if _, perr := s.persist(ctx, session); perr != nil {
			return nil, perr
		}
		return &models.SubmitResult{
			Blocked: true,
			Fraud:   result,
			Message: decision.Message,
		}, nil

	case models.AdmissionChallenge:
		session.AwaitingChallenge = true
		session.StatusMessage = decision.Message
		if _, perr := s.persist(ctx, session); perr != nil {
			return nil, perr
		}
		return &models.SubmitResult{
			RequiresChallenge: true,
			Fraud:             result,
			Message:           decision.Message,
		}, nil
	}

	return s.placeOrder(ctx, session, cart)
}

// ConfirmChallenge completes a challenged submission using the original
// cart, shipping and payment, without re-running the risk engine.
func (s *checkoutServiceImpl) ConfirmChallenge(ctx context.Context, userID string) (*models.SubmitResult, *ServiceError) {
	session, svcErr := s.submittable(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if !session.AwaitingChallenge {
		return nil, &ServiceError{StatusCode: 409, Message: "No challenge pending"}
	}

	cart, svcErr := s.carts.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}

	session.AwaitingChallenge = false
	return s.placeOrder(ctx, session, cart)
}

// Abandon discards the session. No compensating action is needed because
// no order has been created.
func (s *checkoutServiceImpl) Abandon(ctx context.Context, userID string) *ServiceError {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		s.logger.Error("Failed to clear checkout session", zap.String("user_id", userID), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to abandon checkout"}
	}
	return nil
}

// placeOrder mints the transaction id and hands off to the submission
// service. The persisted Submitting flag disables re-entry while the call
// is in flight.
func (s *checkoutServiceImpl) placeOrder(ctx context.Context, session *models.CheckoutSession, cart *models.Cart) (*models.SubmitResult, *ServiceError) {
	if session.TransactionID == "" {
		token, err := s.minter.Mint(ctx, cart.Subtotal(), checkoutCurrency)
		if err != nil {
			// Minting failure must not block checkout.
			s.logger.Warn("Transaction minting failed, using local token", zap.Error(err))
			token = "txn_" + uuid.NewString()
		}
		session.TransactionID = token
	}

	session.Submitting = true
	if _, perr := s.persist(ctx, session); perr != nil {
		return nil, perr
	}

	audit := ""
	if session.Fraud != nil {
		audit = fmt.Sprintf("fraud screening: score=%d reasons=[%s]",
			session.Fraud.RiskScore, strings.Join(session.Fraud.Reasons, ", "))
	}

	order, svcErr := s.orders.Submit(ctx, &SubmitOrderRequest{
		UserID:        session.UserID,
		TransactionID: session.TransactionID,
		Cart:          cart,
		Shipping:      session.Shipping,
		DeliveryID:    session.Delivery.ID,
		Payment:       session.Payment,
		CouponCode:    session.CouponCode,
		FraudAudit:    audit,
	})

	session.Submitting = false
	if svcErr != nil {
		// The attempt failed without creating an order; the shopper stays
		// at review and may retry.
		if _, perr := s.persist(ctx, session); perr != nil {
			return nil, perr
		}
		return nil, svcErr
	}

	session.State = models.StatePlaced
	session.OrderNumber = order.OrderNumber
	session.StatusMessage = ""
	if _, perr := s.persist(ctx, session); perr != nil {
		return nil, perr
	}

	if cerr := s.carts.Clear(ctx, session.UserID); cerr != nil {
		s.logger.Warn("Failed to clear cart after placement", zap.String("user_id", session.UserID))
	}

	return &models.SubmitResult{Success: true, OrderNumber: order.OrderNumber}, nil
}

// mutableAt loads the session and checks it sits at the expected step and
// is not locked by a terminal or in-flight condition.
func (s *checkoutServiceImpl) mutableAt(ctx context.Context, userID string, state models.CheckoutState) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.State == models.StatePlaced {
		return nil, &ServiceError{StatusCode: 409, Message: "Order already placed"}
	}
	if session.Blocked {
		return nil, &ServiceError{StatusCode: 403, Message: session.StatusMessage}
	}
	if session.Submitting {
		return nil, &ServiceError{StatusCode: 409, Message: "Submission in progress"}
	}
	if session.State != state {
		return nil, &ServiceError{
			StatusCode: 409,
			Message:    fmt.Sprintf("Checkout is at the %s step", session.State),
		}
	}
	return session, nil
}

// submittable is mutableAt for the review step.
func (s *checkoutServiceImpl) submittable(ctx context.Context, userID string) (*models.CheckoutSession, *ServiceError) {
	session, svcErr := s.Get(ctx, userID)
	if svcErr != nil {
		return nil, svcErr
	}
	if session.State == models.StatePlaced {
		return nil, &ServiceError{StatusCode: 409, Message: "Order already placed"}
	}
	if session.Blocked {
		return nil, &ServiceError{StatusCode: 403, Message: session.StatusMessage}
	}
	if session.Submitting {
		return nil, &ServiceError{StatusCode: 409, Message: "Submission in progress"}
	}
	if session.State != models.StateReview {
		return nil, &ServiceError{StatusCode: 409, Message: "Checkout is not at review"}
	}
	if session.Shipping == nil || session.Delivery == nil || session.Payment == nil {
		return nil, &ServiceError{StatusCode: 400, Message: "Checkout steps are incomplete"}
	}
	return session, nil
}

func (s *checkoutServiceImpl) persist(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, *ServiceError) {
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to save checkout session", zap.String("user_id", session.UserID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to save checkout"}
	}
	return session, nil
}
