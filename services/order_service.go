package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/kafka"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaxRate is the flat sales tax applied to the pre-discount subtotal.
const TaxRate = 0.08

// SubmitOrderRequest is everything the submission service needs to create
// an order. Client-computed totals are deliberately absent: the server
// recomputes every amount from authoritative state.
type SubmitOrderRequest struct {
	UserID        string
	TransactionID string
	Cart          *models.Cart
	Shipping      *models.ShippingAddress
	DeliveryID    string
	Payment       *models.PaymentSelection
	CouponCode    string
	FraudAudit    string
}

// OrderService creates orders exactly once per transaction id and owns the
// admin read surface.
type OrderService interface {
	Submit(ctx context.Context, req *SubmitOrderRequest) (*models.Order, *ServiceError)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError)
	// FindByTransaction returns the order minted for an idempotency token,
	// or nil when no order was created for it.
	FindByTransaction(ctx context.Context, transactionID string) (*models.Order, *ServiceError)
	GetUserOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, *ServiceError)
	GetAllOrders(ctx context.Context, page, limit int) ([]models.Order, int64, *ServiceError)
}

type orderServiceImpl struct {
	orders   repository.OrderRepository
	coupons  CouponService
	producer kafka.ProducerAPI
	topic    string
	sns      aws_pkg.SNSPublisher
	snsTopic string
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. The Kafka producer and SNS
// publisher are optional; events are best-effort either way.
func NewOrderService(
	orders repository.OrderRepository,
	coupons CouponService,
	producer kafka.ProducerAPI,
	topic string,
	sns aws_pkg.SNSPublisher,
	snsTopic string,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:   orders,
		coupons:  coupons,
		producer: producer,
		topic:    topic,
		sns:      sns,
		snsTopic: snsTopic,
		logger:   logger,
	}
}

// Submit revalidates everything server-side, recomputes totals, and
// creates the order in one all-or-nothing write. Resubmitting the same
// transaction id returns the original order instead of creating a second
// one.
func (s *orderServiceImpl) Submit(ctx context.Context, req *SubmitOrderRequest) (*models.Order, *ServiceError) {
	if req.TransactionID == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Missing transaction id"}
	}

	if existing, err := s.orders.FindByTransactionID(ctx, req.TransactionID); err == nil && existing != nil {
		s.logger.Info("Duplicate submission, returning existing order",
			zap.String("transaction_id", req.TransactionID),
			zap.String("order_number", existing.OrderNumber))
		return existing, nil
	}

	// Client-side checks are a UX convenience; this is the trust boundary.
	if req.Cart == nil || len(req.Cart.Items) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Cart is empty"}
	}
	if req.Shipping == nil || !req.Shipping.Complete() {
		return nil, &ServiceError{StatusCode: 400, Message: "Shipping address is incomplete"}
	}
	if req.Payment == nil || !req.Payment.Complete() {
		return nil, &ServiceError{StatusCode: 400, Message: "Payment selection is incomplete"}
	}
	delivery, ok := models.DeliveryMethodByID(req.DeliveryID)
	if !ok {
		return nil, &ServiceError{StatusCode: 400, Message: "Unknown delivery method"}
	}

	subtotal := req.Cart.Subtotal()
	shipping := delivery.Fee
	tax := round2(subtotal * TaxRate)

	// Re-quote the coupon against live state; a coupon that went invalid
	// since the client quoted it is a specific rejection, not a silently
	// dropped discount.
	var discount float64
	if req.CouponCode != "" {
		quote, svcErr := s.coupons.Quote(ctx, req.CouponCode, subtotal, shipping, time.Now())
		if svcErr != nil {
			return nil, svcErr
		}
		if !quote.Valid {
			return nil, &ServiceError{
				StatusCode: 422,
				Message:    quote.Message,
				Reason:     string(quote.Reason),
			}
		}
		discount = round2(quote.Discount)
	}

	total := round2(subtotal - discount + shipping + tax)

	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    newOrderNumber(),
		UserID:         req.UserID,
		TransactionID:  req.TransactionID,
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		FirstName:      req.Shipping.FirstName,
		LastName:       req.Shipping.LastName,
		Email:          req.Shipping.Email,
		Address:        req.Shipping.Address,
		City:           req.Shipping.City,
		State:          req.Shipping.State,
		ZipCode:        req.Shipping.ZipCode,
		Country:        req.Shipping.Country,
		Phone:          req.Shipping.Phone,
		PaymentMethod:  req.Payment.Method,
		ShippingMethod: delivery.ID,
		CouponCode:     strings.ToUpper(req.CouponCode),
		Subtotal:       round2(subtotal),
		Discount:       discount,
		Shipping:       shipping,
		Tax:            tax,
		Total:          total,
	}

	for _, item := range req.Cart.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	if req.FraudAudit != "" {
		order.Notes = append(order.Notes, models.OrderNote{
			ID:     uuid.New(),
			Author: "system",
			Body:   req.FraudAudit,
		})
	}

	if err := s.orders.CreateWithCoupon(ctx, order, order.CouponCode); err != nil {
		switch {
		case errors.Is(err, repository.ErrCouponRedemption):
			return nil, &ServiceError{
				StatusCode: 422,
				Message:    "Coupon is no longer available",
				Reason:     string(models.CouponExhausted),
			}
		case errors.Is(err, repository.ErrDuplicateTransaction):
			if existing, ferr := s.orders.FindByTransactionID(ctx, req.TransactionID); ferr == nil {
				return existing, nil
			}
			return nil, &ServiceError{StatusCode: 409, Message: "Order already placed"}
		default:
			s.logger.Error("Order creation failed", zap.String("user_id", req.UserID), zap.Error(err))
			return nil, &ServiceError{StatusCode: 503, Message: "Failed to place order, please try again"}
		}
	}

	s.logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Float64("total", order.Total))

	s.publishOrderPlaced(ctx, order)
	return order, nil
}

// GetOrder retrieves a single order with its items and notes.
func (s *orderServiceImpl) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("Failed to fetch order", zap.String("order_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

// FindByTransaction looks up the order created for an idempotency token.
// A missing order is not an error here.
func (s *orderServiceImpl) FindByTransaction(ctx context.Context, transactionID string) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("Failed to fetch order by transaction", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}
	return order, nil
}

// GetUserOrders retrieves paginated orders for a specific user.
func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, *ServiceError) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return orders, total, nil
}

// GetAllOrders retrieves paginated orders across users (admin only).
func (s *orderServiceImpl) GetAllOrders(ctx context.Context, page, limit int) ([]models.Order, int64, *ServiceError) {
	orders, total, err := s.orders.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch all orders", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}
	return orders, total, nil
}

// publishOrderPlaced emits the order.placed event to Kafka and SNS. Both
// are best-effort: a failed publish never rolls back a placed order.
func (s *orderServiceImpl) publishOrderPlaced(ctx context.Context, order *models.Order) {
	event := models.OrderPlacedEvent{
		EventType:   "order.placed",
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
		CouponCode:  order.CouponCode,
		Timestamp:   time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal order.placed event", zap.Error(err))
		return
	}

	if s.producer != nil && s.topic != "" {
		if err := s.producer.Publish(s.topic, payload); err != nil {
			s.logger.Error("Kafka publish failed", zap.String("topic", s.topic), zap.Error(err))
		}
	}
	if s.sns != nil && s.snsTopic != "" {
		if err := s.sns.Publish(ctx, s.snsTopic, payload); err != nil {
			s.logger.Error("SNS publish failed", zap.String("topic_arn", s.snsTopic), zap.Error(err))
		}
	}
}

// newOrderNumber mints a display id like ORD-20260901-3FA2C1.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
