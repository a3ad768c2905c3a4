package services

import (
	"context"
	"errors"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LifecycleService applies fulfilment/payment transitions to existing
// orders. The two status tracks are independent but updated through one
// transactional write. There is no forward-only ordering: an operator may
// move a status backwards; what is enforced is that the caller is an
// admin and the statuses are known values.
type LifecycleService interface {
	UpdateStatus(ctx context.Context, actorID, actorRole string, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, *ServiceError)
}

type lifecycleServiceImpl struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(orders repository.OrderRepository, logger *zap.Logger) LifecycleService {
	return &lifecycleServiceImpl{orders: orders, logger: logger}
}

// UpdateStatus validates and applies the transition, appending the
// operator note for audit. A caller without the admin role is rejected
// before any mutation.
func (s *lifecycleServiceImpl) UpdateStatus(ctx context.Context, actorID, actorRole string, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, *ServiceError) {
	if actorRole != "admin" {
		return nil, &ServiceError{StatusCode: 403, Message: "Admin role required"}
	}
	if req.Status == "" && req.PaymentStatus == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "No status change requested"}
	}
	if req.Status != "" && !models.ValidOrderStatus(req.Status) {
		return nil, &ServiceError{StatusCode: 400, Message: "Unknown order status"}
	}
	if req.PaymentStatus != "" && !models.ValidPaymentStatus(req.PaymentStatus) {
		return nil, &ServiceError{StatusCode: 400, Message: "Unknown payment status"}
	}

	var note *models.OrderNote
	if req.Note != "" {
		note = &models.OrderNote{
			ID:     uuid.New(),
			Author: actorID,
			Body:   req.Note,
		}
	}

	if err := s.orders.UpdateStatus(ctx, orderID, req.Status, req.PaymentStatus, note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Order not found"}
		}
		s.logger.Error("Status update failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update order"}
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to reload order after update",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch order"}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("actor", actorID),
		zap.String("status", string(req.Status)),
		zap.String("payment_status", string(req.PaymentStatus)))
	return order, nil
}
