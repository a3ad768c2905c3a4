package repository

import (
	"context"
	"errors"
	"strings"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateTransaction is returned when an order with the same
// transaction id already exists; the original order stands.
var ErrDuplicateTransaction = errors.New("transaction already processed")

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// CreateWithCoupon creates the order and, when couponCode is set,
	// consumes one coupon redemption in the same transaction. Either both
	// writes commit or neither does.
	CreateWithCoupon(ctx context.Context, order *models.Order, couponCode string) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	// UpdateStatus applies the fulfilment and/or payment transition and
	// appends the audit note as a single transaction. Empty status values
	// leave that track untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, paymentStatus models.PaymentStatus, note *models.OrderNote) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	coupons CouponRepository
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB, coupons CouponRepository) OrderRepository {
	return &GormOrderRepository{db: db, coupons: coupons}
}

// CreateWithCoupon creates the order, redeeming the coupon first so a cap
// violation aborts before anything is written.
func (r *GormOrderRepository) CreateWithCoupon(ctx context.Context, order *models.Order, couponCode string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if couponCode != "" {
			if err := r.coupons.RedeemTx(tx, couponCode); err != nil {
				return err
			}
		}
		return tx.Create(order).Error
	})
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateTransaction
	}
	return err
}

// FindByTransactionID retrieves the order minted for an idempotency token,
// if any.
func (r *GormOrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID retrieves a single order with its items and notes.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Notes").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID retrieves orders for a specific user with pagination.
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Items").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// FindAll retrieves all orders with pagination.
func (r *GormOrderRepository) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Items").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateStatus applies the requested transitions and the audit note in one
// transaction.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, paymentStatus models.PaymentStatus, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if status != "" {
			updates["status"] = status
		}
		if paymentStatus != "" {
			updates["payment_status"] = paymentStatus
		}

		if len(updates) > 0 {
			result := tx.Model(&models.Order{}).Where("id = ?", id).Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		if note != nil {
			note.OrderID = id
			if err := tx.Create(note).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// isUniqueViolation matches a Postgres duplicate-key failure on the
// transaction_id unique index. Collisions on other unique indexes, such
// as order_number, surface as plain store errors.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "transaction_id")
}
