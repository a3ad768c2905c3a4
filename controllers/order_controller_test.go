package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/controllers"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// --- Mock services ---

type mockOrderService struct {
	submitFn    func(ctx context.Context, req *services.SubmitOrderRequest) (*models.Order, *services.ServiceError)
	getFn       func(ctx context.Context, id uuid.UUID) (*models.Order, *services.ServiceError)
	userOrdersFn func(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, *services.ServiceError)
	allOrdersFn  func(ctx context.Context, page, limit int) ([]models.Order, int64, *services.ServiceError)
}

func (m *mockOrderService) Submit(ctx context.Context, req *services.SubmitOrderRequest) (*models.Order, *services.ServiceError) {
	return m.submitFn(ctx, req)
}
func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *services.ServiceError) {
	return m.getFn(ctx, id)
}
func (m *mockOrderService) FindByTransaction(ctx context.Context, transactionID string) (*models.Order, *services.ServiceError) {
	return nil, nil
}
func (m *mockOrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, *services.ServiceError) {
	return m.userOrdersFn(ctx, userID, page, limit)
}
func (m *mockOrderService) GetAllOrders(ctx context.Context, page, limit int) ([]models.Order, int64, *services.ServiceError) {
	return m.allOrdersFn(ctx, page, limit)
}

type mockLifecycleService struct {
	calls    int
	updateFn func(ctx context.Context, actorID, actorRole string, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, *services.ServiceError)
}

func (m *mockLifecycleService) UpdateStatus(ctx context.Context, actorID, actorRole string, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, *services.ServiceError) {
	m.calls++
	return m.updateFn(ctx, actorID, actorRole, orderID, req)
}

// --- Helpers ---

func setupOrderRouter(orders services.OrderService, lifecycle services.LifecycleService, role string) *gin.Engine {
	r := gin.New()
	oc := controllers.NewOrderController(orders, lifecycle)

	r.Use(func(c *gin.Context) {
		c.Set("userID", "user-test-id")
		c.Set("role", role)
		c.Next()
	})

	r.GET("/orders", oc.GetMyOrders)
	r.GET("/orders/:id", oc.GetOrder)

	admin := r.Group("/admin/orders", middleware.AdminOnly())
	admin.GET("", oc.GetAllOrders)
	admin.PATCH("/:id/status", oc.UpdateStatus)
	return r
}

// --- Tests ---

func TestController_GetMyOrders(t *testing.T) {
	var gotUser string
	orders := &mockOrderService{
		userOrdersFn: func(_ context.Context, userID string, _, _ int) ([]models.Order, int64, *services.ServiceError) {
			gotUser = userID
			return []models.Order{{ID: uuid.New(), UserID: userID, OrderNumber: "ORD-20260901-AA11BB"}}, 1, nil
		},
	}
	r := setupOrderRouter(orders, &mockLifecycleService{}, "customer")

	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-test-id", gotUser, "Listing is scoped to the caller")
}

func TestController_GetOrder_InvalidID(t *testing.T) {
	r := setupOrderRouter(&mockOrderService{}, &mockLifecycleService{}, "customer")

	req, _ := http.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_UpdateStatus_AdminSuccess(t *testing.T) {
	orderID := uuid.New()
	lifecycle := &mockLifecycleService{
		updateFn: func(_ context.Context, actorID, actorRole string, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, *services.ServiceError) {
			assert.Equal(t, "user-test-id", actorID)
			assert.Equal(t, "admin", actorRole)
			assert.Equal(t, orderID, id)
			return &models.Order{
				ID:            id,
				Status:        req.Status,
				PaymentStatus: req.PaymentStatus,
			}, nil
		},
	}
	r := setupOrderRouter(&mockOrderService{}, lifecycle, "admin")

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{
		Status:        models.OrderStatusShipped,
		PaymentStatus: models.PaymentStatusCompleted,
		Note:          "dispatched via courier X",
	})
	req, _ := http.NewRequest(http.MethodPatch, "/admin/orders/"+orderID.String()+"/status", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, lifecycle.calls)
}

func TestController_UpdateStatus_NonAdminBlockedByMiddleware(t *testing.T) {
	lifecycle := &mockLifecycleService{
		updateFn: func(_ context.Context, _, _ string, _ uuid.UUID, _ *models.UpdateOrderStatusRequest) (*models.Order, *services.ServiceError) {
			return nil, nil
		},
	}
	r := setupOrderRouter(&mockOrderService{}, lifecycle, "customer")

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusShipped})
	req, _ := http.NewRequest(http.MethodPatch, "/admin/orders/"+uuid.NewString()+"/status", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, lifecycle.calls, "Handler must not run for non-admin callers")
}

func TestController_GetAllOrders_NonAdminForbidden(t *testing.T) {
	r := setupOrderRouter(&mockOrderService{}, &mockLifecycleService{}, "customer")

	req, _ := http.NewRequest(http.MethodGet, "/admin/orders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
