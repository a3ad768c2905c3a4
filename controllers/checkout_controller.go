package controllers

import (
	"context"
	"net/http"

	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

// CheckoutController handles HTTP requests for the checkout wizard.
type CheckoutController struct {
	checkoutService services.CheckoutService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(checkoutService services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// GetSession handles GET /checkout.
func (cc *CheckoutController) GetSession(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	session, svcErr := cc.checkoutService.Get(ctx.Request.Context(), userID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session":          session,
		"delivery_methods": models.DeliveryMethods,
	})
}

// Start handles POST /checkout/start.
func (cc *CheckoutController) Start(ctx *gin.Context) {
	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.Start(ctx.Request.Context(), userID)
	})
}

// SubmitShipping handles POST /checkout/shipping.
func (cc *CheckoutController) SubmitShipping(ctx *gin.Context) {
	var addr models.ShippingAddress
	if err := ctx.ShouldBindJSON(&addr); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.SubmitShipping(ctx.Request.Context(), userID, &addr)
	})
}

// SubmitDelivery handles POST /checkout/delivery.
func (cc *CheckoutController) SubmitDelivery(ctx *gin.Context) {
	var req models.SelectDeliveryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.SubmitDelivery(ctx.Request.Context(), userID, req.MethodID)
	})
}

// SubmitPayment handles POST /checkout/payment.
func (cc *CheckoutController) SubmitPayment(ctx *gin.Context) {
	var payment models.PaymentSelection
	if err := ctx.ShouldBindJSON(&payment); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.SubmitPayment(ctx.Request.Context(), userID, &payment)
	})
}

// Back handles POST /checkout/back.
func (cc *CheckoutController) Back(ctx *gin.Context) {
	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.Back(ctx.Request.Context(), userID)
	})
}

// ApplyCoupon handles POST /checkout/coupon.
func (cc *CheckoutController) ApplyCoupon(ctx *gin.Context) {
	var req models.ApplyCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	cc.mutate(ctx, func(userID string) (*models.CheckoutSession, *services.ServiceError) {
		return cc.checkoutService.ApplyCoupon(ctx.Request.Context(), userID, req.Code)
	})
}

// Submit handles POST /checkout/submit.
func (cc *CheckoutController) Submit(ctx *gin.Context) {
	cc.submit(ctx, cc.checkoutService.Submit)
}

// ConfirmChallenge handles POST /checkout/confirm.
func (cc *CheckoutController) ConfirmChallenge(ctx *gin.Context) {
	cc.submit(ctx, cc.checkoutService.ConfirmChallenge)
}

// Abandon handles DELETE /checkout.
func (cc *CheckoutController) Abandon(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if svcErr := cc.checkoutService.Abandon(ctx.Request.Context(), userID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Checkout abandoned"})
}

func (cc *CheckoutController) mutate(ctx *gin.Context, fn func(userID string) (*models.CheckoutSession, *services.ServiceError)) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	session, svcErr := fn(userID)
	if svcErr != nil {
		body := gin.H{"error": svcErr.Message}
		if svcErr.Reason != "" {
			body["reason"] = svcErr.Reason
		}
		ctx.JSON(svcErr.StatusCode, body)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"session": session})
}

func (cc *CheckoutController) submit(ctx *gin.Context, fn func(ctx context.Context, userID string) (*models.SubmitResult, *services.ServiceError)) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, svcErr := fn(ctx.Request.Context(), userID)
	if svcErr != nil {
		body := gin.H{"success": false, "error": svcErr.Message}
		if svcErr.Reason != "" {
			body["reason"] = svcErr.Reason
		}
		ctx.JSON(svcErr.StatusCode, body)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
