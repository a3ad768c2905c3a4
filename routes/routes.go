package routes

import (
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Register sets up all routes.
func Register(
	r *gin.Engine,
	cart *controllers.CartController,
	checkout *controllers.CheckoutController,
	coupons *controllers.CouponController,
	orders *controllers.OrderController,
) {
	cartRoutes := r.Group("/cart")
	cartRoutes.Use(middleware.AuthMiddleware())
	cartRoutes.GET("", cart.GetCart)
	cartRoutes.POST("/items", cart.AddItem)
	cartRoutes.PATCH("/items/:product_id", cart.UpdateQuantity)
	cartRoutes.DELETE("/items/:product_id", cart.RemoveItem)
	cartRoutes.DELETE("", cart.ClearCart)

	checkoutRoutes := r.Group("/checkout")
	checkoutRoutes.Use(middleware.AuthMiddleware())
	checkoutRoutes.GET("", checkout.GetSession)
	checkoutRoutes.POST("/start", checkout.Start)
	checkoutRoutes.POST("/shipping", checkout.SubmitShipping)
	checkoutRoutes.POST("/delivery", checkout.SubmitDelivery)
	checkoutRoutes.POST("/payment", checkout.SubmitPayment)
	checkoutRoutes.POST("/back", checkout.Back)
	checkoutRoutes.POST("/coupon", checkout.ApplyCoupon)
	checkoutRoutes.DELETE("", checkout.Abandon)

	// Submission endpoints are rate limited per client IP.
	submitRoutes := checkoutRoutes.Group("")
	submitRoutes.Use(middleware.RateLimit(rate.Limit(1), 5))
	submitRoutes.POST("/submit", checkout.Submit)
	submitRoutes.POST("/confirm", checkout.ConfirmChallenge)

	couponRoutes := r.Group("/coupons")
	couponRoutes.Use(middleware.AuthMiddleware())
	couponRoutes.POST("/validate", coupons.ValidateCoupon)

	couponAdmin := couponRoutes.Group("")
	couponAdmin.Use(middleware.AdminOnly())
	couponAdmin.POST("", coupons.CreateCoupon)
	couponAdmin.GET("", coupons.ListCoupons)
	couponAdmin.GET("/:code", coupons.GetCoupon)
	couponAdmin.DELETE("/:code", coupons.DeactivateCoupon)
	couponAdmin.POST("/bulk-activate", coupons.BulkActivate)
	couponAdmin.POST("/bulk-deactivate", coupons.BulkDeactivate)

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware())
	orderRoutes.GET("", orders.GetMyOrders)
	orderRoutes.GET("/:id", orders.GetOrder)

	orderAdmin := r.Group("/admin/orders")
	orderAdmin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	orderAdmin.GET("", orders.GetAllOrders)
	orderAdmin.PATCH("/:id/status", orders.UpdateStatus)
}
