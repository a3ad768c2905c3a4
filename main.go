package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/kafka"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := LoadConfig()

	// --- Stores ---
	if err := database.Connect(); err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	if err := database.DB.AutoMigrate(&models.Coupon{}, &models.Order{}, &models.OrderItem{}, &models.OrderNote{}); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}

	// --- Event publishing (best-effort) ---
	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	var snsClient aws_pkg.SNSPublisher
	if cfg.OrderSNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			logger.Warn("AWS config load failed, SNS publishing disabled", zap.Error(err))
		} else {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
	}

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// --- Dependency injection ---
	couponRepo := repository.NewGormCouponRepository(database.DB)
	orderRepo := repository.NewGormOrderRepository(database.DB, couponRepo)
	cartStore := repository.NewRedisCartStore(redisClient, cfg.CartTTL)
	sessionStore := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)

	cartService := services.NewCartService(cartStore, logger)
	couponService := services.NewCouponService(couponRepo, logger)
	orderService := services.NewOrderService(orderRepo, couponService, producer, cfg.OrderEventTopic, snsClient, cfg.OrderSNSTopicARN, logger)
	riskClient := services.NewHTTPRiskClient(cfg.FraudEngineURL)
	policy := services.NewAdmissionPolicy(cfg.FraudFailClosed, logger)
	checkoutService := services.NewCheckoutService(sessionStore, cartService, couponService, orderService, riskClient, policy, services.LocalTransactionMinter{}, logger)
	lifecycleService := services.NewLifecycleService(orderRepo, logger)

	routes.Register(r,
		controllers.NewCartController(cartService),
		controllers.NewCheckoutController(checkoutService),
		controllers.NewCouponController(couponService),
		controllers.NewOrderController(orderService, lifecycleService),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "checkout-service"})
	})

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Checkout Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("Checkout Service stopped gracefully")
}
