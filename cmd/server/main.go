package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/cache"
	"github.com/tripnest/booking-core/internal/config"
	"github.com/tripnest/booking-core/internal/database"
	"github.com/tripnest/booking-core/internal/handlers"
	"github.com/tripnest/booking-core/internal/middleware"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
	"github.com/tripnest/booking-core/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TripNest booking core")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := database.RunMigrations(migrateCtx, db.DB, logger)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Optional Redis index for pending refunds
	var refundIndex services.PendingRefundIndex = cache.NoopRefundIndex{}
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, pending refunds will be read from Postgres only")
		} else {
			defer redisClient.Close()
			refundIndex = cache.NewRedisRefundIndex(redisClient, cfg.Redis.TTL, logger)
			logger.Info("Redis pending refund index enabled")
		}
	}

	// Initialize repositories
	scheduleRepo := database.NewScheduleRepository(db.DB)
	roomRepo := database.NewRoomRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	billRepo := database.NewBillRepository(db.DB)
	voucherRepo := database.NewVoucherRepository(db.DB)
	qrRepo := database.NewQRPaymentRepository(db.DB)
	refundRepo := database.NewRefundRepository(db.DB)
	paymentAuditRepo := database.NewPaymentAuditRepository(db.DB, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authz := services.NewAuthorizer()

	refundPolicy, err := services.NewRefundPolicy(cfg.Refund.Policy)
	if err != nil {
		logger.Fatalf("Invalid refund policy: %v", err)
	}

	var auditService *services.AuditService
	if cfg.Security.EnableAuditLog {
		auditService = services.NewAuditService(database.NewAuditLogRepository(db.DB))
	}

	scheduleService := services.NewScheduleAvailabilityService(scheduleRepo, authz, logger)
	roomService := services.NewRoomAvailabilityService(roomRepo)
	billingService := services.NewBillingService(billRepo, voucherRepo, bookingRepo, roomRepo, scheduleRepo, authz,
		paymentAuditRepo, services.BillingConfig{DepositRate: cfg.Payment.DepositRate, Currency: cfg.Payment.Currency}, logger)
	orchestrator := services.NewBookingOrchestratorService(bookingRepo, billRepo, roomRepo, scheduleRepo, billingService,
		authz, paymentAuditRepo, cfg.Payment.Currency, logger)
	qrService := services.NewQRPaymentService(qrRepo, billRepo, bookingRepo, roomRepo, scheduleRepo, authz, paymentAuditRepo,
		services.QRPaymentConfig{
			CodeTTL:  cfg.Payment.QRCodeTTL,
			HashKey:  []byte(cfg.Payment.QRHashKey),
			Currency: cfg.Payment.Currency,
		}, logger)
	refundService := services.NewRefundService(billRepo, refundRepo, bookingRepo, roomRepo, scheduleRepo, authz,
		refundPolicy, refundIndex, paymentAuditRepo, cfg.Payment.Currency, logger)
	logger.WithField("refund_policy", refundPolicy.Name()).Info("Services initialized")

	// Per-IP limiter for the unauthenticated scan endpoint
	scanLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.ScanRequestsPerMinute, cfg.RateLimit.ScanBurst)

	// Cron jobs
	cronService := services.NewCronService(qrService, scheduleService, auditService, logger)
	if err := cronService.AddJob("0 */10 * * * *", "sweep_scan_limiters", func(context.Context) (int64, error) {
		return int64(scanLimiter.Sweep()), nil
	}); err != nil {
		logger.Fatalf("Failed to schedule limiter sweep: %v", err)
	}
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(orchestrator, auditService, logger)
	billHandler := handlers.NewBillHandler(billingService, qrService, auditService, logger)
	refundHandler := handlers.NewRefundHandler(refundService, auditService, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, roomService, auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, cronService))

	auth := middleware.AuthMiddleware(jwtService, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		bookings := v1.Group("/bookings", auth)
		{
			bookings.POST("/hotel", bookingHandler.CreateHotelBooking)
			bookings.POST("/tour", bookingHandler.CreateTourBooking)
			bookings.GET("/my", bookingHandler.GetMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)

			for _, kind := range []models.BookingKind{models.BookingKindHotel, models.BookingKindTour} {
				prefix := "/" + string(kind) + "/:id"
				bookings.PUT(prefix+"/check-in", bookingHandler.CheckIn(kind))
				bookings.PUT(prefix+"/check-out", bookingHandler.CheckOut(kind))
				bookings.PUT(prefix+"/customer-cancel", bookingHandler.CustomerCancel(kind))
			}
		}

		bills := v1.Group("/bills")
		{
			// Scanners are unauthenticated devices; the code itself is the credential
			bills.GET("/qr/scan",
				middleware.RateLimitMiddleware(scanLimiter, logger, handlers.RateLimitAuditHook(auditService, logger)),
				billHandler.ScanQRPayment)

			protected := bills.Group("", auth)
			protected.POST("/qr/create", billHandler.CreateQRPayment)
			protected.GET("/qr/status/:bill_id", billHandler.GetPaymentStatus)
			protected.PUT("/apply-voucher", billHandler.ApplyVoucher)
			protected.GET("/:id", billHandler.GetBill)
			protected.DELETE("/:id/remove-voucher", billHandler.RemoveVoucher)
		}

		refunds := v1.Group("/refunds", auth)
		{
			refunds.POST("", refundHandler.CreateRefund)
			refunds.GET("/pending", middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin), refundHandler.ListPendingRefunds)
			refunds.GET("/:bill_id", refundHandler.GetPendingRefund)
			refunds.PUT("/:bill_id/approve", refundHandler.ApproveRefund)
			refunds.PUT("/:bill_id/reject", refundHandler.RejectRefund)
		}

		schedules := v1.Group("/schedules")
		{
			schedules.GET("/bookable", scheduleHandler.GetBookableSchedules)
			schedules.GET("/:id", scheduleHandler.GetSchedule)

			manage := schedules.Group("", auth, middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin))
			manage.POST("", scheduleHandler.CreateSchedule)
			manage.PUT("/:id", scheduleHandler.UpdateSchedule)
			manage.DELETE("/:id", scheduleHandler.RemoveSchedule)
		}

		v1.GET("/guides/:id/schedules", scheduleHandler.GetGuideSchedules)

		rooms := v1.Group("/rooms")
		{
			rooms.GET("/availability", scheduleHandler.GetRoomsAvailability)
			rooms.GET("/:id/availability", scheduleHandler.GetRoomAvailability)
		}

		if auditService != nil {
			activityHandler := handlers.NewActivityHandler(auditService, logger)
			v1.GET("/activity/me", auth, activityHandler.GetMyActivity)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		// Never log codes presented to the scan endpoint
		if c.Query("code") != "" {
			fields["query"] = "code=[redacted]"
		}

		if principal, exists := middleware.GetPrincipal(c); exists {
			fields["user_id"] = principal.UserID
			fields["role"] = principal.Role
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, cronService *services.CronService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"cron":      cronService.GetJobStatus(),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
