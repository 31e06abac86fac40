package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"github.com/TrongtrongJ/eventeer/config"
	"github.com/TrongtrongJ/eventeer/handlers"
	"github.com/TrongtrongJ/eventeer/migrations"
	"github.com/TrongtrongJ/eventeer/monitoring"
	"github.com/TrongtrongJ/eventeer/security"
	"github.com/TrongtrongJ/eventeer/services"
	"github.com/TrongtrongJ/eventeer/store"
	"github.com/TrongtrongJ/eventeer/utils"

	"github.com/labstack/echo/v5"
)

func Start() error {
	// .env is optional outside development.
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}
	st := store.New(db)

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("eventeer-core"))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pn := pubnub.NewPubNub(pnConfig)

	registry := utils.NewCircuitRegistry(utils.CircuitConfig{
		Threshold:    cfg.CircuitThreshold,
		Timeout:      cfg.CircuitTimeout,
		ResetTimeout: cfg.CircuitResetTimeout,
	})

	broadcaster := services.NewPubNubBroadcaster(pn)
	notifier := services.NewNotifyService(redisClient)
	inventory := services.NewInventoryService(st, broadcaster)
	coupons := services.NewCouponService(st, redisClient, cfg.CouponLockTTL, cfg.CouponLockRetries)
	gateway := services.NewMockGateway(redisClient)
	payments := services.NewPaymentService(gateway, nil, registry)
	bookings := services.NewBookingService(st, inventory, coupons, payments, notifier)

	bookingHandler := handlers.NewBookingHandler(bookings)
	couponHandler := handlers.NewCouponHandler(coupons)
	eventHandler := handlers.NewEventHandler(st)
	ticketHandler := handlers.NewTicketHandler(st)
	rateLimiter := security.NewRateLimiter(redisClient)

	e := echo.New()

	e.POST("/events", eventHandler.CreateEvent)
	e.GET("/events", eventHandler.ListEvents)
	e.GET("/events/:id/availability", eventHandler.GetAvailability)

	e.POST("/bookings", bookingHandler.CreateBooking, rateLimiter.BookingRateLimit())
	e.GET("/bookings/:id", bookingHandler.GetBooking)
	e.POST("/bookings/:id/confirm", bookingHandler.ConfirmBooking)
	e.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
	e.GET("/users/:userId/bookings", bookingHandler.ListUserBookings)
	e.GET("/events/:eventId/bookings", bookingHandler.ListEventBookings)

	e.POST("/coupons", couponHandler.CreateCoupon)
	e.GET("/events/:eventId/coupons", couponHandler.ListEventCoupons)
	e.GET("/events/:eventId/coupons/:code", couponHandler.GetCoupon)

	e.POST("/tickets/validate", ticketHandler.ValidateTicket)

	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
		go exportCircuitStates(ctx, registry)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		slog.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("Metrics server failed", "error", err)
	}
}

// exportCircuitStates mirrors breaker states into the metrics gauge.
func exportCircuitStates(ctx context.Context, registry *utils.CircuitRegistry) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for name, state := range registry.Snapshot() {
				monitoring.SetCircuitState(name, int(state))
			}
		case <-ctx.Done():
			return
		}
	}
}
