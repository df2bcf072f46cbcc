package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harborview-Hotels/service-booking/internal/application"
	"github.com/Harborview-Hotels/service-booking/internal/config"
	"github.com/Harborview-Hotels/service-booking/internal/events"
	"github.com/Harborview-Hotels/service-booking/internal/handler"
	"github.com/Harborview-Hotels/service-booking/internal/platform/auth"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
	"github.com/Harborview-Hotels/service-booking/internal/platform/database"
	"github.com/Harborview-Hotels/service-booking/internal/platform/health"
	"github.com/Harborview-Hotels/service-booking/internal/platform/kafka"
	"github.com/Harborview-Hotels/service-booking/internal/platform/logger"
	"github.com/Harborview-Hotels/service-booking/internal/platform/middleware"
	"github.com/Harborview-Hotels/service-booking/internal/repository"
	"github.com/Harborview-Hotels/service-booking/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
	)

	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.BookingModel{},
			&repository.RoomModel{},
			&repository.BookingNumberSeqModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DB.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 15*time.Minute)

	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	bookingRepo := repository.NewGormBookingRepository(db)
	roomRepo := repository.NewGormRoomRepository(db)
	numberAllocator := repository.NewGormNumberAllocator(db)

	publisher := events.NewKafkaPublisher(kafkaProducer, log)
	clk := clock.System{}

	bookingService := application.NewBookingService(
		bookingRepo,
		roomRepo,
		numberAllocator,
		application.AllowAllReferences{},
		publisher,
		clk,
		log,
	)

	// Reconciliation runs on its own cancellable context, independent of the
	// request path.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := scheduler.New(
		bookingService,
		cfg.Scheduler.BookingSweepInterval,
		cfg.Scheduler.RoomSweepInterval,
		clk,
		log,
	)
	schedulerDone := make(chan struct{})
	go func() {
		reconciler.Start(ctx)
		close(schedulerDone)
	}()

	bookingHandler := handler.NewBookingHandler(bookingService)
	adminHandler := handler.NewAdminBookingHandler(bookingService, clk)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	healthHandler := health.NewHandler(db, "service-booking")
	healthHandler.RegisterRoutes(router)

	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stop the scheduler first so no sweep starts mid-shutdown.
	cancel()
	select {
	case <-schedulerDone:
	case <-time.After(30 * time.Second):
		log.Warn("scheduler did not stop within deadline")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
