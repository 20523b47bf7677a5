package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"hotel-reservation-backend/config"
	"hotel-reservation-backend/internal/api"
	"hotel-reservation-backend/internal/catalog"
	"hotel-reservation-backend/internal/db"
	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/notification"
	"hotel-reservation-backend/internal/payment"
	"hotel-reservation-backend/internal/reservation"
	"hotel-reservation-backend/internal/scheduler"
	"hotel-reservation-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "hotel-backend ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("could not read .env file: %v", err)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured, web push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	if cfg.Catalog.Path != "" {
		if err := catalog.Sync(ctx, appStore, cfg.Catalog.Path); err != nil {
			logger.Fatalf("failed to sync room catalog: %v", err)
		}
	}

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		logger.Fatalf("failed to initialize payment gateway: %v", err)
	}

	var publishers notification.Multi
	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		publishers = append(publishers, pool)
	}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := notification.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logger.Printf("AMQP publisher disabled: %v", err)
		} else {
			defer amqpPublisher.Close()
			publishers = append(publishers, amqpPublisher)
		}
	}

	svc := reservation.NewService(appStore, gateway, publishers, reservation.RealClock{}, reservation.PolicyFromConfig(cfg.Booking))

	// Deferred jobs: hold release and scheduled activation.
	runner := scheduler.NewRunner(appStore, cfg.Scheduler, cfg.WorkerPool.Size)
	runner.Handle(model.JobReleaseHold, func(ctx context.Context, job model.ScheduledJob) error {
		return svc.ReleaseHold(ctx, job.ReservationID)
	})
	runner.Handle(model.JobActivateReservation, func(ctx context.Context, job model.ScheduledJob) error {
		return svc.ActivateScheduled(ctx, job.ReservationID)
	})
	go runner.Run(ctx)

	// Recurring completion sweep, also run once at startup.
	sweep := func() {
		if _, err := svc.SweepCompleted(ctx); err != nil {
			logger.Printf("completion sweep finished with errors: %v", err)
		}
	}
	crons := scheduler.NewCron()
	if err := crons.Register("sweep-completed", cfg.Scheduler.SweepSpec, sweep); err != nil {
		logger.Fatalf("failed to register completion sweep: %v", err)
	}
	go sweep()
	crons.Start()

	// Initialize router
	router := api.NewRouter(&cfg.Server, svc, appStore, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	select {
	case <-crons.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Println("completion sweep still running at shutdown")
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
