package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/pawtrack/pawtrack/internal/api"
	"github.com/pawtrack/pawtrack/internal/config"
	"github.com/pawtrack/pawtrack/internal/notify"
	"github.com/pawtrack/pawtrack/internal/repository/postgres"
	"github.com/pawtrack/pawtrack/internal/service"
	"github.com/pawtrack/pawtrack/pkg/logger"
)

func main() {
	// A missing .env file is fine in production; variables come from the
	// environment there.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting pawtrack...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db.DB)
	sessionRepo := postgres.NewSessionRepository(db.DB)
	petRepo := postgres.NewPetRepository(db.DB)
	eventRepo := postgres.NewEventRepository(db.DB)
	notifLogRepo := postgres.NewNotificationLogRepository(db.DB)
	completionRepo := postgres.NewCompletionRepository(db.DB)

	// Outbound gateways
	caller, err := notify.NewUCallerClient(cfg.UCallerAPIKey, cfg.UCallerService, cfg.UCallerAPIURL, l)
	if err != nil {
		l.Fatalf("Failed to create calling gateway client: %v", err)
	}
	pusher := notify.NewPushClient(cfg.PushGatewayURL, cfg.PushToken, cfg.DispatchTimeout, l)

	// Service layer
	svc := service.New(l,
		userRepo, sessionRepo, petRepo,
		eventRepo, notifLogRepo, completionRepo,
		caller, pusher, cfg.DispatchTimeout,
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Notification sweep, once per minute. RunTick itself skips the sweep
	// when the previous one is still running.
	sweepLog := logger.WithComponent(l, "scheduler")
	sched := cron.New()
	if _, err := sched.AddFunc("* * * * *", func() {
		if err := svc.RunTick(ctx); err != nil {
			sweepLog.Errorf("Notification sweep finished with errors: %v", err)
		}
	}); err != nil {
		l.Fatalf("Failed to schedule notification sweep: %v", err)
	}
	sched.Start()

	// Expired sessions are purged once a day.
	if _, err := sched.AddFunc("30 3 * * *", func() {
		if n, err := sessionRepo.DeleteExpired(ctx, time.Now().UTC()); err != nil {
			sweepLog.Errorf("Failed to purge expired sessions: %v", err)
		} else if n > 0 {
			sweepLog.Infof("Purged %d expired sessions", n)
		}
	}); err != nil {
		l.Fatalf("Failed to schedule session purge: %v", err)
	}

	// HTTP server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("pawtrack started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")

	stopCtx := sched.Stop()
	<-stopCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown error: %v", err)
	}

	l.Info("pawtrack stopped")
}
