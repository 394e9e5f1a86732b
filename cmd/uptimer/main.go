package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uptimer-dev/uptimer/db"
	"github.com/uptimer-dev/uptimer/internal/auth"
	"github.com/uptimer-dev/uptimer/internal/config"
	"github.com/uptimer-dev/uptimer/internal/handlers"
	"github.com/uptimer-dev/uptimer/internal/logger"
	"github.com/uptimer-dev/uptimer/internal/middleware"
	"github.com/uptimer-dev/uptimer/internal/pubsub"
	"github.com/uptimer-dev/uptimer/internal/router"
	"github.com/uptimer-dev/uptimer/internal/scheduler"
	"github.com/uptimer-dev/uptimer/internal/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction())

	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	defer zl.Sync() //nolint:errcheck

	conn, err := db.ConnectDatabase(cfg.DBDriver, cfg.DatabaseURL)

	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.MigrateDatabase(conn); err != nil {
		zl.Fatal("Failed to migrate database", zap.Error(err))
	}

	store := services.NewStore(conn)

	var sender services.Sender = services.NewLogSender(zl)
	if cfg.SMTP.Enabled() {
		sender = services.NewSMTPSender(cfg.SMTP)
	}

	hub := pubsub.NewHub(zl)

	sched := scheduler.New(store, services.NewDispatcher(sender, zl), hub, scheduler.Options{
		Location:  cfg.Location,
		ClientURL: cfg.ClientURL,
		AppIcon:   cfg.AppIcon,
		Logger:    zl,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sched.StartAllActiveMonitors(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("Failed to start monitors", zap.Error(err))
		}
		if err := sched.StartAllActiveSSLMonitors(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("Failed to start SSL monitors", zap.Error(err))
		}
	}()

	jwt, err := auth.NewManager(cfg.JWTSecret)

	if err != nil {
		zl.Fatal("Failed to configure JWT", zap.Error(err))
	}

	h := handlers.New(cfg, store, sched, hub, jwt, zl)
	r := router.NewRouter(cfg, h, middleware.AuthMiddleware(jwt, store))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server shutdown failed", zap.Error(err))
	}

	sched.Shutdown(shutdownCtx)
}
