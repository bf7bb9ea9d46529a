package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kazutech1/cucker-sub000/config"
	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/logger"
	"github.com/Kazutech1/cucker-sub000/middleware"
	"github.com/Kazutech1/cucker-sub000/routes"
	"github.com/Kazutech1/cucker-sub000/services"
	"github.com/Kazutech1/cucker-sub000/utils"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if _, lerr := logger.Init("info", false); lerr != nil {
			panic(err)
		}
		logger.L.Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.Init(cfg.Logging.Level, cfg.IsDevelopment())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	utils.ConfigureJWT(cfg.Auth)
	utils.ExposeErrors = cfg.IsDevelopment()

	db, err := database.Connect(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}

	// Auto-migrate only in development or on sqlite to avoid accidental production schema changes
	if cfg.IsDevelopment() || cfg.Database.Driver == "sqlite" {
		log.Info("running auto-migration")
		if err := database.RunMigrations(db); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	} else {
		log.Info("production mode, skipping auto-migration")
	}

	created, err := database.EnsureAdmin(db, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword)
	if err != nil {
		log.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	if created {
		log.Info("bootstrap admin created", zap.String("username", cfg.Auth.BootstrapUsername))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	utils.InitRedis(ctx, cfg.Redis)

	ledger := services.NewLedger()
	router := routes.InitRouter(routes.Dependencies{
		Config:  cfg,
		Tasks:   services.NewTaskService(db, ledger, cfg.Tasks.RejectPenaltyRate),
		Catalog: services.NewCatalogService(db),
		Users:   services.NewUserService(db, ledger),
	})

	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery -> router
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(!cfg.IsDevelopment())(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(cfg.Server.MaxBodyBytes)(
					middleware.TimeoutMiddleware(cfg.Server.RequestTimeout)(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go purgeRevokedTokens(ctx, time.Hour)

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server exited")
}

// purgeRevokedTokens drops expired revocation rows until ctx is done.
func purgeRevokedTokens(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := utils.PurgeRevokedTokens(ctx)
			if err != nil {
				logger.L.Warn("purge revoked tokens failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.L.Info("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}
