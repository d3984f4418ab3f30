package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/acmeid/login-orchestrator/internal/config"
	"github.com/acmeid/login-orchestrator/internal/handler"
	"github.com/acmeid/login-orchestrator/internal/infrastructure/notify"
	infraRedis "github.com/acmeid/login-orchestrator/internal/infrastructure/redis"
	"github.com/acmeid/login-orchestrator/internal/orchestration"
	"github.com/acmeid/login-orchestrator/internal/repository"
	"github.com/acmeid/login-orchestrator/internal/service/login"
	"github.com/acmeid/login-orchestrator/internal/workflow"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.Info("Starting login orchestrator...")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repository.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := infraRedis.NewClient(infraRedis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		slog.Error("Redis connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Redis connected")

	userRepo := repository.NewUserRepository(db.Pool)
	challengeRepo := repository.NewChallengeRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)
	instanceStore := repository.NewInstanceRepository(db.Pool)

	notifier := notify.NewLogNotifier()
	loginService := login.NewService(cfg.MFA, userRepo, challengeRepo, notifier, auditRepo)

	activityResultTTL := cfg.Orchestration.ActivityResultTTL
	if activityResultTTL <= 0 {
		activityResultTTL = infraRedis.DefaultActivityResultTTL
	}
	guard := infraRedis.NewActivityGuard(redisClient, activityResultTTL)

	registry := orchestration.NewRegistry()
	runtime := orchestration.NewRuntime(instanceStore, orchestration.NewExecutor(registry, guard))
	workflow.Register(runtime, registry, loginService)
	slog.Info("Orchestration runtime initialized")

	rateLimiter := infraRedis.NewLoginRateLimiter(redisClient, 0, 0)

	healthHandler := handler.NewHealthHandler(db, redisClient)
	loginHandler := handler.NewLoginHandler(runtime, rateLimiter)

	router := handler.NewRouter(cfg, healthHandler, loginHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("Server starting", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	redisClient.Close()
	db.Close()
	slog.Info("Server stopped")
}
