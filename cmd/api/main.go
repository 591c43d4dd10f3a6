package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/todolists/todolists-go/internal/config"
	"github.com/todolists/todolists-go/internal/crypto"
	"github.com/todolists/todolists-go/internal/handler"
	"github.com/todolists/todolists-go/internal/middleware"
	"github.com/todolists/todolists-go/internal/repository"
	"github.com/todolists/todolists-go/internal/service"
	"github.com/todolists/todolists-go/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	err = repository.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(db)
	listRepo := repository.NewListRepository(db)

	creds := service.NewCredentials(userRepo, crypto.NewArgon2Hasher(crypto.DefaultHashParams()))
	sessions := session.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           service.NewAuthService(creds, sessions),
		Todos:          service.NewTodoService(listRepo, userRepo),
		Sessions:       sessions,
		AuthLimiter:    limiter,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
