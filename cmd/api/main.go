package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/spendsight/internal/app"
	"github.com/MrJamesThe3rd/spendsight/internal/config"
	spendHttp "github.com/MrJamesThe3rd/spendsight/internal/http"
	importHandler "github.com/MrJamesThe3rd/spendsight/internal/http/importcsv"
	insightHandler "github.com/MrJamesThe3rd/spendsight/internal/http/insight"
	"github.com/MrJamesThe3rd/spendsight/internal/http/middleware"
	spendHandler "github.com/MrJamesThe3rd/spendsight/internal/http/spend"
	txHandler "github.com/MrJamesThe3rd/spendsight/internal/http/transaction"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		insightH  = insightHandler.NewHandler(a.Insight)
		spendH    = spendHandler.NewHandler(a.Insight)
		accountsH = txHandler.NewHandler(a.Transactions, a.Summary, a.Guard)
	)

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET not set, api routes are unauthenticated")
	}

	opts := spendHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.GlobalRPM, cfg.RateLimit.PerCallerRPM),
		Timeout:        cfg.Server.Timeout,
	}

	if cfg.Import.Enabled {
		opts.Import = importHandler.NewHandler(a.Importer, a.Transactions)
	}

	router := spendHttp.New(opts, insightH, spendH, accountsH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
