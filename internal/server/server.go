// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package server

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

	"codeberg.org/slabseller/accounts/internal/config"
	"codeberg.org/slabseller/accounts/internal/database"
	"codeberg.org/slabseller/accounts/internal/handlers"
	"codeberg.org/slabseller/accounts/internal/i18n"
	"codeberg.org/slabseller/accounts/internal/repository"
	"codeberg.org/slabseller/accounts/internal/services/email"
	"codeberg.org/slabseller/accounts/internal/services/identity"
	"codeberg.org/slabseller/accounts/internal/services/recovery"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"postgres", database.IsPostgres(cfg.Database.DSN),
	)

	warnOnUnsafeSettings(cfg)

	// Database, migrations are applied on open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository
	repo := repository.New(db)

	// Collaborators
	mailer, err := email.New(&cfg.Mail, &cfg.SMTP)
	if err != nil {
		return fmt.Errorf("failed to create mail sender: %w", err)
	}

	idp, err := identity.NewClient(&cfg.Identity)
	if err != nil {
		return fmt.Errorf("failed to create identity client: %w", err)
	}

	svc := recovery.NewService(repo, idp, mailer, &cfg.Recovery)

	e := New(cfg, handlers.New(repo, svc, idp))

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the Echo instance with middleware and routes.
func New(cfg *config.Config, h *handlers.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, h)

	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, h *handlers.Handlers) {
	e.GET("/health", h.Health)
	if cfg.Server.MetricsToken != "" {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), metricsAuth(cfg.Server.MetricsToken))
	}

	api := e.Group("/api/v1/user")

	pr := api.Group("/passwordrecovery")
	if cfg.Server.RateLimit > 0 {
		pr.Use(NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst).Middleware())
	}
	pr.POST("/request", h.RequestRecovery)
	pr.POST("/verify", h.VerifyHandle)
	pr.GET("/email/:handle", h.HandleOwner)
	pr.POST("/update", h.CompleteRecovery)
	pr.POST("/temporary", h.IssueTemporaryPassword)

	api.PUT("/info", h.UpdateUserInfo)
}

// warnOnUnsafeSettings logs settings that are fine on a workstation but
// break a deployment.
func warnOnUnsafeSettings(cfg *config.Config) {
	if (cfg.Mail.Driver == email.DriverLog || cfg.Mail.Driver == "") && !cfg.Server.IsLocal() {
		slog.Warn("mail delivery disabled, recovery emails are only logged",
			"mail_driver", email.DriverLog,
			"base_url", cfg.Server.BaseURL,
		)
	}
	if cfg.Server.MetricsToken == "" {
		slog.Info("metrics endpoint disabled, no metrics token configured")
	}
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
