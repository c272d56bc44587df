// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"codeberg.org/slabseller/accounts/internal/services/identity"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping() error
}

// Recovery is the password recovery service.
type Recovery interface {
	RequestRecovery(ctx context.Context, email string) error
	ValidateHandle(ctx context.Context, handle string) error
	OwnerForHandle(ctx context.Context, handle string) (string, error)
	CompleteRecovery(ctx context.Context, handle, newPassword, confirmPassword string) error
	IssueTemporaryPassword(ctx context.Context, handle string) error
}

// Users updates profile data at the identity provider.
type Users interface {
	UpdateUser(ctx context.Context, userID string, patch identity.UserPatch) error
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	db       Pinger
	recovery Recovery
	users    Users
}

// New creates a new Handlers instance.
func New(db Pinger, recovery Recovery, users Users) *Handlers {
	return &Handlers{db: db, recovery: recovery, users: users}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if err := h.db.Ping(); err != nil {
		slog.Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
