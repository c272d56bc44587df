// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/slabseller/accounts/internal/services/identity"
	"github.com/labstack/echo/v4"
)

type updateUserRequest struct {
	UserID string `json:"user_id"`
	identity.UserPatch
}

// UpdateUserInfo forwards a partial profile update with the caller's own
// bearer token. The identity provider decides whether the token may change
// that user.
func (h *Handlers) UpdateUserInfo(c echo.Context) error {
	token, found := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return Unauthorized(c)
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}
	if req.UserID == "" {
		return BadRequest(c)
	}

	ctx := identity.WithBearer(c.Request().Context(), strings.TrimSpace(token))
	err := h.users.UpdateUser(ctx, req.UserID, req.UserPatch)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, identity.ErrUnauthorized), errors.Is(err, identity.ErrUserNotFound):
		return Unauthorized(c)
	default:
		slog.Error("updating user failed", "error", err)
		return JSONError(c, http.StatusInternalServerError, CategoryServerError)
	}
}
