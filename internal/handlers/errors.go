// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/slabseller/accounts/internal/i18n"
	"codeberg.org/slabseller/accounts/internal/services/password"
	"codeberg.org/slabseller/accounts/internal/services/recovery"
	"github.com/labstack/echo/v4"
)

// Error categories returned to clients.
const (
	CategoryBadRequest       = "bad_request"
	CategoryInvalidEmail     = "invalid_email"
	CategoryPasswordMismatch = "password_mismatch"
	CategoryWeakPassword     = "weak_password"
	CategoryUnauthorized     = "unauthorized"
	CategoryServerError      = "server_error"
	CategoryRateLimited      = "rate_limited"
)

// ErrorResponse is the body of every failed request. It carries a coarse
// category only.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// JSONError writes a localized error body.
func JSONError(c echo.Context, code int, category string, details ...string) error {
	return c.JSON(code, ErrorResponse{
		Error:   category,
		Message: i18n.T(c.Request().Context(), "error_"+category),
		Details: details,
	})
}

// BadRequest writes a 400 for malformed payloads.
func BadRequest(c echo.Context) error {
	return JSONError(c, http.StatusBadRequest, CategoryBadRequest)
}

// Unauthorized writes a 401.
func Unauthorized(c echo.Context) error {
	return JSONError(c, http.StatusUnauthorized, CategoryUnauthorized)
}

// respondError maps a service error to its response. Details of server
// errors are logged and never returned.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, recovery.ErrInvalidEmail):
		return JSONError(c, http.StatusBadRequest, CategoryInvalidEmail)
	case errors.Is(err, recovery.ErrMismatchedConfirmation):
		return JSONError(c, http.StatusBadRequest, CategoryPasswordMismatch)
	case errors.Is(err, recovery.ErrWeakPassword):
		var verr *password.ValidationError
		if errors.As(err, &verr) {
			return JSONError(c, http.StatusBadRequest, CategoryWeakPassword, verr.Codes()...)
		}
		return JSONError(c, http.StatusBadRequest, CategoryWeakPassword)
	case errors.Is(err, recovery.ErrUnauthorized):
		return Unauthorized(c)
	default:
		slog.Error("request failed",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path", c.Path(),
			"error", err,
		)
		return JSONError(c, http.StatusInternalServerError, CategoryServerError)
	}
}
