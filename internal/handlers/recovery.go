// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type recoveryRequest struct {
	Email string `json:"email"`
}

type handleRequest struct {
	Handle string `json:"handle"`
}

type completeRequest struct {
	Handle          string `json:"handle"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RequestRecovery issues a recovery link. The response is the same whether
// or not the account exists.
func (h *Handlers) RequestRecovery(c echo.Context) error {
	var req recoveryRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}

	if err := h.recovery.RequestRecovery(c.Request().Context(), req.Email); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// VerifyHandle checks that a recovery handle is still usable.
func (h *Handlers) VerifyHandle(c echo.Context) error {
	var req handleRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}

	if err := h.recovery.ValidateHandle(c.Request().Context(), req.Handle); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// HandleOwner returns the email address a usable handle belongs to.
func (h *Handlers) HandleOwner(c echo.Context) error {
	owner, err := h.recovery.OwnerForHandle(c.Request().Context(), c.Param("handle"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"email": owner})
}

// CompleteRecovery sets a new password through a usable handle.
func (h *Handlers) CompleteRecovery(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}
	if req.NewPassword == "" {
		return BadRequest(c)
	}

	err := h.recovery.CompleteRecovery(c.Request().Context(), req.Handle, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// IssueTemporaryPassword mails a temporary password through a usable handle.
func (h *Handlers) IssueTemporaryPassword(c echo.Context) error {
	var req handleRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest(c)
	}

	if err := h.recovery.IssueTemporaryPassword(c.Request().Context(), req.Handle); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}
