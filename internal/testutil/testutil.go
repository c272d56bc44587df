// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/slabseller/accounts/internal/database"
	"codeberg.org/slabseller/accounts/internal/models"
	"codeberg.org/slabseller/accounts/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// Epoch is the fixed instant tests use as t=0.
var Epoch = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestRecoveryRequest stores a recovery request sent at the given time.
func NewTestRecoveryRequest(t *testing.T, repo *repository.Repository, email, handle string, sentAt time.Time, ttl time.Duration) *models.RecoveryRequest {
	t.Helper()
	expiry := sentAt.Add(ttl)
	req := &models.RecoveryRequest{
		Email:      email,
		Handle:     handle,
		SendTime:   sentAt,
		ExpiryTime: &expiry,
	}
	require.NoError(t, repo.CreateRecoveryRequest(context.Background(), req))
	return req
}

// CountRecoveryRequests returns how many requests are stored for an owner,
// used or not.
func CountRecoveryRequests(t *testing.T, repo *repository.Repository, email string) int {
	t.Helper()
	rows, err := repo.ListRecoveryRequestsForOwner(context.Background(), email)
	require.NoError(t, err)
	return len(rows)
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	return c.now
}

// Set moves the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.now = t
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
