// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/slabseller/accounts/internal/handlers"
	"codeberg.org/slabseller/accounts/internal/i18n"
	"codeberg.org/slabseller/accounts/internal/services/identity"
	"codeberg.org/slabseller/accounts/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Error messages are localized
	_ = i18n.Init()
}

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

// stubRecovery returns a fixed error from every operation.
type stubRecovery struct {
	err     error
	owner   string
	calls   []string
	lastArg []string
}

func (s *stubRecovery) record(op string, args ...string) {
	s.calls = append(s.calls, op)
	s.lastArg = args
}

func (s *stubRecovery) RequestRecovery(_ context.Context, email string) error {
	s.record("request", email)
	return s.err
}

func (s *stubRecovery) ValidateHandle(_ context.Context, handle string) error {
	s.record("validate", handle)
	return s.err
}

func (s *stubRecovery) OwnerForHandle(_ context.Context, handle string) (string, error) {
	s.record("owner", handle)
	return s.owner, s.err
}

func (s *stubRecovery) CompleteRecovery(_ context.Context, handle, newPassword, confirmPassword string) error {
	s.record("complete", handle, newPassword, confirmPassword)
	return s.err
}

func (s *stubRecovery) IssueTemporaryPassword(_ context.Context, handle string) error {
	s.record("temporary", handle)
	return s.err
}

type stubUsers struct {
	err    error
	userID string
	patch  identity.UserPatch
	ctx    context.Context
}

func (s *stubUsers) UpdateUser(ctx context.Context, userID string, patch identity.UserPatch) error {
	s.ctx, s.userID, s.patch = ctx, userID, patch
	return s.err
}

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	h := handlers.New(repo, &stubRecovery{}, &stubUsers{})

	assert.NotNil(t, h)
}

func TestHealth(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	h := handlers.New(repo, &stubRecovery{}, &stubUsers{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Health(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := handlers.New(stubPinger{err: errors.New("closed")}, &stubRecovery{}, &stubUsers{})

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestUpdateUserInfo(t *testing.T) {
	users := &stubUsers{}
	h := handlers.New(stubPinger{}, &stubRecovery{}, users)
	e := echo.New()

	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/user/info",
		strings.NewReader(`{"user_id":"u-1","firstName":"Ada"}`))
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer user-token")

	require.NoError(t, h.UpdateUserInfo(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-1", users.userID)
	require.NotNil(t, users.patch.FirstName)
	assert.Equal(t, "Ada", *users.patch.FirstName)
	assert.Nil(t, users.patch.Email)
	assert.Nil(t, users.patch.LastName)
	assert.NotNil(t, users.ctx)
}

func TestUpdateUserInfo_MissingToken(t *testing.T) {
	users := &stubUsers{}
	h := handlers.New(stubPinger{}, &stubRecovery{}, users)
	e := echo.New()

	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/user/info",
		strings.NewReader(`{"user_id":"u-1","firstName":"Ada"}`))

	require.NoError(t, h.UpdateUserInfo(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, users.userID)
}

func TestUpdateUserInfo_MissingUserID(t *testing.T) {
	h := handlers.New(stubPinger{}, &stubRecovery{}, &stubUsers{})
	e := echo.New()

	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/user/info", strings.NewReader(`{"email":"a@example.com"}`))
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer user-token")

	require.NoError(t, h.UpdateUserInfo(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUserInfo_UpstreamErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: identity.ErrUnauthorized, code: http.StatusUnauthorized},
		{err: identity.ErrUserNotFound, code: http.StatusUnauthorized},
		{err: identity.ErrUnexpectedStatus, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := handlers.New(stubPinger{}, &stubRecovery{}, &stubUsers{err: tt.err})
			e := echo.New()

			c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/user/info",
				strings.NewReader(`{"user_id":"u-1","lastName":"Lovelace"}`))
			c.Request().Header.Set(echo.HeaderAuthorization, "Bearer user-token")

			require.NoError(t, h.UpdateUserInfo(c))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
