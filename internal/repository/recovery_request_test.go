// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/slabseller/accounts/internal/models"
	"codeberg.org/slabseller/accounts/internal/repository"
	"codeberg.org/slabseller/accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 15 * time.Minute

func TestCreateRecoveryRequest(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	expiry := testutil.Epoch.Add(ttl)
	req := &models.RecoveryRequest{
		Email:      "ada@example.com",
		Handle:     "handle-1",
		SendTime:   testutil.Epoch,
		ExpiryTime: &expiry,
		Used:       true,
		Disabled:   true,
	}

	err := repo.CreateRecoveryRequest(ctx, req)
	require.NoError(t, err)

	assert.NotZero(t, req.ID)
	assert.False(t, req.Used)
	assert.False(t, req.Disabled)
	assert.Nil(t, req.UsedTime)

	stored, err := repo.GetRecoveryRequestByHandle(ctx, "handle-1")
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.True(t, stored.SendTime.Equal(testutil.Epoch))
	require.NotNil(t, stored.ExpiryTime)
	assert.True(t, stored.ExpiryTime.Equal(expiry))
	assert.False(t, stored.Used)
	assert.False(t, stored.Disabled)
	assert.Nil(t, stored.UsedTime)
}

func TestCreateRecoveryRequest_WithoutExpiry(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	req := &models.RecoveryRequest{Email: "ada@example.com", Handle: "no-expiry", SendTime: testutil.Epoch}
	require.NoError(t, repo.CreateRecoveryRequest(ctx, req))

	stored, err := repo.GetRecoveryRequestByHandle(ctx, "no-expiry")
	require.NoError(t, err)
	assert.Nil(t, stored.ExpiryTime)
}

func TestCreateRecoveryRequest_DuplicateHandle(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "dup", testutil.Epoch, ttl)

	err := repo.CreateRecoveryRequest(ctx, &models.RecoveryRequest{
		Email: "bob@example.com", Handle: "dup", SendTime: testutil.Epoch,
	})
	assert.Error(t, err)
}

func TestCreateRecoveryRequest_KeepsEarlierRequests(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "first", testutil.Epoch, ttl)
	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "second", testutil.Epoch.Add(time.Minute), ttl)

	first, err := repo.GetRecoveryRequestByHandle(ctx, "first")
	require.NoError(t, err)
	assert.False(t, first.Disabled)

	assert.Equal(t, 2, testutil.CountRecoveryRequests(t, repo, "ada@example.com"))
}

func TestGetRecoveryRequestByHandle_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	req, err := repo.GetRecoveryRequestByHandle(context.Background(), "missing")

	assert.Nil(t, req)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListRecoveryRequestsForOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a1", testutil.Epoch, ttl)
	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a2", testutil.Epoch.Add(time.Hour), ttl)
	testutil.NewTestRecoveryRequest(t, repo, "bob@example.com", "b1", testutil.Epoch, ttl)

	reqs, err := repo.ListRecoveryRequestsForOwner(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, "ada@example.com", r.Email)
	}

	none, err := repo.ListRecoveryRequestsForOwner(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListRecoveryRequestsForOwner_IncludesUsedAndDisabled(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	used := testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "used", testutil.Epoch, ttl)
	require.NoError(t, repo.MarkRecoveryRequestUsed(ctx, used.ID, testutil.Epoch.Add(time.Minute)))
	require.NoError(t, repo.InvalidateRecoveryRequestsForOwner(ctx, "ada@example.com"))
	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "fresh", testutil.Epoch.Add(time.Hour), ttl)

	reqs, err := repo.ListRecoveryRequestsForOwner(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}

func TestInvalidateRecoveryRequestsForOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a1", testutil.Epoch, ttl)
	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a2", testutil.Epoch, ttl)
	testutil.NewTestRecoveryRequest(t, repo, "bob@example.com", "b1", testutil.Epoch, ttl)

	require.NoError(t, repo.InvalidateRecoveryRequestsForOwner(ctx, "ada@example.com"))

	reqs, err := repo.ListRecoveryRequestsForOwner(ctx, "ada@example.com")
	require.NoError(t, err)
	for _, r := range reqs {
		assert.True(t, r.Disabled, "request %s should be disabled", r.Handle)
	}

	other, err := repo.GetRecoveryRequestByHandle(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, other.Disabled)
}

func TestInvalidateRecoveryRequestsForOwner_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a1", testutil.Epoch, ttl)

	require.NoError(t, repo.InvalidateRecoveryRequestsForOwner(ctx, "ada@example.com"))
	require.NoError(t, repo.InvalidateRecoveryRequestsForOwner(ctx, "ada@example.com"))
	require.NoError(t, repo.InvalidateRecoveryRequestsForOwner(ctx, "nobody@example.com"))

	req, err := repo.GetRecoveryRequestByHandle(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, req.Disabled)
	assert.False(t, req.Used)
}

func TestMarkRecoveryRequestUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	req := testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a1", testutil.Epoch, ttl)
	usedAt := testutil.Epoch.Add(5 * time.Minute)

	require.NoError(t, repo.MarkRecoveryRequestUsed(ctx, req.ID, usedAt))

	stored, err := repo.GetRecoveryRequestByHandle(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, stored.Used)
	require.NotNil(t, stored.UsedTime)
	assert.True(t, stored.UsedTime.Equal(usedAt))
	assert.False(t, stored.Disabled)
}

func TestMarkRecoveryRequestUsed_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	req := testutil.NewTestRecoveryRequest(t, repo, "ada@example.com", "a1", testutil.Epoch, ttl)
	first := testutil.Epoch.Add(time.Minute)

	require.NoError(t, repo.MarkRecoveryRequestUsed(ctx, req.ID, first))
	err := repo.MarkRecoveryRequestUsed(ctx, req.ID, first.Add(time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := repo.GetRecoveryRequestByHandle(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, stored.UsedTime)
	assert.True(t, stored.UsedTime.Equal(first))
}

func TestMarkRecoveryRequestUsed_UnknownID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.MarkRecoveryRequestUsed(context.Background(), 4711, testutil.Epoch)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
