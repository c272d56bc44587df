// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package identity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/slabseller/accounts/internal/services/identity"
	"codeberg.org/slabseller/accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenCache_CachesUntilExpiry(t *testing.T) {
	clock := testutil.NewClock(testutil.Epoch)
	var calls atomic.Int32
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		n := calls.Add(1)
		return &oauth2.Token{
			AccessToken: "token-" + string(rune('0'+n)),
			Expiry:      clock.Now().Add(5 * time.Minute),
		}, nil
	})
	cache.SetClock(clock.Now)
	ctx := context.Background()

	tok, err := cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	clock.Advance(4 * time.Minute)
	tok, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, int32(1), calls.Load())

	// Inside the skew window the token counts as expired.
	clock.Advance(31 * time.Second)
	tok, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCache_NoExpiryUsesFallback(t *testing.T) {
	clock := testutil.NewClock(testutil.Epoch)
	var calls atomic.Int32
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		return &oauth2.Token{AccessToken: "forever"}, nil
	})
	cache.SetClock(clock.Now)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	clock.Advance(59 * time.Second)
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCache_ShortLivedTokenIsCached(t *testing.T) {
	clock := testutil.NewClock(testutil.Epoch)
	var calls atomic.Int32
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		return &oauth2.Token{
			AccessToken: "short",
			Expiry:      clock.Now().Add(20 * time.Second),
		}, nil
	})
	cache.SetClock(clock.Now)
	ctx := context.Background()

	_, err := cache.Token(ctx)
	require.NoError(t, err)
	_, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(9 * time.Second)
	_, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Half of the 20s lifetime has passed.
	clock.Advance(time.Second)
	_, err = cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCache_Invalidate(t *testing.T) {
	var calls atomic.Int32
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		return &oauth2.Token{AccessToken: "t", Expiry: time.Now().Add(time.Hour)}, nil
	})

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCache_ErrorIsNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("idp down")
		}
		return &oauth2.Token{AccessToken: "recovered", Expiry: time.Now().Add(time.Hour)}, nil
	})

	_, err := cache.Token(context.Background())
	require.Error(t, err)

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", tok)
}

func TestTokenCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	cache := identity.NewTokenCache(func(context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		<-release
		return &oauth2.Token{AccessToken: "shared", Expiry: time.Now().Add(time.Hour)}, nil
	})

	const callers = 32
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = cache.Token(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
}

func TestTokenCache_RefreshSurvivesCallerCancel(t *testing.T) {
	var sawCanceled atomic.Bool
	cache := identity.NewTokenCache(func(ctx context.Context) (*oauth2.Token, error) {
		sawCanceled.Store(ctx.Err() != nil)
		return &oauth2.Token{AccessToken: "t", Expiry: time.Now().Add(time.Hour)}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", tok)
	assert.False(t, sawCanceled.Load())
}
