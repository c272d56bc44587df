// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package identity

import (
	"context"
	"sync"
	"time"

	"codeberg.org/slabseller/accounts/internal/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultSkew is how long before its expiry a cached token is refreshed.
const DefaultSkew = 30 * time.Second

// fallbackLifetime applies to tokens issued without an expiry.
const fallbackLifetime = time.Minute

// FetchFunc obtains a fresh admin token.
type FetchFunc func(ctx context.Context) (*oauth2.Token, error)

// TokenCache holds one admin access token and refreshes it on demand.
// Concurrent callers that find the token expired share a single refresh.
type TokenCache struct {
	fetch FetchFunc
	now   func() time.Time
	skew  time.Duration

	mu         sync.Mutex
	value      string
	validUntil time.Time

	group singleflight.Group
}

// NewTokenCache creates an empty cache around fetch.
func NewTokenCache(fetch FetchFunc) *TokenCache {
	return &TokenCache{
		fetch: fetch,
		now:   time.Now,
		skew:  DefaultSkew,
	}
}

// SetClock replaces the time source.
func (c *TokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Token returns the cached token or fetches a new one.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if tok, ok := c.cached(); ok {
			return tok, nil
		}

		// The shared refresh must not die with the first caller's request.
		tok, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			metrics.RecordTokenRefresh("failed")
			return "", err
		}
		metrics.RecordTokenRefresh("success")

		c.store(tok)
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.validUntil = time.Time{}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == "" || !c.now().Before(c.validUntil) {
		return "", false
	}
	return c.value, true
}

func (c *TokenCache) store(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	until := now.Add(fallbackLifetime)
	if !tok.Expiry.IsZero() {
		until = tok.Expiry.Add(-c.skew)
		// Short-lived tokens are kept for half their lifetime instead.
		if half := now.Add(tok.Expiry.Sub(now) / 2); until.Before(half) {
			until = half
		}
	}

	c.value = tok.AccessToken
	c.validUntil = until
}
