// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package identity talks to the identity provider's admin REST API
// (Keycloak compatible): account lookup and credential updates.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/slabseller/accounts/internal/config"
	"codeberg.org/slabseller/accounts/internal/metrics"
	"codeberg.org/slabseller/accounts/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrUnauthorized is returned when the provider rejects our credentials
	// or the caller's token.
	ErrUnauthorized = errors.New("identity provider: unauthorized")
	// ErrUserNotFound is returned when no user matches an email address.
	ErrUserNotFound = errors.New("identity provider: user not found")
	// ErrUnexpectedStatus is returned for any other non-success response.
	ErrUnexpectedStatus = errors.New("identity provider: unexpected status")

	errTokenRejected = fmt.Errorf("%w: token rejected", ErrUnauthorized)
)

type bearerKey struct{}

// WithBearer makes UpdateUser act with the caller's own token instead of the
// admin token.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

type userRepresentation struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Enabled  bool   `json:"enabled"`
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// Client is a long-lived admin API client. One http.Client is shared by
// every call, including token requests.
type Client struct {
	http    *http.Client
	baseURL string
	realm   string
	tokens  *TokenCache
}

// NewClient creates a client from configuration. Admin tokens come from a
// password grant when an admin username is set, otherwise from the client
// credentials grant.
func NewClient(cfg *config.IdentityConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity provider URL is required")
	}
	if cfg.Realm == "" {
		return nil, errors.New("identity provider realm is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		realm:   cfg.Realm,
	}
	c.tokens = NewTokenCache(c.adminTokenSource(cfg))
	return c, nil
}

// Tokens exposes the admin token cache.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

func (c *Client) adminTokenSource(cfg *config.IdentityConfig) FetchFunc {
	adminRealm := cfg.AdminRealm
	if adminRealm == "" {
		adminRealm = "master"
	}
	tokenURL := c.baseURL + "/realms/" + url.PathEscape(adminRealm) + "/protocol/openid-connect/token"

	if cfg.AdminUsername != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.AdminClientID,
			ClientSecret: cfg.AdminClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		username, password := cfg.AdminUsername, cfg.AdminPassword
		return func(ctx context.Context) (*oauth2.Token, error) {
			tok, err := oc.PasswordCredentialsToken(c.oauthContext(ctx), username, password)
			return tok, mapTokenError(err)
		}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.AdminClientID,
		ClientSecret: cfg.AdminClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := cc.Token(c.oauthContext(ctx))
		return tok, mapTokenError(err)
	}
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func mapTokenError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
			return fmt.Errorf("%w: admin token: %w", ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("fetching admin token: %w", err)
}

// LookupByEmail returns the account registered with the address. An empty
// account (no ID) means no such user exists.
func (c *Client) LookupByEmail(ctx context.Context, email string) (*models.Account, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("exact", "true")

	var users []userRepresentation
	if err := c.admin(ctx, "lookup_user", http.MethodGet, c.usersPath()+"?"+q.Encode(), nil, &users, http.StatusOK); err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return &models.Account{ID: u.ID, Username: u.Username, Email: u.Email, Enabled: u.Enabled}, nil
		}
	}
	return &models.Account{}, nil
}

// UserIDByEmail resolves the provider's user id for an address.
func (c *Client) UserIDByEmail(ctx context.Context, email string) (string, error) {
	account, err := c.LookupByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if account.ID == "" {
		return "", ErrUserNotFound
	}
	return account.ID, nil
}

// UpdatePassword resets a user's password. Temporary passwords must be
// changed on next login. Repeating the call with the same value is safe.
func (c *Client) UpdatePassword(ctx context.Context, userID, password string, temporary bool) error {
	body := credentialRepresentation{Type: "password", Value: password, Temporary: temporary}
	return c.admin(ctx, "reset_password", http.MethodPut, c.userPath(userID)+"/reset-password", body, nil, http.StatusNoContent)
}

// UpdateUser applies the present fields of patch. The request carries the
// caller's bearer token from the context when there is one.
func (c *Client) UpdateUser(ctx context.Context, userID string, patch UserPatch) error {
	if userID == "" {
		return ErrUserNotFound
	}
	if patch.Empty() {
		return nil
	}

	if token := bearerFrom(ctx); token != "" {
		return c.do(ctx, "update_user", token, http.MethodPut, c.userPath(userID), patch.Payload(), nil, http.StatusNoContent)
	}
	return c.admin(ctx, "update_user", http.MethodPut, c.userPath(userID), patch.Payload(), nil, http.StatusNoContent)
}

func (c *Client) usersPath() string {
	return "/admin/realms/" + url.PathEscape(c.realm) + "/users"
}

func (c *Client) userPath(userID string) string {
	return c.usersPath() + "/" + url.PathEscape(userID)
}

// admin performs a call with the admin token. A 401 drops the cached token
// and retries once with a fresh one.
func (c *Client) admin(ctx context.Context, call, method, path string, in, out any, want int) error {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		err = c.do(ctx, call, token, method, path, in, out, want)
		if errors.Is(err, errTokenRejected) && attempt == 0 {
			c.tokens.Invalidate()
			continue
		}
		return err
	}
}

func (c *Client) do(ctx context.Context, call, token, method, path string, in, out any, want int) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", call, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", call, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveIdentityCall(call, "error", started)
		return fmt.Errorf("%s: %w", call, err)
	}
	defer resp.Body.Close()
	metrics.ObserveIdentityCall(call, strconv.Itoa(resp.StatusCode), started)

	switch {
	case resp.StatusCode == want:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", errTokenRejected, call)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", ErrUnauthorized, call, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound && call != "lookup_user":
		return fmt.Errorf("%w: %s", ErrUserNotFound, call)
	default:
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, call, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", call, err)
	}
	return nil
}
