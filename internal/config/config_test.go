// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "localhost default port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 80}},
			expected: "http://localhost",
		},
		{
			name:     "localhost custom port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8080}},
			expected: "http://localhost:8080",
		},
		{
			name:     "wildcard host",
			cfg:      &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 9000}},
			expected: "http://localhost:9000",
		},
		{
			name:     "empty host",
			cfg:      &Config{Server: ServerConfig{Port: 8080}},
			expected: "http://localhost:8080",
		},
		{
			name:     "named host",
			cfg:      &Config{Server: ServerConfig{Host: "accounts.internal", Port: 8080}},
			expected: "http://accounts.internal:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Run("derives link base URL and admin realm", func(t *testing.T) {
		cfg := &Config{
			Server: ServerConfig{Host: "localhost", Port: 8080},
		}

		applyDefaults(cfg)

		assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
		assert.Equal(t, "http://localhost:8080", cfg.Recovery.LinkBaseURL)
		assert.Equal(t, "master", cfg.Identity.AdminRealm)
	})

	t.Run("does not override existing values", func(t *testing.T) {
		cfg := &Config{
			Server:   ServerConfig{BaseURL: "https://api.slabseller.example/"},
			Recovery: RecoveryConfig{LinkBaseURL: "https://slabseller.example"},
			Identity: IdentityConfig{AdminRealm: "ops"},
		}

		applyDefaults(cfg)

		assert.Equal(t, "https://api.slabseller.example", cfg.Server.BaseURL)
		assert.Equal(t, "https://slabseller.example", cfg.Recovery.LinkBaseURL)
		assert.Equal(t, "ops", cfg.Identity.AdminRealm)
	})
}

func TestServerConfig_IsLocal(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected bool
	}{
		{"http://localhost:8080", true},
		{"http://127.0.0.1:8080", true},
		{"http://[::1]:8080", true},
		{"https://accounts.slabseller.example", false},
		{"http://10.0.0.5:8080", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			assert.Equal(t, tt.expected, ServerConfig{BaseURL: tt.baseURL}.IsLocal())
		})
	}
}

func TestFlags(t *testing.T) {
	flags := Flags()

	assert.NotEmpty(t, flags)

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	assert.True(t, flagNames["host"], "should have host flag")
	assert.True(t, flagNames["port"], "should have port flag")
	assert.True(t, flagNames["database-dsn"], "should have database-dsn flag")
	assert.True(t, flagNames["recovery-throttle"], "should have recovery-throttle flag")
	assert.True(t, flagNames["recovery-ttl"], "should have recovery-ttl flag")
	assert.True(t, flagNames["recovery-link-path"], "should have recovery-link-path flag")
	assert.True(t, flagNames["identity-url"], "should have identity-url flag")
	assert.True(t, flagNames["mail-driver"], "should have mail-driver flag")
	assert.True(t, flagNames["smtp-host"], "should have smtp-host flag")
	assert.True(t, flagNames["metrics-token"], "should have metrics-token flag")
	assert.True(t, flagNames["password-check-similarity"], "should have password-check-similarity flag")
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, 60, cfg.Recovery.ThrottleSeconds)
			assert.Equal(t, 900, cfg.Recovery.TTLSeconds)
			assert.Equal(t, "/password-recovery/{handle}", cfg.Recovery.LinkPath)
			assert.Equal(t, "password_recovery", cfg.Recovery.RecoveryTemplateID)
			assert.Equal(t, "log", cfg.Mail.Driver)
			assert.Equal(t, "admin-cli", cfg.Identity.AdminClientID)
			assert.Equal(t, "master", cfg.Identity.AdminRealm)
			assert.InDelta(t, 1.0, cfg.Server.RateLimit, 0.0001)
			assert.Empty(t, cfg.Server.MetricsToken)
			assert.Equal(t, 8, cfg.Recovery.PasswordMinLength)
			assert.False(t, cfg.Recovery.PasswordCheckSimilarity)

			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, cfg.Server.BaseURL, cfg.Recovery.LinkBaseURL)

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, "./data/test.db", cfg.Database.DSN)
			assert.Equal(t, 120, cfg.Recovery.ThrottleSeconds)
			assert.Equal(t, "https://shop.example.com", cfg.Recovery.LinkBaseURL)
			assert.Equal(t, "api", cfg.Mail.Driver)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com",
		"--log-level", "debug",
		"--database-dsn", "./data/test.db",
		"--recovery-throttle", "120",
		"--recovery-link-base-url", "https://shop.example.com",
		"--mail-driver", "api",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
