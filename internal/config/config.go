// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Recovery RecoveryConfig
	Identity IdentityConfig
	Mail     MailConfig
	SMTP     SMTPConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host         string
	Port         int
	BaseURL      string
	MaxBodySize  int     // in MB
	RateLimit    float64 // recovery requests per second per client IP, 0 disables
	RateBurst    int
	MetricsToken string // bearer token for /metrics, empty disables the endpoint
}

// IsLocal reports whether the base URL points at the local machine.
func (c ServerConfig) IsLocal() bool {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // SQLite path or postgres:// URL
}

// RecoveryConfig controls the password recovery lifecycle.
type RecoveryConfig struct { //nolint:govet // fieldalignment not critical for config structs
	ThrottleSeconds             int    // minimum interval between two issuances per owner
	TTLSeconds                  int    // validity window of a recovery handle
	LinkBaseURL                 string // defaults to Server.BaseURL
	LinkPath                    string // must contain {handle}
	RecoveryTemplateID          string
	TemporaryPasswordTemplateID string
	PasswordMinLength           int    // 0 keeps the built-in minimum
	PasswordRejectNumeric       bool   // reject all-digit passwords
	PasswordCheckSimilarity     bool   // reject passwords resembling the owner address
}

// IdentityConfig points at the Keycloak-compatible admin API.
type IdentityConfig struct { //nolint:govet // fieldalignment not critical for config structs
	BaseURL           string // e.g. https://sso.example.com
	Realm             string // realm holding the shop accounts
	AdminRealm        string // realm the admin user authenticates against
	AdminClientID     string
	AdminClientSecret string
	AdminUsername     string
	AdminPassword     string
	TimeoutSeconds    int
}

// MailConfig selects and configures the outbound email driver.
type MailConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Driver         string // api, smtp, log
	APIEndpoint    string
	APIToken       string
	From           string
	FromName       string
	TimeoutSeconds int
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         cmd.String("host"),
			Port:         int(cmd.Int("port")),
			BaseURL:      cmd.String("base-url"),
			MaxBodySize:  int(cmd.Int("max-body-size")),
			RateLimit:    cmd.Float("rate-limit"),
			RateBurst:    int(cmd.Int("rate-burst")),
			MetricsToken: cmd.String("metrics-token"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Recovery: RecoveryConfig{
			ThrottleSeconds:             int(cmd.Int("recovery-throttle")),
			TTLSeconds:                  int(cmd.Int("recovery-ttl")),
			LinkBaseURL:                 cmd.String("recovery-link-base-url"),
			LinkPath:                    cmd.String("recovery-link-path"),
			RecoveryTemplateID:          cmd.String("recovery-template-id"),
			TemporaryPasswordTemplateID: cmd.String("temporary-password-template-id"),
			PasswordMinLength:           int(cmd.Int("password-min-length")),
			PasswordRejectNumeric:       cmd.Bool("password-reject-numeric"),
			PasswordCheckSimilarity:     cmd.Bool("password-check-similarity"),
		},
		Identity: IdentityConfig{
			BaseURL:           cmd.String("identity-url"),
			Realm:             cmd.String("identity-realm"),
			AdminRealm:        cmd.String("identity-admin-realm"),
			AdminClientID:     cmd.String("identity-admin-client-id"),
			AdminClientSecret: cmd.String("identity-admin-client-secret"),
			AdminUsername:     cmd.String("identity-admin-username"),
			AdminPassword:     cmd.String("identity-admin-password"),
			TimeoutSeconds:    int(cmd.Int("identity-timeout")),
		},
		Mail: MailConfig{
			Driver:         cmd.String("mail-driver"),
			APIEndpoint:    cmd.String("mail-api-endpoint"),
			APIToken:       cmd.String("mail-api-token"),
			From:           cmd.String("mail-from"),
			FromName:       cmd.String("mail-from-name"),
			TimeoutSeconds: int(cmd.Int("mail-timeout")),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			TLS:      cmd.Bool("smtp-tls"),
		},
	}

	applyDefaults(cfg)

	return cfg
}

// applyDefaults fills in values derived from other settings.
func applyDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	if cfg.Recovery.LinkBaseURL == "" {
		cfg.Recovery.LinkBaseURL = cfg.Server.BaseURL
	}
	if cfg.Identity.AdminRealm == "" {
		cfg.Identity.AdminRealm = "master"
	}
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if cfg.Server.Port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL of the service",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.FloatFlag{
			Name:    "rate-limit",
			Value:   1,
			Usage:   "Password recovery requests per second per client IP (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT"), toml.TOML("server.rate_limit", configFile)),
		},
		&cli.IntFlag{
			Name:    "rate-burst",
			Value:   5,
			Usage:   "Burst size for the per-IP rate limiter",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_BURST"), toml.TOML("server.rate_burst", configFile)),
		},
		&cli.StringFlag{
			Name:    "metrics-token",
			Usage:   "Bearer token required on /metrics (endpoint disabled when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("METRICS_TOKEN"), toml.TOML("server.metrics_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/accounts.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Recovery flags
		&cli.IntFlag{
			Name:    "recovery-throttle",
			Value:   60,
			Usage:   "Seconds between two password recovery issuances for the same account",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_THROTTLE"), toml.TOML("recovery.throttle_seconds", configFile)),
		},
		&cli.IntFlag{
			Name:    "recovery-ttl",
			Value:   900,
			Usage:   "Seconds a password recovery link stays valid",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_TTL"), toml.TOML("recovery.ttl_seconds", configFile)),
		},
		&cli.StringFlag{
			Name:    "recovery-link-base-url",
			Usage:   "Base URL of the frontend serving the recovery page (defaults to base_url)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_LINK_BASE_URL"), toml.TOML("recovery.link_base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "recovery-link-path",
			Value:   "/password-recovery/{handle}",
			Usage:   "Path template of the recovery link, {handle} is replaced",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_LINK_PATH"), toml.TOML("recovery.link_path", configFile)),
		},
		&cli.StringFlag{
			Name:    "recovery-template-id",
			Value:   "password_recovery",
			Usage:   "Email template for recovery links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_TEMPLATE_ID"), toml.TOML("recovery.template_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "temporary-password-template-id",
			Value:   "temporary_password",
			Usage:   "Email template for temporary passwords",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TEMPORARY_PASSWORD_TEMPLATE_ID"), toml.TOML("recovery.temporary_password_template_id", configFile)),
		},
		&cli.IntFlag{
			Name:    "password-min-length",
			Value:   8,
			Usage:   "Minimum length of a new password set through recovery",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_MIN_LENGTH"), toml.TOML("recovery.password_min_length", configFile)),
		},
		&cli.BoolFlag{
			Name:    "password-reject-numeric",
			Usage:   "Reject new passwords made of digits only",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_REJECT_NUMERIC"), toml.TOML("recovery.password_reject_numeric", configFile)),
		},
		&cli.BoolFlag{
			Name:    "password-check-similarity",
			Usage:   "Reject new passwords resembling the account email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_CHECK_SIMILARITY"), toml.TOML("recovery.password_check_similarity", configFile)),
		},
		// Identity provider flags
		&cli.StringFlag{
			Name:    "identity-url",
			Usage:   "Base URL of the identity provider",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_URL"), toml.TOML("identity.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-realm",
			Usage:   "Realm holding the shop accounts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_REALM"), toml.TOML("identity.realm", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-admin-realm",
			Value:   "master",
			Usage:   "Realm the admin user authenticates against",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_ADMIN_REALM"), toml.TOML("identity.admin_realm", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-admin-client-id",
			Value:   "admin-cli",
			Usage:   "Client used for the admin password grant",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_ADMIN_CLIENT_ID"), toml.TOML("identity.admin_client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-admin-client-secret",
			Usage:   "Secret of the admin client (confidential clients only)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_ADMIN_CLIENT_SECRET"), toml.TOML("identity.admin_client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-admin-username",
			Usage:   "Admin username for user management calls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_ADMIN_USERNAME"), toml.TOML("identity.admin_username", configFile)),
		},
		&cli.StringFlag{
			Name:    "identity-admin-password",
			Usage:   "Admin password for user management calls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_ADMIN_PASSWORD"), toml.TOML("identity.admin_password", configFile)),
		},
		&cli.IntFlag{
			Name:    "identity-timeout",
			Value:   10,
			Usage:   "Timeout in seconds for identity provider calls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("IDENTITY_TIMEOUT"), toml.TOML("identity.timeout_seconds", configFile)),
		},
		// Mail flags
		&cli.StringFlag{
			Name:    "mail-driver",
			Value:   "log",
			Usage:   "Mail driver (api, smtp, log)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_DRIVER"), toml.TOML("mail.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-api-endpoint",
			Usage:   "Transactional email API endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_API_ENDPOINT"), toml.TOML("mail.api_endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-api-token",
			Usage:   "Bearer token for the transactional email API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_API_TOKEN"), toml.TOML("mail.api_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM"), toml.TOML("mail.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM_NAME"), toml.TOML("mail.from_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "mail-timeout",
			Value:   10,
			Usage:   "Timeout in seconds for email API calls",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_TIMEOUT"), toml.TOML("mail.timeout_seconds", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}
