// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package recovery implements the password recovery lifecycle: issuing
// single-use handles, validating them and completing the credential change
// at the identity provider.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/slabseller/accounts/internal/config"
	"codeberg.org/slabseller/accounts/internal/metrics"
	"codeberg.org/slabseller/accounts/internal/models"
	"codeberg.org/slabseller/accounts/internal/repository"
	"codeberg.org/slabseller/accounts/internal/services/email"
	"codeberg.org/slabseller/accounts/internal/services/identity"
	"codeberg.org/slabseller/accounts/internal/services/password"
)

// Outcome errors. Callers map them to responses; nothing more specific is
// ever reported for a failed recovery.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrMismatchedConfirmation = errors.New("password confirmation does not match")
	ErrWeakPassword           = errors.New("password does not meet requirements")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrUpstream               = errors.New("upstream service unavailable")
	ErrCryptoUnavailable      = errors.New("secure random source unavailable")
)

// Personalization keys passed to the email templates.
const (
	DataRecoveryURL       = "recovery_url"
	DataEmail             = "email"
	DataTemporaryPassword = "temporary_password"
)

// Store persists recovery requests.
type Store interface {
	CreateRecoveryRequest(ctx context.Context, req *models.RecoveryRequest) error
	ListRecoveryRequestsForOwner(ctx context.Context, email string) ([]models.RecoveryRequest, error)
	GetRecoveryRequestByHandle(ctx context.Context, handle string) (*models.RecoveryRequest, error)
	InvalidateRecoveryRequestsForOwner(ctx context.Context, email string) error
	MarkRecoveryRequestUsed(ctx context.Context, id int64, at time.Time) error
}

// IdentityLookup resolves accounts at the identity provider.
type IdentityLookup interface {
	LookupByEmail(ctx context.Context, email string) (*models.Account, error)
}

// IdentityCredentials changes credentials at the identity provider.
type IdentityCredentials interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
	UpdatePassword(ctx context.Context, userID, password string, temporary bool) error
}

// Identity combines both identity provider roles.
type Identity interface {
	IdentityLookup
	IdentityCredentials
}

// EmailSender delivers templated emails.
type EmailSender interface {
	Send(ctx context.Context, recipient, templateID string, data map[string]string) (email.Status, error)
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithValidator replaces the password validator used on completion.
func WithValidator(v *password.Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// Service orchestrates the recovery lifecycle. It keeps no mutable state;
// everything lives in the store.
type Service struct {
	store     Store
	identity  Identity
	mailer    EmailSender
	validator *password.Validator
	now       func() time.Time

	throttle          time.Duration
	ttl               time.Duration
	linkBaseURL       string
	linkPath          string
	recoveryTemplate  string
	temporaryTemplate string
}

// NewService creates a recovery service.
func NewService(store Store, idp Identity, mailer EmailSender, cfg *config.RecoveryConfig, opts ...Option) *Service {
	s := &Service{
		store:             store,
		identity:          idp,
		mailer:            mailer,
		validator:         validatorFor(cfg),
		now:               time.Now,
		throttle:          time.Duration(cfg.ThrottleSeconds) * time.Second,
		ttl:               time.Duration(cfg.TTLSeconds) * time.Second,
		linkBaseURL:       strings.TrimSuffix(cfg.LinkBaseURL, "/"),
		linkPath:          cfg.LinkPath,
		recoveryTemplate:  cfg.RecoveryTemplateID,
		temporaryTemplate: cfg.TemporaryPasswordTemplateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validatorFor builds the new-password rules from configuration. Without
// overrides only the minimum length is enforced.
func validatorFor(cfg *config.RecoveryConfig) *password.Validator {
	v := password.DefaultValidator()
	if cfg.PasswordMinLength > 0 {
		v.MinLength = cfg.PasswordMinLength
	}
	v.RejectNumeric = cfg.PasswordRejectNumeric
	v.CheckUserSimilarity = cfg.PasswordCheckSimilarity
	return v
}

// NormalizeEmail lowercases and trims an owner address.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// RequestRecovery issues a new handle for the owner and emails the link.
// Unknown or disabled accounts and throttled owners get the same nil result
// as a successful issuance.
func (s *Service) RequestRecovery(ctx context.Context, ownerEmail string) error {
	owner := NormalizeEmail(ownerEmail)
	if addr, err := mail.ParseAddress(owner); err != nil || addr.Address != owner {
		metrics.RecordRecovery(metrics.OpRequest, metrics.OutcomeBadRequest)
		return ErrInvalidEmail
	}

	account, err := s.identity.LookupByEmail(ctx, owner)
	if err != nil {
		return s.fail(metrics.OpRequest, "account lookup failed", err)
	}
	if !account.CanRecover() {
		slog.Debug("recovery requested for unknown or disabled account")
		metrics.RecordRecovery(metrics.OpRequest, metrics.OutcomeAccepted)
		return nil
	}

	now := s.now()

	existing, err := s.store.ListRecoveryRequestsForOwner(ctx, owner)
	if err != nil {
		return s.fail(metrics.OpRequest, "listing recovery requests failed", err)
	}
	if IsThrottled(existing, s.throttle, now) {
		slog.Info("recovery request throttled", "user_id", account.ID)
		metrics.RecordRecovery(metrics.OpRequest, metrics.OutcomeAccepted)
		return nil
	}

	if err := s.store.InvalidateRecoveryRequestsForOwner(ctx, owner); err != nil {
		return s.fail(metrics.OpRequest, "invalidating recovery requests failed", err)
	}

	handle, err := GenerateHandle(owner, now)
	if err != nil {
		metrics.RecordRecovery(metrics.OpRequest, metrics.OutcomeError)
		slog.Error("generating recovery handle failed", "error", err)
		return err
	}

	expiry := now.Add(s.ttl)
	req := &models.RecoveryRequest{
		Email:      owner,
		Handle:     handle,
		SendTime:   now,
		ExpiryTime: &expiry,
	}
	if err := s.store.CreateRecoveryRequest(ctx, req); err != nil {
		return s.fail(metrics.OpRequest, "storing recovery request failed", err)
	}

	data := map[string]string{
		DataRecoveryURL: s.Link(handle),
		DataEmail:       owner,
	}
	if err := s.send(ctx, owner, s.recoveryTemplate, data); err != nil {
		return s.fail(metrics.OpRequest, "sending recovery email failed", err)
	}

	slog.Info("recovery request issued", "user_id", account.ID, "request_id", req.ID)
	metrics.RecordRecovery(metrics.OpRequest, metrics.OutcomeAccepted)
	return nil
}

// ValidateHandle succeeds only for a usable handle.
func (s *Service) ValidateHandle(ctx context.Context, handle string) error {
	if _, err := s.usableRequest(ctx, metrics.OpValidate, handle); err != nil {
		return err
	}
	metrics.RecordRecovery(metrics.OpValidate, metrics.OutcomeSuccess)
	return nil
}

// OwnerForHandle returns the owner address of a usable handle.
func (s *Service) OwnerForHandle(ctx context.Context, handle string) (string, error) {
	req, err := s.usableRequest(ctx, metrics.OpOwner, handle)
	if err != nil {
		return "", err
	}
	metrics.RecordRecovery(metrics.OpOwner, metrics.OutcomeSuccess)
	return req.Email, nil
}

// CompleteRecovery sets the owner's new password and consumes the handle.
// When the identity provider rejects the update the handle stays usable.
func (s *Service) CompleteRecovery(ctx context.Context, handle, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		metrics.RecordRecovery(metrics.OpComplete, metrics.OutcomeBadRequest)
		return ErrMismatchedConfirmation
	}

	req, err := s.usableRequest(ctx, metrics.OpComplete, handle)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(newPassword, req.Email).Err(); err != nil {
		metrics.RecordRecovery(metrics.OpComplete, metrics.OutcomeBadRequest)
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	if err := s.setPassword(ctx, req.Email, newPassword, false); err != nil {
		return s.fail(metrics.OpComplete, "updating password failed", err)
	}

	if err := s.consume(ctx, req); err != nil {
		return s.fail(metrics.OpComplete, "password changed but consuming recovery request failed", err)
	}

	slog.Info("password recovery completed", "request_id", req.ID)
	metrics.RecordRecovery(metrics.OpComplete, metrics.OutcomeSuccess)
	return nil
}

// IssueTemporaryPassword replaces the owner's password with a generated
// temporary one, emails it and consumes the handle. The identity provider
// forces a change on next login.
func (s *Service) IssueTemporaryPassword(ctx context.Context, handle string) error {
	req, err := s.usableRequest(ctx, metrics.OpTemporary, handle)
	if err != nil {
		return err
	}

	secret, err := password.Generate(password.DefaultLength)
	if err != nil {
		metrics.RecordRecovery(metrics.OpTemporary, metrics.OutcomeError)
		slog.Error("generating temporary password failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCryptoUnavailable, err)
	}

	if err := s.setPassword(ctx, req.Email, secret, true); err != nil {
		return s.fail(metrics.OpTemporary, "setting temporary password failed", err)
	}

	data := map[string]string{
		DataTemporaryPassword: secret,
		DataEmail:             req.Email,
	}
	if err := s.send(ctx, req.Email, s.temporaryTemplate, data); err != nil {
		// The old password is gone and the owner never saw the new one. The
		// handle stays usable so the owner can try again.
		return s.fail(metrics.OpTemporary, "temporary password set but email delivery failed", err,
			"request_id", req.ID)
	}

	if err := s.consume(ctx, req); err != nil {
		return s.fail(metrics.OpTemporary, "temporary password sent but consuming recovery request failed", err)
	}

	slog.Info("temporary password issued", "request_id", req.ID)
	metrics.RecordRecovery(metrics.OpTemporary, metrics.OutcomeSuccess)
	return nil
}

// Link builds the recovery URL for a handle.
func (s *Service) Link(handle string) string {
	path := s.linkPath
	if !strings.Contains(path, "{handle}") {
		path = strings.TrimSuffix(path, "/") + "/{handle}"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.linkBaseURL + strings.ReplaceAll(path, "{handle}", handle)
}

// usableRequest loads a handle and collapses every failure mode into
// ErrUnauthorized, except store faults.
func (s *Service) usableRequest(ctx context.Context, op, handle string) (*models.RecoveryRequest, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		metrics.RecordRecovery(op, metrics.OutcomeUnauthorized)
		return nil, ErrUnauthorized
	}

	req, err := s.store.GetRecoveryRequestByHandle(ctx, handle)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordRecovery(op, metrics.OutcomeUnauthorized)
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, s.fail(op, "loading recovery request failed", err)
	}

	if !IsUsable(req, s.now()) {
		metrics.RecordRecovery(op, metrics.OutcomeUnauthorized)
		return nil, ErrUnauthorized
	}
	return req, nil
}

func (s *Service) setPassword(ctx context.Context, owner, secret string, temporary bool) error {
	userID, err := s.identity.UserIDByEmail(ctx, owner)
	if err != nil {
		return err
	}
	return s.identity.UpdatePassword(ctx, userID, secret, temporary)
}

// consume marks the request used and disables every remaining request of
// its owner. A request already marked used by a concurrent completion is
// not an error; the credential change has happened either way.
func (s *Service) consume(ctx context.Context, req *models.RecoveryRequest) error {
	err := s.store.MarkRecoveryRequestUsed(ctx, req.ID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		slog.Warn("recovery request already consumed", "request_id", req.ID)
	} else if err != nil {
		return err
	}
	return s.store.InvalidateRecoveryRequestsForOwner(ctx, req.Email)
}

func (s *Service) send(ctx context.Context, recipient, templateID string, data map[string]string) error {
	status, err := s.mailer.Send(ctx, recipient, templateID, data)
	if err != nil {
		return err
	}
	if status != email.StatusAccepted {
		return fmt.Errorf("email %s not accepted: %s", templateID, status)
	}
	return nil
}

// fail logs a collaborator fault and maps it to an outcome error.
func (s *Service) fail(op, msg string, err error, attrs ...any) error {
	slog.Error(msg, append([]any{"operation", op, "error", err}, attrs...)...)
	if errors.Is(err, identity.ErrUnauthorized) {
		metrics.RecordRecovery(op, metrics.OutcomeUnauthorized)
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	metrics.RecordRecovery(op, metrics.OutcomeError)
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
