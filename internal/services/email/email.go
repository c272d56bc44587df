// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package email delivers templated transactional emails through a provider
// API, an SMTP relay or the log.
package email

import (
	"context"
	"fmt"

	"codeberg.org/slabseller/accounts/internal/config"
	"codeberg.org/slabseller/accounts/internal/i18n"
	"codeberg.org/slabseller/accounts/internal/metrics"
)

// Status is the provider's verdict on a message.
type Status int

const (
	// StatusRejected means the provider did not take the message.
	StatusRejected Status = iota
	// StatusAccepted means the provider queued the message for delivery.
	StatusAccepted
)

func (s Status) String() string {
	if s == StatusAccepted {
		return "accepted"
	}
	return "rejected"
}

// Driver names.
const (
	DriverAPI  = "api"
	DriverSMTP = "smtp"
	DriverLog  = "log"
)

// Sender delivers one templated message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient, templateID string, data map[string]string) (Status, error)
}

// New returns the sender selected by the mail driver.
func New(mailCfg *config.MailConfig, smtpCfg *config.SMTPConfig) (Sender, error) {
	switch mailCfg.Driver {
	case DriverAPI:
		return NewAPISender(mailCfg)
	case DriverSMTP:
		return NewSMTPSender(mailCfg, smtpCfg)
	case DriverLog, "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", mailCfg.Driver)
	}
}

// subject renders the localized subject line for a template.
func subject(ctx context.Context, templateID string, data map[string]string) string {
	return i18n.TData(ctx, templateID+"_subject", templateData(data))
}

// body renders the localized plain-text body for a template.
func body(ctx context.Context, templateID string, data map[string]string) string {
	return i18n.TData(ctx, templateID+"_body", templateData(data))
}

func templateData(data map[string]string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func record(templateID string, status Status, err error) {
	if err != nil {
		metrics.RecordEmail(templateID, "failed")
		return
	}
	metrics.RecordEmail(templateID, status.String())
}
