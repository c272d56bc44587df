// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/slabseller/accounts/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTPSender renders localized templates and relays them over SMTP.
type SMTPSender struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPSender creates an SMTP sender. The go-mail client is created once
// and dialed per message.
func NewSMTPSender(mailCfg *config.MailConfig, cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("SMTP host is required")
	}
	if mailCfg.From == "" {
		return nil, errors.New("mail from address is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if mailCfg.TimeoutSeconds > 0 {
		opts = append(opts, mail.WithTimeout(time.Duration(mailCfg.TimeoutSeconds)*time.Second))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}

	return &SMTPSender{
		client:   client,
		from:     mailCfg.From,
		fromName: mailCfg.FromName,
	}, nil
}

// Send relays one message. A relay error is returned as an error; the
// status is then StatusRejected.
func (s *SMTPSender) Send(ctx context.Context, recipient, templateID string, data map[string]string) (Status, error) {
	msg, err := s.Message(ctx, recipient, templateID, data)
	if err == nil {
		err = s.client.DialAndSendWithContext(ctx, msg)
		if err != nil {
			err = fmt.Errorf("sending email: %w", err)
		}
	}

	status := StatusAccepted
	if err != nil {
		status = StatusRejected
	}
	record(templateID, status, err)
	return status, err
}

// Message builds the message Send would relay.
func (s *SMTPSender) Message(ctx context.Context, recipient, templateID string, data map[string]string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.fromName != "" {
		if err := msg.FromFormat(s.fromName, s.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject(ctx, templateID, data))
	msg.SetBodyString(mail.TypeTextPlain, body(ctx, templateID, data))

	return msg, nil
}
