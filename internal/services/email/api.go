// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/slabseller/accounts/internal/config"
)

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data"`
}

type sendRequest struct {
	From            address           `json:"from"`
	To              []address         `json:"to"`
	Subject         string            `json:"subject,omitempty"`
	Personalization []personalization `json:"personalization"`
	TemplateID      string            `json:"template_id"`
}

// APISender posts messages to a transactional email HTTP API. The provider
// renders the template; only personalization data is sent.
type APISender struct {
	client   *http.Client
	endpoint string
	token    string
	from     address
}

// NewAPISender creates an API sender with a shared HTTP client.
func NewAPISender(cfg *config.MailConfig) (*APISender, error) {
	if cfg.APIEndpoint == "" {
		return nil, errors.New("mail API endpoint is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &APISender{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.APIEndpoint,
		token:    cfg.APIToken,
		from:     address{Email: cfg.From, Name: cfg.FromName},
	}, nil
}

// Send posts one message. Any 2xx response counts as accepted.
func (s *APISender) Send(ctx context.Context, recipient, templateID string, data map[string]string) (Status, error) {
	status, err := s.send(ctx, recipient, templateID, data)
	record(templateID, status, err)
	return status, err
}

func (s *APISender) send(ctx context.Context, recipient, templateID string, data map[string]string) (Status, error) {
	payload := sendRequest{
		From:       s.from,
		To:         []address{{Email: recipient}},
		Subject:    subject(ctx, templateID, data),
		TemplateID: templateID,
		Personalization: []personalization{
			{Email: recipient, Data: data},
		},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return StatusRejected, fmt.Errorf("encoding email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(buf))
	if err != nil {
		return StatusRejected, fmt.Errorf("creating email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return StatusRejected, fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("email provider rejected message",
			"template", templateID,
			"status", resp.StatusCode,
		)
		return StatusRejected, nil
	}
	return StatusAccepted, nil
}
