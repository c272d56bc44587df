// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
	"slices"
)

// LogSender accepts every message and only logs it. Personalization values
// carry secrets and are never logged, only their keys.
type LogSender struct{}

// NewLogSender creates a log sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the message and reports it accepted.
func (s *LogSender) Send(_ context.Context, recipient, templateID string, data map[string]string) (Status, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	slog.Info("email not sent, log driver active",
		"recipient", recipient,
		"template", templateID,
		"data_keys", keys,
	)
	record(templateID, StatusAccepted, nil)
	return StatusAccepted, nil
}
