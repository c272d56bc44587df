// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"strings"
	"sync"

	"codeberg.org/slabseller/accounts/internal/models"
	"codeberg.org/slabseller/accounts/internal/services/email"
	"codeberg.org/slabseller/accounts/internal/services/identity"
)

// PasswordUpdate records one credential change.
type PasswordUpdate struct {
	UserID    string
	Password  string
	Temporary bool
}

// FakeIdentity is an in-memory identity provider.
type FakeIdentity struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	Updates   []PasswordUpdate
	Lookups   int
	LookupErr error
	UpdateErr error
}

// NewFakeIdentity creates a provider holding the given accounts.
func NewFakeIdentity(accounts ...*models.Account) *FakeIdentity {
	f := &FakeIdentity{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		f.accounts[strings.ToLower(a.Email)] = a
	}
	return f
}

// EnabledAccount returns a complete, enabled account for an address.
func EnabledAccount(id, addr string) *models.Account {
	username, _, _ := strings.Cut(addr, "@")
	return &models.Account{ID: id, Username: username, Email: addr, Enabled: true}
}

// LookupByEmail implements the lookup role.
func (f *FakeIdentity) LookupByEmail(_ context.Context, addr string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups++
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	if a, ok := f.accounts[strings.ToLower(addr)]; ok {
		copied := *a
		return &copied, nil
	}
	return &models.Account{}, nil
}

// UserIDByEmail implements the credentials role.
func (f *FakeIdentity) UserIDByEmail(ctx context.Context, addr string) (string, error) {
	a, err := f.LookupByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if a.ID == "" {
		return "", identity.ErrUserNotFound
	}
	return a.ID, nil
}

// UpdatePassword records the update or fails with UpdateErr.
func (f *FakeIdentity) UpdatePassword(_ context.Context, userID, password string, temporary bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.Updates = append(f.Updates, PasswordUpdate{UserID: userID, Password: password, Temporary: temporary})
	return nil
}

// PasswordUpdates returns a copy of the recorded updates.
func (f *FakeIdentity) PasswordUpdates() []PasswordUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PasswordUpdate(nil), f.Updates...)
}

// SentEmail records one message.
type SentEmail struct {
	Recipient  string
	TemplateID string
	Data       map[string]string
}

// FakeMailer records messages and answers with a fixed status.
type FakeMailer struct {
	mu     sync.Mutex
	Sent   []SentEmail
	Status email.Status
	Err    error
}

// NewFakeMailer creates a mailer that accepts everything.
func NewFakeMailer() *FakeMailer {
	return &FakeMailer{Status: email.StatusAccepted}
}

// Send implements email.Sender.
func (m *FakeMailer) Send(_ context.Context, recipient, templateID string, data map[string]string) (email.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{Recipient: recipient, TemplateID: templateID, Data: data})
	if m.Err != nil {
		return email.StatusRejected, m.Err
	}
	return m.Status, nil
}

// Messages returns a copy of the recorded messages.
func (m *FakeMailer) Messages() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.Sent...)
}
