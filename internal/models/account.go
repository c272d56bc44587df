// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package models

// Account is the identity provider's view of a shop user.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Enabled  bool   `json:"enabled"`
}

// Complete reports whether the provider returned every field recovery needs.
// Providers signal "not found" with an empty account, so an incomplete
// account is treated the same as a missing one.
func (a *Account) Complete() bool {
	return a != nil && a.ID != "" && a.Username != "" && a.Email != ""
}

// CanRecover reports whether a recovery link may be issued for the account.
func (a *Account) CanRecover() bool {
	return a.Complete() && a.Enabled
}
