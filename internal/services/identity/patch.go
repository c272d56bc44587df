// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package identity

// UserPatch is a partial update of a user. Nil fields are left untouched
// at the identity provider.
type UserPatch struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil
}

// Payload returns only the present fields, keyed as the admin API expects.
func (p UserPatch) Payload() map[string]string {
	out := make(map[string]string, 3)
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.FirstName != nil {
		out["firstName"] = *p.FirstName
	}
	if p.LastName != nil {
		out["lastName"] = *p.LastName
	}
	return out
}
