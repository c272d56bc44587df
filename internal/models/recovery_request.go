// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package models

import "time"

// RecoveryRequest is one issued password recovery handle. Rows are never
// deleted; Used and Disabled are the only fields that change after creation.
type RecoveryRequest struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64      `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Handle     string     `db:"handle" json:"-"`
	SendTime   time.Time  `db:"send_time" json:"send_time"`
	ExpiryTime *time.Time `db:"expiry_time" json:"expiry_time,omitempty"`
	Used       bool       `db:"used" json:"used"`
	UsedTime   *time.Time `db:"used_time" json:"used_time,omitempty"`
	Disabled   bool       `db:"disabled" json:"disabled"`
}
