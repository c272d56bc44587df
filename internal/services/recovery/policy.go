// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package recovery

import (
	"time"

	"codeberg.org/slabseller/accounts/internal/models"
)

// IsUsable reports whether a request can still be redeemed at now.
func IsUsable(r *models.RecoveryRequest, now time.Time) bool {
	if r == nil || r.Used || r.Disabled || r.ExpiryTime == nil {
		return false
	}
	return now.Before(*r.ExpiryTime)
}

// FilterUsable returns the subset of requests that are usable at now.
func FilterUsable(rs []models.RecoveryRequest, now time.Time) []models.RecoveryRequest {
	var usable []models.RecoveryRequest
	for i := range rs {
		if IsUsable(&rs[i], now) {
			usable = append(usable, rs[i])
		}
	}
	return usable
}

// IsThrottled reports whether any request was issued within window before
// now. Used and disabled requests count too: the throttle limits issuance
// frequency, not the number of live handles.
func IsThrottled(rs []models.RecoveryRequest, window time.Duration, now time.Time) bool {
	for i := range rs {
		if rs[i].SendTime.Add(window).After(now) {
			return true
		}
	}
	return false
}
