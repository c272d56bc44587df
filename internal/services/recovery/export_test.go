// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package recovery

// SetRandRead swaps the salt source and returns a restore func.
func SetRandRead(fn func([]byte) (int, error)) func() {
	prev := randRead
	randRead = fn
	return func() { randRead = prev }
}
