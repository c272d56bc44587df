// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package password

import "io"

// SetRandom swaps the entropy source and returns a restore func.
func SetRandom(r io.Reader) func() {
	prev := random
	random = r
	return func() { random = prev }
}
