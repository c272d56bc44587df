// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package recovery

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// saltLength is the number of random bytes mixed into every handle.
const saltLength = 16

// HandleLength is the length of an encoded handle (SHA-256, unpadded base64url).
const HandleLength = 43

// randRead is swapped in tests to simulate an unavailable random source.
var randRead = rand.Read

// GenerateHandle derives a fresh URL-safe handle. The owner and the instant
// only diversify the digest input; unguessability comes from the salt.
func GenerateHandle(owner string, at time.Time) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := randRead(salt); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCryptoUnavailable, err)
	}

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(owner))
	h.Write([]byte(at.UTC().Format(time.RFC3339Nano)))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
