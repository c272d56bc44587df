// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

// Package password generates temporary passwords and validates new ones.
package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	// DefaultLength is the length of generated temporary passwords.
	DefaultLength = 16
	// MinLength is the shortest password Generate will produce.
	MinLength = 8
)

// Character classes every generated password draws from.
const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
	Symbols   = "!@#$%&*()-_=+[]{}"
)

var classes = []string{Uppercase, Lowercase, Digits, Symbols}

const alphabet = Uppercase + Lowercase + Digits + Symbols

// ErrInvalidLength is returned for lengths below MinLength.
var ErrInvalidLength = errors.New("password length below minimum")

// random is the entropy source; tests replace it to simulate failures.
var random io.Reader = rand.Reader

// Generate returns a random password of the given length containing at least
// one character of every class.
func Generate(length int) (string, error) {
	if length < MinLength {
		return "", fmt.Errorf("%w: %d < %d", ErrInvalidLength, length, MinLength)
	}

	buf := make([]byte, 0, length)
	for _, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := pick(alphabet)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates so the guaranteed characters land anywhere.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func pick(set string) (byte, error) {
	i, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(random, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("reading random source: %w", err)
	}
	return int(v.Int64()), nil
}
