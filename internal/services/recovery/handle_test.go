// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package recovery_test

import (
	"errors"
	"regexp"
	"testing"

	"codeberg.org/slabseller/accounts/internal/services/recovery"
	"codeberg.org/slabseller/accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGenerateHandle_Format(t *testing.T) {
	handle, err := recovery.GenerateHandle("ada@example.com", testutil.Epoch)

	require.NoError(t, err)
	assert.Len(t, handle, recovery.HandleLength)
	assert.Regexp(t, urlSafe, handle)
}

func TestGenerateHandle_UniqueForSameInput(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		handle, err := recovery.GenerateHandle("ada@example.com", testutil.Epoch)
		require.NoError(t, err)

		_, dup := seen[handle]
		require.False(t, dup, "duplicate handle %s", handle)
		seen[handle] = struct{}{}
	}
}

func TestGenerateHandle_EmptyContext(t *testing.T) {
	handle, err := recovery.GenerateHandle("", testutil.Epoch)

	require.NoError(t, err)
	assert.Len(t, handle, recovery.HandleLength)
}

func TestGenerateHandle_RandomSourceUnavailable(t *testing.T) {
	restore := recovery.SetRandRead(func([]byte) (int, error) {
		return 0, errors.New("no entropy")
	})
	defer restore()

	handle, err := recovery.GenerateHandle("ada@example.com", testutil.Epoch)

	assert.Empty(t, handle)
	assert.ErrorIs(t, err, recovery.ErrCryptoUnavailable)
}
