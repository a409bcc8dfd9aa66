package util_test

import (
	"strings"
	"testing"

	"github.com/freekieb7/neurovault-users/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	s, err := util.GenerateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	other, err := util.GenerateRandomString(16)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestRandomAlphanumeric(t *testing.T) {
	t.Run("exact length and alphabet", func(t *testing.T) {
		s, err := util.RandomAlphanumeric(30)
		require.NoError(t, err)
		assert.Len(t, s, 30)
		for _, c := range s {
			assert.True(t, strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c), "unexpected rune %q", c)
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		_, err := util.RandomAlphanumeric(0)
		assert.Error(t, err)
	})
}
