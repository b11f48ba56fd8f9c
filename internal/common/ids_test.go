package common

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericID(t *testing.T) {
	for _, n := range []int{1, 8, 18} {
		id, err := NumericID(n)
		require.NoError(t, err)
		assert.Len(t, id, n)
		assert.NotEqual(t, byte('0'), id[0])
		_, err = strconv.ParseUint(id, 10, 64)
		assert.NoError(t, err)
	}

	_, err := NumericID(0)
	assert.Error(t, err)
}

func TestNewOwnerID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewOwnerID()
		require.NoError(t, err)
		assert.Len(t, id, OwnerIDLen)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestSecureRandomInt(t *testing.T) {
	_, err := secureRandomInt(0)
	assert.Error(t, err)
	for i := 0; i < 100; i++ {
		n, err := secureRandomInt(10)
		require.NoError(t, err)
		assert.True(t, n >= 0 && n < 10)
	}
}
