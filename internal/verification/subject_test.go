package verification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectHasher(t *testing.T) {
	h, err := NewSubjectHasher([]byte("0123456789abcdef"))
	require.NoError(t, err)

	params := map[string]string{"pan": "ABCDE1234F", "name": "Asha"}
	first := h.Hash(params)
	assert.Len(t, first, 64)
	assert.NotContains(t, first, "ABCDE1234F")

	t.Run("order and surrounding space do not matter", func(t *testing.T) {
		assert.Equal(t, first, h.Hash(map[string]string{"name": " Asha ", "pan": "ABCDE1234F"}))
	})

	t.Run("different values differ", func(t *testing.T) {
		assert.NotEqual(t, first, h.Hash(map[string]string{"pan": "ABCDE1234G", "name": "Asha"}))
	})

	t.Run("key and value boundaries are unambiguous", func(t *testing.T) {
		assert.NotEqual(t, h.Hash(map[string]string{"ab": "c"}), h.Hash(map[string]string{"a": "bc"}))
	})

	t.Run("key changes the hash", func(t *testing.T) {
		other, err := NewSubjectHasher([]byte("fedcba9876543210"))
		require.NoError(t, err)
		assert.NotEqual(t, first, other.Hash(params))
	})
}

func TestNewSubjectHasherRejectsLongKeys(t *testing.T) {
	_, err := NewSubjectHasher([]byte(strings.Repeat("k", 65)))
	require.Error(t, err)

	h, err := NewSubjectHasher(nil)
	require.NoError(t, err)
	assert.Len(t, h.Hash(nil), 64)
}
