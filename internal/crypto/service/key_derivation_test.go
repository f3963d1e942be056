package service

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

func TestHKDFKeyDeriver_DeriveFieldKey(t *testing.T) {
	deriver := NewKeyDeriver()

	sequentialKey := make([]byte, 32)
	for i := range sequentialKey {
		sequentialKey[i] = byte(i)
	}

	t.Run("known vectors", func(t *testing.T) {
		tests := []struct {
			name      string
			tenantKey []byte
			field     string
			version   uint
			expected  string
		}{
			{
				name:      "zero key, email, v1",
				tenantKey: make([]byte, 32),
				field:     "email",
				version:   1,
				expected:  "541320216b0273f6473b8227b76304838abb0feb6e059268e3e1f40ad8d82630",
			},
			{
				name:      "sequential key, ssn, v2",
				tenantKey: sequentialKey,
				field:     "ssn",
				version:   2,
				expected:  "8d30ea0b91e336cee5937fe7a694708fcef4454b768771e6991ab20a7d0f4ba6",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				key, err := deriver.DeriveFieldKey(tt.tenantKey, tt.field, tt.version)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, hex.EncodeToString(key))
			})
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		k1, err := deriver.DeriveFieldKey(sequentialKey, "email", 3)
		require.NoError(t, err)
		k2, err := deriver.DeriveFieldKey(sequentialKey, "email", 3)
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
		assert.Len(t, k1, cryptoDomain.KeySize)
	})

	t.Run("field name separates keys", func(t *testing.T) {
		k1, err := deriver.DeriveFieldKey(sequentialKey, "email", 1)
		require.NoError(t, err)
		k2, err := deriver.DeriveFieldKey(sequentialKey, "phone", 1)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
	})

	t.Run("version separates keys", func(t *testing.T) {
		k1, err := deriver.DeriveFieldKey(sequentialKey, "email", 1)
		require.NoError(t, err)
		k2, err := deriver.DeriveFieldKey(sequentialKey, "email", 2)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
	})

	t.Run("invalid tenant key size", func(t *testing.T) {
		_, err := deriver.DeriveFieldKey(make([]byte, 16), "email", 1)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}
