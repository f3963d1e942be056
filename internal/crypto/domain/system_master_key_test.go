package domain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSystemMasterKey(t *testing.T) {
	validKey := base64.StdEncoding.EncodeToString(make([]byte, KeySize))

	tests := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "valid 32 byte key", encoded: validKey},
		{name: "valid key with surrounding whitespace", encoded: "  " + validKey + "\n"},
		{name: "empty", encoded: "", wantErr: true},
		{name: "not base64", encoded: "not-base64!!", wantErr: true},
		{name: "too short", encoded: base64.StdEncoding.EncodeToString(make([]byte, 16)), wantErr: true},
		{name: "too long", encoded: base64.StdEncoding.EncodeToString(make([]byte, 33)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := LoadSystemMasterKey(tt.encoded)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key.Key(), KeySize)
		})
	}
}

func TestSystemMasterKey_Close(t *testing.T) {
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = 0xAB
	}
	key, err := LoadSystemMasterKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)

	held := key.Key()
	key.Close()

	assert.Equal(t, make([]byte, KeySize), held)
	assert.Nil(t, key.Key())
}
