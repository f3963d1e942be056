package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SystemMasterKeyEnv is the environment variable holding the base64-encoded system master key.
const SystemMasterKeyEnv = "SYSTEM_MASTER_KEY"

// SystemMasterKey is the root of the key hierarchy. It wraps every tenant master key
// and is supplied once at process start. It is never persisted.
type SystemMasterKey struct {
	key []byte
}

// LoadSystemMasterKey decodes a base64 (standard encoding) 256-bit secret.
//
// Returns ErrConfiguration when the value is empty, is not valid base64, or does not
// decode to exactly 32 bytes. Callers treat this as fatal.
func LoadSystemMasterKey(encoded string) (*SystemMasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrConfiguration, SystemMasterKeyEnv)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrConfiguration, SystemMasterKeyEnv)
	}
	if len(key) != KeySize {
		Zero(key)
		return nil, fmt.Errorf(
			"%w: %s must decode to %d bytes, got %d",
			ErrConfiguration,
			SystemMasterKeyEnv,
			KeySize,
			len(key),
		)
	}

	return &SystemMasterKey{key: key}, nil
}

// Key returns the raw key bytes. The slice is owned by the SystemMasterKey.
func (s *SystemMasterKey) Key() []byte {
	return s.key
}

// Close zeroes the key material. The key is unusable afterwards.
func (s *SystemMasterKey) Close() {
	Zero(s.key)
	s.key = nil
}
