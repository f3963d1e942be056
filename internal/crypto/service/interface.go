// Package service provides the stateless cryptographic primitives of the tenant key
// hierarchy: AES-256-GCM sealing, HKDF field key derivation, and wrapping of tenant
// master keys under the system master key.
package service

import (
	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext (tag appended) and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt verifies and decrypts ciphertext using the provided nonce and AAD.
	// Returns cryptoDomain.ErrIntegrity when authentication fails.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives per-field keys from a tenant master key.
type KeyDeriver interface {
	// DeriveFieldKey returns a 32-byte key bound to (tenantKey, version, fieldName).
	// The same inputs always produce the same key.
	DeriveFieldKey(tenantKey []byte, fieldName string, version uint) ([]byte, error)
}

// KeyManager generates and unwraps tenant master keys.
type KeyManager interface {
	// CreateTenantKey generates a random tenant key and wraps it with the system master key.
	CreateTenantKey(
		systemKey *cryptoDomain.SystemMasterKey,
		tenantID string,
		version uint,
	) (cryptoDomain.TenantKey, error)

	// DecryptTenantKey unwraps a stored tenant key with the system master key.
	DecryptTenantKey(tk *cryptoDomain.TenantKey, systemKey *cryptoDomain.SystemMasterKey) ([]byte, error)
}
