package domain

// Algorithm identifies the AEAD used for both tenant key wrapping and field encryption.
type Algorithm string

// AESGCM is AES-256 in Galois/Counter Mode: 32-byte key, 12-byte nonce, 16-byte tag.
const AESGCM Algorithm = "aes-256-gcm"

const (
	// KeySize is the length in bytes of every key in the hierarchy: the system master
	// key, tenant master keys and derived field keys.
	KeySize = 32

	// NonceSize is the GCM IV length. A fresh random IV is drawn for every encryption.
	NonceSize = 12

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// Audit table names used for key lifecycle events, which are not tied to an entity table.
const (
	TenantKeysTable = "tenant_encryption_keys"
)
