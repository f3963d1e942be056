// Package domain defines the tenant key hierarchy and the encrypted field wire format.
//
// The hierarchy is: SystemMasterKey → TenantKey (versioned, wrapped at rest) →
// derived field key (HKDF, never stored) → field ciphertext. Every encrypted field
// carries the tenant key version that produced it, so a tenant can rotate without
// re-encrypting historical rows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeyState is the lifecycle position of a tenant key version.
type KeyState string

const (
	// KeyStateActive marks the single version used for new encryptions.
	KeyStateActive KeyState = "active"
	// KeyStateSuperseded marks a retained version that only serves decrypts.
	KeyStateSuperseded KeyState = "superseded"
)

// TenantKey is one version of a tenant master key as stored by the key store.
//
// EncryptedKey is the AES-256-GCM ciphertext (with tag appended) of a random 32-byte
// key under the system master key; Nonce is the IV used for that wrap. Key holds the
// plaintext only after unwrapping and is never persisted.
type TenantKey struct {
	ID           uuid.UUID
	TenantID     string
	Version      uint
	EncryptedKey []byte
	Nonce        []byte
	Key          []byte
	IsActive     bool
	CreatedAt    time.Time
}

// State reports whether the version is the active one or a retained predecessor.
func (t *TenantKey) State() KeyState {
	if t.IsActive {
		return KeyStateActive
	}
	return KeyStateSuperseded
}

// ResolvedKey is an unwrapped tenant key ready for field key derivation.
// Instances handed out by the key cache are shared and must be treated as read-only.
type ResolvedKey struct {
	TenantID string
	Version  uint
	Key      []byte
}

// NewResolvedKey copies the plaintext out of an unwrapped TenantKey.
func NewResolvedKey(tk *TenantKey) *ResolvedKey {
	return &ResolvedKey{
		TenantID: tk.TenantID,
		Version:  tk.Version,
		Key:      cloneKey(tk.Key),
	}
}
