package service

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// KeyManagerService implements the KeyManager interface.
//
// Tenant master keys are random 32-byte keys wrapped with AES-256-GCM under the
// system master key. The wrap binds the tenant ID and version as associated data, so
// a wrapped key copied onto another tenant's row, or relabelled with another version,
// fails to unwrap.
type KeyManagerService struct {
	aeadManager AEADManager
}

// NewKeyManager creates a new KeyManagerService instance with the provided AEADManager.
func NewKeyManager(aeadManager AEADManager) *KeyManagerService {
	return &KeyManagerService{
		aeadManager: aeadManager,
	}
}

// CreateTenantKey generates and wraps a new tenant key version.
//
// The returned TenantKey has Key populated with the plaintext so the caller can
// prime its cache; only EncryptedKey and Nonce may be persisted.
func (km *KeyManagerService) CreateTenantKey(
	systemKey *cryptoDomain.SystemMasterKey,
	tenantID string,
	version uint,
) (cryptoDomain.TenantKey, error) {
	tenantKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(tenantKey); err != nil {
		return cryptoDomain.TenantKey{}, fmt.Errorf("failed to generate tenant key: %w", err)
	}

	aead, err := km.aeadManager.CreateCipher(systemKey.Key(), cryptoDomain.AESGCM)
	if err != nil {
		return cryptoDomain.TenantKey{}, err
	}

	encryptedKey, nonce, err := aead.Encrypt(tenantKey, wrapAAD(tenantID, version))
	if err != nil {
		return cryptoDomain.TenantKey{}, fmt.Errorf("failed to encrypt tenant key: %w", err)
	}

	return cryptoDomain.TenantKey{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     tenantID,
		Version:      version,
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
		Key:          tenantKey,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// DecryptTenantKey unwraps a stored tenant key. Returns ErrIntegrity when the stored
// material was altered or was wrapped by a different system master key.
func (km *KeyManagerService) DecryptTenantKey(
	tk *cryptoDomain.TenantKey,
	systemKey *cryptoDomain.SystemMasterKey,
) ([]byte, error) {
	aead, err := km.aeadManager.CreateCipher(systemKey.Key(), cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	key, err := aead.Decrypt(tk.EncryptedKey, tk.Nonce, wrapAAD(tk.TenantID, tk.Version))
	if err != nil {
		return nil, err
	}
	if len(key) != cryptoDomain.KeySize {
		cryptoDomain.Zero(key)
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return key, nil
}

// wrapAAD is "tenant_key:{tenantID}:{version}".
func wrapAAD(tenantID string, version uint) []byte {
	return fmt.Appendf(nil, "tenant_key:%s:%d", tenantID, version)
}
