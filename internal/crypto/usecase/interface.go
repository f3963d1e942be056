// Package usecase defines the tenant key lifecycle and field encryption use cases.
//
// TenantKeyUseCase owns the versioned tenant master keys: it provisions and rotates them
// through a TenantKeyRepository, unwraps them with the system master key and serves them
// from a KeyCache. FieldCipherUseCase turns tenant keys into per-field AES-256-GCM
// ciphertexts in the EncryptedValue wire format.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// TenantKeyRepository persists wrapped tenant keys.
//
// Implementations participate in a transaction carried by ctx (see database.GetTx) and must
// enforce at most one active row per tenant and unique (tenant, version) pairs, reporting a
// violation of either as cryptoDomain.ErrRotationConflict.
type TenantKeyRepository interface {
	// Create inserts a new tenant key row.
	Create(ctx context.Context, tenantKey *cryptoDomain.TenantKey) error

	// DeactivatePrevious clears the active flag on every row of the tenant except exceptVersion.
	DeactivatePrevious(ctx context.Context, tenantID string, exceptVersion uint) error

	// GetActive returns the active row or cryptoDomain.ErrKeyNotFound.
	GetActive(ctx context.Context, tenantID string) (*cryptoDomain.TenantKey, error)

	// GetByVersion returns one version or cryptoDomain.ErrKeyNotFound.
	GetByVersion(ctx context.Context, tenantID string, version uint) (*cryptoDomain.TenantKey, error)

	// GetLatestVersion returns the highest version stored for the tenant, or 0 when none exists.
	GetLatestVersion(ctx context.Context, tenantID string) (uint, error)

	// ListByTenant returns every version of the tenant ordered by version descending.
	ListByTenant(ctx context.Context, tenantID string) ([]*cryptoDomain.TenantKey, error)
}

// TenantKeyUseCase manages the lifecycle of tenant master keys.
type TenantKeyUseCase interface {
	// GenerateTenantKey creates the next key version for the tenant and makes it the only
	// active one. Rotations of one tenant are serialized. Returns the new version.
	GenerateTenantKey(ctx context.Context, tenantID string) (uint, error)

	// EnsureTenantKey returns the active version, provisioning version 1 on first use.
	EnsureTenantKey(ctx context.Context, tenantID string) (uint, error)

	// GetActiveTenantKey resolves the active key, from cache when possible.
	GetActiveTenantKey(ctx context.Context, tenantID string) (*cryptoDomain.ResolvedKey, error)

	// GetTenantKeyByVersion resolves a specific key version, from cache when possible.
	GetTenantKeyByVersion(ctx context.Context, tenantID string, version uint) (*cryptoDomain.ResolvedKey, error)

	// ListTenantKeyVersions returns metadata for every retained version. No key material is included.
	ListTenantKeyVersions(ctx context.Context, tenantID string) ([]*cryptoDomain.TenantKey, error)
}

// FieldCipherUseCase encrypts and decrypts individual fields and whole records.
type FieldCipherUseCase interface {
	// EncryptField encrypts a string under the tenant's active key. A nil plaintext yields nil.
	EncryptField(ctx context.Context, tenantID, fieldName string, plaintext *string) (*string, error)

	// DecryptField decrypts an EncryptedValue string. A nil input yields nil and a value that
	// is not in the encrypted format is returned unchanged.
	DecryptField(ctx context.Context, tenantID, fieldName string, encoded *string) (*string, error)

	// EncryptArray JSON-encodes values and encrypts the result. A nil value yields nil.
	EncryptArray(ctx context.Context, tenantID, fieldName string, values any) (*string, error)

	// DecryptArray decrypts encoded and JSON-decodes the plaintext into out.
	DecryptArray(ctx context.Context, tenantID, fieldName string, encoded *string, out any) error

	// EncryptFields encrypts every configured field of a record concurrently. The call fails
	// only when the tenant key cannot be resolved; field failures are reported in the result.
	EncryptFields(
		ctx context.Context,
		tenantID string,
		record map[string]any,
		config cryptoDomain.EntityConfig,
	) (*cryptoDomain.BatchResult, error)

	// DecryptFields decrypts every configured field of a record concurrently.
	DecryptFields(
		ctx context.Context,
		tenantID string,
		record map[string]any,
		config cryptoDomain.EntityConfig,
	) (*cryptoDomain.BatchResult, error)
}
