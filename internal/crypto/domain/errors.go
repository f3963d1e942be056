package domain

import (
	"github.com/allisson/tenantcrypt/internal/errors"
)

// Cryptographic and key-management error definitions.
//
// Each error wraps one of the base kinds from internal/errors so callers can decide
// between retrying, surfacing a 4xx-style failure, or aborting startup. Errors from
// crypto/cipher are never returned as-is; they are translated into one of these.
var (
	// ErrConfiguration indicates the system master key is missing or malformed.
	//
	// This is the only fatal error in the subsystem. It is returned at startup by
	// LoadSystemMasterKey and the process is expected to exit.
	ErrConfiguration = errors.Wrap(errors.ErrInvalidInput, "invalid system master key configuration")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrKeyNotFound indicates the tenant has no active key, or no key with the
	// requested version.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "tenant key not found")

	// ErrIntegrity indicates GCM authentication failed.
	//
	// The ciphertext, IV or tag were altered, or the value was produced under a
	// different tenant or field key. No plaintext is ever returned alongside it.
	ErrIntegrity = errors.Wrap(errors.ErrInvalidInput, "integrity check failed")

	// ErrInvalidFormat indicates a string is not a well-formed encrypted value.
	ErrInvalidFormat = errors.Wrap(errors.ErrInvalidInput, "invalid encrypted value format")

	// ErrPersistenceTimeout indicates the tenant key store did not answer within the
	// configured timeout or could not be reached. Retryable.
	ErrPersistenceTimeout = errors.Wrap(errors.ErrUnavailable, "tenant key store unavailable")

	// ErrRotationConflict indicates another rotation for the same tenant committed first.
	ErrRotationConflict = errors.Wrap(errors.ErrConflict, "concurrent tenant key rotation")

	// ErrRequiredFieldMissing indicates a field marked required in the entity config
	// was absent or null in a batch record.
	ErrRequiredFieldMissing = errors.Wrap(errors.ErrInvalidInput, "required field missing")

	// ErrUnsupportedFieldValue indicates a batch field holds a type that is neither a
	// string nor a JSON-encodable array.
	ErrUnsupportedFieldValue = errors.Wrap(errors.ErrInvalidInput, "unsupported field value type")

	// ErrInvalidTenantID indicates an empty tenant identifier.
	ErrInvalidTenantID = errors.Wrap(errors.ErrInvalidInput, "tenant id is required")

	// ErrInvalidFieldName indicates an empty field name on a single-field call.
	ErrInvalidFieldName = errors.Wrap(errors.ErrInvalidInput, "field name is required")
)
