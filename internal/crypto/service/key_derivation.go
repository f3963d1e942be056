package service

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// HKDFKeyDeriver implements KeyDeriver with HKDF-SHA256.
//
// The tenant master key is the input keying material, the decimal key version is the
// salt and the field name is the info string. A leaked field key reveals neither the
// tenant key nor any sibling field key.
type HKDFKeyDeriver struct{}

// NewKeyDeriver creates a new HKDFKeyDeriver.
func NewKeyDeriver() *HKDFKeyDeriver {
	return &HKDFKeyDeriver{}
}

// DeriveFieldKey derives the 32-byte key for one (tenant key, version, field) triple.
func (d *HKDFKeyDeriver) DeriveFieldKey(tenantKey []byte, fieldName string, version uint) ([]byte, error) {
	if len(tenantKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	salt := []byte(strconv.FormatUint(uint64(version), 10))
	reader := hkdf.New(sha256.New, tenantKey, salt, []byte(fieldName))

	fieldKey := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, fieldKey); err != nil {
		return nil, fmt.Errorf("failed to derive field key: %w", err)
	}
	return fieldKey, nil
}
