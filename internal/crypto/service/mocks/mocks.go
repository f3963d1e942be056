// Package mocks provides testify mocks for the crypto service interfaces.
package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
)

// MockKeyManager is a testify mock of service.KeyManager.
type MockKeyManager struct {
	mock.Mock
}

// NewMockKeyManager creates a MockKeyManager that asserts its expectations on test cleanup.
func NewMockKeyManager(t testing.TB) *MockKeyManager {
	m := &MockKeyManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyManager) CreateTenantKey(
	systemKey *cryptoDomain.SystemMasterKey,
	tenantID string,
	version uint,
) (cryptoDomain.TenantKey, error) {
	args := m.Called(systemKey, tenantID, version)
	return args.Get(0).(cryptoDomain.TenantKey), args.Error(1)
}

func (m *MockKeyManager) DecryptTenantKey(
	tk *cryptoDomain.TenantKey,
	systemKey *cryptoDomain.SystemMasterKey,
) ([]byte, error) {
	args := m.Called(tk, systemKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockKeyDeriver is a testify mock of service.KeyDeriver.
type MockKeyDeriver struct {
	mock.Mock
}

// NewMockKeyDeriver creates a MockKeyDeriver that asserts its expectations on test cleanup.
func NewMockKeyDeriver(t testing.TB) *MockKeyDeriver {
	m := &MockKeyDeriver{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyDeriver) DeriveFieldKey(tenantKey []byte, fieldName string, version uint) ([]byte, error) {
	args := m.Called(tenantKey, fieldName, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockAEADManager is a testify mock of service.AEADManager.
type MockAEADManager struct {
	mock.Mock
}

// NewMockAEADManager creates a MockAEADManager that asserts its expectations on test cleanup.
func NewMockAEADManager(t testing.TB) *MockAEADManager {
	m := &MockAEADManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAEADManager) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (cryptoService.AEAD, error) {
	args := m.Called(key, alg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoService.AEAD), args.Error(1)
}

// MockAEAD is a testify mock of service.AEAD.
type MockAEAD struct {
	mock.Mock
}

// NewMockAEAD creates a MockAEAD that asserts its expectations on test cleanup.
func NewMockAEAD(t testing.TB) *MockAEAD {
	m := &MockAEAD{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAEAD) Encrypt(plaintext, aad []byte) ([]byte, []byte, error) {
	args := m.Called(plaintext, aad)
	var ciphertext, nonce []byte
	if v := args.Get(0); v != nil {
		ciphertext = v.([]byte)
	}
	if v := args.Get(1); v != nil {
		nonce = v.([]byte)
	}
	return ciphertext, nonce, args.Error(2)
}

func (m *MockAEAD) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	args := m.Called(ciphertext, nonce, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var (
	_ cryptoService.AEAD        = (*MockAEAD)(nil)
	_ cryptoService.KeyManager  = (*MockKeyManager)(nil)
	_ cryptoService.KeyDeriver  = (*MockKeyDeriver)(nil)
	_ cryptoService.AEADManager = (*MockAEADManager)(nil)
)
