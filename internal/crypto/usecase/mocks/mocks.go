// Package mocks provides testify mocks for the crypto use case interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// MockTenantKeyRepository is a testify mock of usecase.TenantKeyRepository.
type MockTenantKeyRepository struct {
	mock.Mock
}

// NewMockTenantKeyRepository creates a MockTenantKeyRepository that asserts its expectations on test cleanup.
func NewMockTenantKeyRepository(t testing.TB) *MockTenantKeyRepository {
	m := &MockTenantKeyRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTenantKeyRepository) Create(ctx context.Context, tenantKey *cryptoDomain.TenantKey) error {
	return m.Called(ctx, tenantKey).Error(0)
}

func (m *MockTenantKeyRepository) DeactivatePrevious(ctx context.Context, tenantID string, exceptVersion uint) error {
	return m.Called(ctx, tenantID, exceptVersion).Error(0)
}

func (m *MockTenantKeyRepository) GetActive(ctx context.Context, tenantID string) (*cryptoDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.TenantKey), args.Error(1)
}

func (m *MockTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.TenantKey), args.Error(1)
}

func (m *MockTenantKeyRepository) GetLatestVersion(ctx context.Context, tenantID string) (uint, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockTenantKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*cryptoDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.TenantKey), args.Error(1)
}

// MockTenantKeyUseCase is a testify mock of usecase.TenantKeyUseCase.
type MockTenantKeyUseCase struct {
	mock.Mock
}

// NewMockTenantKeyUseCase creates a MockTenantKeyUseCase that asserts its expectations on test cleanup.
func NewMockTenantKeyUseCase(t testing.TB) *MockTenantKeyUseCase {
	m := &MockTenantKeyUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTenantKeyUseCase) GenerateTenantKey(ctx context.Context, tenantID string) (uint, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockTenantKeyUseCase) EnsureTenantKey(ctx context.Context, tenantID string) (uint, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockTenantKeyUseCase) GetActiveTenantKey(
	ctx context.Context,
	tenantID string,
) (*cryptoDomain.ResolvedKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.ResolvedKey), args.Error(1)
}

func (m *MockTenantKeyUseCase) GetTenantKeyByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.ResolvedKey, error) {
	args := m.Called(ctx, tenantID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.ResolvedKey), args.Error(1)
}

func (m *MockTenantKeyUseCase) ListTenantKeyVersions(
	ctx context.Context,
	tenantID string,
) ([]*cryptoDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.TenantKey), args.Error(1)
}

// MockFieldCipherUseCase is a testify mock of usecase.FieldCipherUseCase.
type MockFieldCipherUseCase struct {
	mock.Mock
}

// NewMockFieldCipherUseCase creates a MockFieldCipherUseCase that asserts its expectations on test cleanup.
func NewMockFieldCipherUseCase(t testing.TB) *MockFieldCipherUseCase {
	m := &MockFieldCipherUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockFieldCipherUseCase) EncryptField(
	ctx context.Context,
	tenantID, fieldName string,
	plaintext *string,
) (*string, error) {
	args := m.Called(ctx, tenantID, fieldName, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockFieldCipherUseCase) DecryptField(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
) (*string, error) {
	args := m.Called(ctx, tenantID, fieldName, encoded)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockFieldCipherUseCase) EncryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	values any,
) (*string, error) {
	args := m.Called(ctx, tenantID, fieldName, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockFieldCipherUseCase) DecryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
	out any,
) error {
	return m.Called(ctx, tenantID, fieldName, encoded, out).Error(0)
}

func (m *MockFieldCipherUseCase) EncryptFields(
	ctx context.Context,
	tenantID string,
	record map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	args := m.Called(ctx, tenantID, record, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.BatchResult), args.Error(1)
}

func (m *MockFieldCipherUseCase) DecryptFields(
	ctx context.Context,
	tenantID string,
	record map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	args := m.Called(ctx, tenantID, record, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.BatchResult), args.Error(1)
}
