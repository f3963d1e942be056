// Package mocks provides testify mocks for the audit use case interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
)

// MockAuditSink is a testify mock of usecase.AuditSink.
type MockAuditSink struct {
	mock.Mock
}

// NewMockAuditSink creates a MockAuditSink that asserts its expectations on test cleanup.
func NewMockAuditSink(t testing.TB) *MockAuditSink {
	m := &MockAuditSink{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditSink) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockAuditLogger is a testify mock of usecase.AuditLogger.
type MockAuditLogger struct {
	mock.Mock
}

// NewMockAuditLogger creates a MockAuditLogger that asserts its expectations on test cleanup.
func NewMockAuditLogger(t testing.TB) *MockAuditLogger {
	m := &MockAuditLogger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditLogger) Log(ctx context.Context, record *auditDomain.AuditRecord) {
	m.Called(ctx, record)
}
