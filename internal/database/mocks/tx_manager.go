// Package mocks provides testify mocks for the database package.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a testify mock of database.TxManager.
//
// Return either an error or a func(context.Context, func(context.Context) error) error; the
// latter is invoked so the transaction body runs:
//
//	txManager.On("WithTx", mock.Anything, mock.Anything).Return(mocks.RunTx)
type MockTxManager struct {
	mock.Mock
}

// NewMockTxManager creates a MockTxManager that asserts its expectations on test cleanup.
func NewMockTxManager(t testing.TB) *MockTxManager {
	m := &MockTxManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RunTx runs the transaction body with the outer context.
func RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if rf, ok := args.Get(0).(func(context.Context, func(context.Context) error) error); ok {
		return rf(ctx, fn)
	}
	return args.Error(0)
}
