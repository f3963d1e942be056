package usecase

import (
	"context"
	"encoding/base64"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
)

// memoryTenantKeyRepository enforces the same constraints as the SQL schema.
type memoryTenantKeyRepository struct {
	mu   sync.Mutex
	rows []*cryptoDomain.TenantKey

	getActiveCalls    atomic.Int64
	getByVersionCalls atomic.Int64

	// gate, when set, holds every read until it is closed.
	gate chan struct{}
}

func newMemoryTenantKeyRepository() *memoryTenantKeyRepository {
	return &memoryTenantKeyRepository{}
}

func (r *memoryTenantKeyRepository) wait(ctx context.Context) error {
	if r.gate == nil {
		return nil
	}
	select {
	case <-r.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *memoryTenantKeyRepository) Create(ctx context.Context, tk *cryptoDomain.TenantKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.TenantID != tk.TenantID {
			continue
		}
		if row.Version == tk.Version || (row.IsActive && tk.IsActive) {
			return cryptoDomain.ErrRotationConflict
		}
	}

	stored := *tk
	stored.Key = nil
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *memoryTenantKeyRepository) DeactivatePrevious(ctx context.Context, tenantID string, exceptVersion uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.TenantID == tenantID && row.Version != exceptVersion {
			row.IsActive = false
		}
	}
	return nil
}

func (r *memoryTenantKeyRepository) GetActive(ctx context.Context, tenantID string) (*cryptoDomain.TenantKey, error) {
	r.getActiveCalls.Add(1)
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.TenantID == tenantID && row.IsActive {
			c := *row
			return &c, nil
		}
	}
	return nil, cryptoDomain.ErrKeyNotFound
}

func (r *memoryTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.TenantKey, error) {
	r.getByVersionCalls.Add(1)
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.TenantID == tenantID && row.Version == version {
			c := *row
			return &c, nil
		}
	}
	return nil, cryptoDomain.ErrKeyNotFound
}

func (r *memoryTenantKeyRepository) GetLatestVersion(ctx context.Context, tenantID string) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest uint
	for _, row := range r.rows {
		if row.TenantID == tenantID && row.Version > latest {
			latest = row.Version
		}
	}
	return latest, nil
}

func (r *memoryTenantKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*cryptoDomain.TenantKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []*cryptoDomain.TenantKey
	for _, row := range r.rows {
		if row.TenantID == tenantID {
			c := *row
			keys = append(keys, &c)
		}
	}
	slices.SortFunc(keys, func(a, b *cryptoDomain.TenantKey) int {
		return int(b.Version) - int(a.Version)
	})
	return keys, nil
}

func (r *memoryTenantKeyRepository) activeCount(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, row := range r.rows {
		if row.TenantID == tenantID && row.IsActive {
			n++
		}
	}
	return n
}

// recordingAuditLogger keeps every record it is handed.
type recordingAuditLogger struct {
	mu      sync.Mutex
	records []*auditDomain.AuditRecord
}

func (l *recordingAuditLogger) Log(ctx context.Context, record *auditDomain.AuditRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

func (l *recordingAuditLogger) byOperation(op auditDomain.Operation) []*auditDomain.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*auditDomain.AuditRecord
	for _, r := range l.records {
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}

// directTxManager runs the transaction body inline.
type directTxManager struct{}

func (directTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newZeroSystemMasterKey(t *testing.T) *cryptoDomain.SystemMasterKey {
	t.Helper()
	key, err := cryptoDomain.LoadSystemMasterKey(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	return key
}

type testEnv struct {
	repo       *memoryTenantKeyRepository
	audit      *recordingAuditLogger
	cache      *KeyCache
	systemKey  *cryptoDomain.SystemMasterKey
	tenantKeys TenantKeyUseCase
	cipher     FieldCipherUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithDeriver(t, cryptoService.NewKeyDeriver())
}

func newTestEnvWithDeriver(t *testing.T, deriver cryptoService.KeyDeriver) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:      newMemoryTenantKeyRepository(),
		audit:     &recordingAuditLogger{},
		cache:     NewKeyCache(DefaultKeyCacheTTL),
		systemKey: newZeroSystemMasterKey(t),
	}
	aeadManager := cryptoService.NewAEADManager()

	env.tenantKeys = NewTenantKeyUseCase(
		directTxManager{},
		env.repo,
		cryptoService.NewKeyManager(aeadManager),
		env.systemKey,
		env.cache,
		env.audit,
		DefaultStoreTimeout,
	)
	env.cipher = NewFieldCipherUseCase(env.tenantKeys, deriver, aeadManager, env.audit, 4)

	t.Cleanup(env.cache.Close)
	return env
}

// failingDeriver fails derivation for one field name and delegates the rest.
type failingDeriver struct {
	next  cryptoService.KeyDeriver
	field string
	err   error
}

func (d failingDeriver) DeriveFieldKey(tenantKey []byte, fieldName string, version uint) ([]byte, error) {
	if fieldName == d.field {
		return nil, d.err
	}
	return d.next.DeriveFieldKey(tenantKey, fieldName, version)
}

func ptr(s string) *string {
	return &s
}
