package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	auditUsecase "github.com/allisson/tenantcrypt/internal/audit/usecase"
	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// DefaultStoreTimeout bounds every call to the tenant key store.
const DefaultStoreTimeout = 5 * time.Second

// tenantKeyUseCase implements TenantKeyUseCase.
type tenantKeyUseCase struct {
	txManager    database.TxManager
	repo         TenantKeyRepository
	keyManager   cryptoService.KeyManager
	systemKey    *cryptoDomain.SystemMasterKey
	cache        *KeyCache
	auditLogger  auditUsecase.AuditLogger
	storeTimeout time.Duration
	locks        tenantLocks
}

// NewTenantKeyUseCase creates a TenantKeyUseCase. A non-positive storeTimeout uses DefaultStoreTimeout.
func NewTenantKeyUseCase(
	txManager database.TxManager,
	repo TenantKeyRepository,
	keyManager cryptoService.KeyManager,
	systemKey *cryptoDomain.SystemMasterKey,
	cache *KeyCache,
	auditLogger auditUsecase.AuditLogger,
	storeTimeout time.Duration,
) TenantKeyUseCase {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &tenantKeyUseCase{
		txManager:    txManager,
		repo:         repo,
		keyManager:   keyManager,
		systemKey:    systemKey,
		cache:        cache,
		auditLogger:  auditLogger,
		storeTimeout: storeTimeout,
		locks:        tenantLocks{locks: make(map[string]*tenantLock)},
	}
}

// GenerateTenantKey rotates the tenant to a new key version.
//
// Within one process, rotations of the same tenant are serialized by a per-tenant mutex.
// Across processes the store's uniqueness constraints reject the loser, which surfaces as
// ErrRotationConflict. The deactivate and insert run in one transaction, so no reader ever
// observes zero or two active versions.
func (t *tenantKeyUseCase) GenerateTenantKey(ctx context.Context, tenantID string) (uint, error) {
	return t.rotate(ctx, tenantID, false)
}

// EnsureTenantKey provisions version 1 on first use, otherwise returns the active version.
func (t *tenantKeyUseCase) EnsureTenantKey(ctx context.Context, tenantID string) (uint, error) {
	key, err := t.GetActiveTenantKey(ctx, tenantID)
	if err == nil {
		return key.Version, nil
	}
	if !apperrors.Is(err, cryptoDomain.ErrKeyNotFound) {
		return 0, err
	}

	version, err := t.rotate(ctx, tenantID, true)
	if apperrors.Is(err, cryptoDomain.ErrRotationConflict) {
		// Another process provisioned the tenant first.
		key, err := t.GetActiveTenantKey(ctx, tenantID)
		if err != nil {
			return 0, err
		}
		return key.Version, nil
	}
	return version, err
}

// GetActiveTenantKey resolves the tenant's active key. A key_access event is emitted on
// every cache miss, successful or not.
func (t *tenantKeyUseCase) GetActiveTenantKey(
	ctx context.Context,
	tenantID string,
) (*cryptoDomain.ResolvedKey, error) {
	if tenantID == "" {
		return nil, cryptoDomain.ErrInvalidTenantID
	}

	return t.cache.GetActive(ctx, tenantID, func(ctx context.Context) (*cryptoDomain.ResolvedKey, error) {
		return t.load(ctx, tenantID, 0, func(ctx context.Context) (*cryptoDomain.TenantKey, error) {
			return t.repo.GetActive(ctx, tenantID)
		})
	})
}

// GetTenantKeyByVersion resolves one version of the tenant key.
func (t *tenantKeyUseCase) GetTenantKeyByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.ResolvedKey, error) {
	if tenantID == "" {
		return nil, cryptoDomain.ErrInvalidTenantID
	}
	if version == 0 {
		return nil, cryptoDomain.ErrKeyNotFound
	}

	return t.cache.GetVersion(ctx, tenantID, version, func(ctx context.Context) (*cryptoDomain.ResolvedKey, error) {
		return t.load(ctx, tenantID, version, func(ctx context.Context) (*cryptoDomain.TenantKey, error) {
			return t.repo.GetByVersion(ctx, tenantID, version)
		})
	})
}

// ListTenantKeyVersions returns every retained version with the wrapped key material stripped.
func (t *tenantKeyUseCase) ListTenantKeyVersions(
	ctx context.Context,
	tenantID string,
) ([]*cryptoDomain.TenantKey, error) {
	if tenantID == "" {
		return nil, cryptoDomain.ErrInvalidTenantID
	}

	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	keys, err := t.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, storeError(err)
	}
	for _, k := range keys {
		k.EncryptedKey = nil
		k.Nonce = nil
		k.Key = nil
	}
	return keys, nil
}

func (t *tenantKeyUseCase) rotate(ctx context.Context, tenantID string, onlyIfMissing bool) (uint, error) {
	if tenantID == "" {
		return 0, cryptoDomain.ErrInvalidTenantID
	}

	unlock := t.locks.lock(tenantID)
	defer unlock()

	var (
		created  *cryptoDomain.TenantKey
		existing uint
		version  uint
		keyErr   error
	)

	txCtx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	err := t.txManager.WithTx(txCtx, func(txCtx context.Context) error {
		if onlyIfMissing {
			active, err := t.repo.GetActive(txCtx, tenantID)
			if err == nil {
				existing = active.Version
				return nil
			}
			if !apperrors.Is(err, cryptoDomain.ErrKeyNotFound) {
				return storeError(err)
			}
		}

		latest, err := t.repo.GetLatestVersion(txCtx, tenantID)
		if err != nil {
			return storeError(err)
		}
		version = latest + 1

		tk, err := t.keyManager.CreateTenantKey(t.systemKey, tenantID, version)
		if err != nil {
			keyErr = err
			return err
		}

		if err := t.repo.DeactivatePrevious(txCtx, tenantID, version); err != nil {
			cryptoDomain.Zero(tk.Key)
			return storeError(err)
		}
		if err := t.repo.Create(txCtx, &tk); err != nil {
			cryptoDomain.Zero(tk.Key)
			return storeError(err)
		}

		created = &tk
		return nil
	})
	if err != nil {
		// Commit failures and deadline errors reach here without passing through a repository.
		if keyErr == nil {
			err = storeError(err)
		}
		if created != nil {
			cryptoDomain.Zero(created.Key)
		}
		t.auditLogger.Log(ctx, auditDomain.NewAuditRecord(
			auditDomain.OperationKeyRotation, tenantID, cryptoDomain.TenantKeysTable, "", version, err,
		))
		return 0, err
	}

	if created == nil {
		return existing, nil
	}

	t.cache.SetActive(cryptoDomain.NewResolvedKey(created))
	cryptoDomain.Zero(created.Key)

	t.auditLogger.Log(ctx, auditDomain.NewAuditRecord(
		auditDomain.OperationKeyRotation, tenantID, cryptoDomain.TenantKeysTable, "", version, nil,
	))
	return version, nil
}

// load fetches one wrapped key under the store timeout, unwraps it, and audits the access.
func (t *tenantKeyUseCase) load(
	ctx context.Context,
	tenantID string,
	version uint,
	fetch func(ctx context.Context) (*cryptoDomain.TenantKey, error),
) (*cryptoDomain.ResolvedKey, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()

	tk, err := fetch(fetchCtx)
	if err != nil {
		err = storeError(err)
		t.auditLogger.Log(ctx, auditDomain.NewAuditRecord(
			auditDomain.OperationKeyAccess, tenantID, cryptoDomain.TenantKeysTable, "", version, err,
		))
		return nil, err
	}

	key, err := t.keyManager.DecryptTenantKey(tk, t.systemKey)
	t.auditLogger.Log(ctx, auditDomain.NewAuditRecord(
		auditDomain.OperationKeyAccess, tenantID, cryptoDomain.TenantKeysTable, "", tk.Version, err,
	))
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.ResolvedKey{
		TenantID: tk.TenantID,
		Version:  tk.Version,
		Key:      key,
	}, nil
}

// storeError maps store failures onto the crypto error taxonomy. Domain errors pass through;
// deadline and driver errors become ErrPersistenceTimeout.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, cryptoDomain.ErrKeyNotFound),
		apperrors.Is(err, cryptoDomain.ErrRotationConflict),
		apperrors.Is(err, cryptoDomain.ErrPersistenceTimeout),
		apperrors.Is(err, cryptoDomain.ErrIntegrity),
		apperrors.Is(err, cryptoDomain.ErrInvalidKeySize),
		apperrors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", cryptoDomain.ErrPersistenceTimeout, err)
	}
}

// tenantLocks hands out one mutex per tenant and frees it once no goroutine holds or waits on it.
type tenantLocks struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

type tenantLock struct {
	mu   sync.Mutex
	refs int
}

func (l *tenantLocks) lock(tenantID string) func() {
	l.mu.Lock()
	tl, ok := l.locks[tenantID]
	if !ok {
		tl = &tenantLock{}
		l.locks[tenantID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()

	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, tenantID)
		}
		l.mu.Unlock()
	}
}
