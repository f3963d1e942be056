package postgresql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	"github.com/allisson/tenantcrypt/internal/database"
	"github.com/allisson/tenantcrypt/internal/testutil"
)

func newTenantKey(tenantID string, version uint, active bool) *cryptoDomain.TenantKey {
	return &cryptoDomain.TenantKey{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     tenantID,
		Version:      version,
		EncryptedKey: []byte("wrapped-tenant-key-with-gcm-tag-appended-0123456"),
		Nonce:        []byte("nonce-123456"),
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestPostgreSQLTenantKeyRepository_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("unique violation becomes rotation conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO tenant_encryption_keys").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err = NewPostgreSQLTenantKeyRepository(db).Create(ctx, newTenantKey("T1", 1, true))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other insert errors are wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		boom := errors.New("connection reset")
		mock.ExpectExec("INSERT INTO tenant_encryption_keys").WillReturnError(boom)

		err = NewPostgreSQLTenantKeyRepository(db).Create(ctx, newTenantKey("T1", 1, true))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})

	t.Run("no active row becomes key not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT (.+) FROM tenant_encryption_keys").
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = NewPostgreSQLTenantKeyRepository(db).GetActive(ctx, "T1")
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})

	t.Run("query failure is not key not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT (.+) FROM tenant_encryption_keys").
			WithArgs("T1", 2).
			WillReturnError(context.DeadlineExceeded)

		_, err = NewPostgreSQLTenantKeyRepository(db).GetByVersion(ctx, "T1", 2)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})

	t.Run("latest version of unknown tenant is zero", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT COALESCE").
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

		version, err := NewPostgreSQLTenantKeyRepository(db).GetLatestVersion(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
	})
}

func TestPostgreSQLTenantKeyRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLTenantKeyRepository(db)
	ctx := context.Background()

	tk := newTenantKey("tenant-a", 1, true)
	require.NoError(t, repo.Create(ctx, tk))

	active, err := repo.GetActive(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, active.ID)
	assert.Equal(t, uint(1), active.Version)
	assert.Equal(t, tk.EncryptedKey, active.EncryptedKey)
	assert.Equal(t, tk.Nonce, active.Nonce)
	assert.True(t, active.IsActive)
	assert.Nil(t, active.Key)
	assert.WithinDuration(t, tk.CreatedAt, active.CreatedAt, time.Second)

	byVersion, err := repo.GetByVersion(ctx, "tenant-a", 1)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, byVersion.ID)

	_, err = repo.GetByVersion(ctx, "tenant-a", 2)
	assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)

	_, err = repo.GetActive(ctx, "tenant-b")
	assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
}

func TestPostgreSQLTenantKeyRepository_Rotation(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLTenantKeyRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	testutil.InsertTestTenantKey(t, db, "postgres", "tenant-a", 1, true)
	testutil.InsertTestTenantKey(t, db, "postgres", "tenant-b", 1, true)

	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		latest, err := repo.GetLatestVersion(txCtx, "tenant-a")
		if err != nil {
			return err
		}
		if err := repo.DeactivatePrevious(txCtx, "tenant-a", latest+1); err != nil {
			return err
		}
		return repo.Create(txCtx, newTenantKey("tenant-a", latest+1, true))
	})
	require.NoError(t, err)

	active, err := repo.GetActive(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, uint(2), active.Version)

	keys, err := repo.ListByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint(2), keys[0].Version)
	assert.True(t, keys[0].IsActive)
	assert.Equal(t, uint(1), keys[1].Version)
	assert.False(t, keys[1].IsActive)

	other, err := repo.GetActive(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, uint(1), other.Version)
}

func TestPostgreSQLTenantKeyRepository_Constraints(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLTenantKeyRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTenantKey("tenant-a", 1, true)))

	t.Run("duplicate version", func(t *testing.T) {
		err := repo.Create(ctx, newTenantKey("tenant-a", 1, false))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})

	t.Run("second active key", func(t *testing.T) {
		err := repo.Create(ctx, newTenantKey("tenant-a", 2, true))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})

	t.Run("concurrent rotations commit once", func(t *testing.T) {
		txManager := database.NewTxManager(db)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = txManager.WithTx(ctx, func(txCtx context.Context) error {
					if err := repo.DeactivatePrevious(txCtx, "tenant-a", 3); err != nil {
						return err
					}
					return repo.Create(txCtx, newTenantKey("tenant-a", 3, true))
				})
			}()
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
				failures++
			}
		}
		assert.Equal(t, 1, failures)

		var active int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tenant_encryption_keys WHERE tenant_id = $1 AND is_active`, "tenant-a",
		).Scan(&active))
		assert.Equal(t, 1, active)
	})
}
