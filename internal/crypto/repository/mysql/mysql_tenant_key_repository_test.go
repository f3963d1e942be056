package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
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
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestMySQLTenantKeyRepository_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate entry becomes rotation conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO tenant_encryption_keys").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err = NewMySQLTenantKeyRepository(db).Create(ctx, newTenantKey("T1", 1, true))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other insert errors are wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		boom := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
		mock.ExpectExec("INSERT INTO tenant_encryption_keys").WillReturnError(boom)

		err = NewMySQLTenantKeyRepository(db).Create(ctx, newTenantKey("T1", 1, true))
		assert.True(t, errors.Is(err, boom))
		assert.NotErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})

	t.Run("id is stored as binary", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		tk := newTenantKey("T1", 1, true)
		id, err := tk.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO tenant_encryption_keys").
			WithArgs(id, "T1", 1, tk.EncryptedKey, tk.Nonce, true, tk.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLTenantKeyRepository(db).Create(ctx, tk))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scan decodes binary id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		tk := newTenantKey("T1", 4, true)
		id, err := tk.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM tenant_encryption_keys").
			WithArgs("T1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "tenant_id", "version", "encrypted_key", "nonce", "is_active", "created_at"},
			).AddRow(id, "T1", 4, tk.EncryptedKey, tk.Nonce, true, tk.CreatedAt))

		got, err := NewMySQLTenantKeyRepository(db).GetActive(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, tk.ID, got.ID)
		assert.Equal(t, uint(4), got.Version)
	})

	t.Run("no row becomes key not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT (.+) FROM tenant_encryption_keys").
			WithArgs("T1", 9).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = NewMySQLTenantKeyRepository(db).GetByVersion(ctx, "T1", 9)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)
	})
}

func TestMySQLTenantKeyRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLTenantKeyRepository(db)
	ctx := context.Background()

	tk := newTenantKey("tenant-a", 1, true)
	require.NoError(t, repo.Create(ctx, tk))

	active, err := repo.GetActive(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, active.ID)
	assert.Equal(t, tk.EncryptedKey, active.EncryptedKey)
	assert.Equal(t, tk.Nonce, active.Nonce)
	assert.True(t, active.IsActive)
	assert.WithinDuration(t, tk.CreatedAt, active.CreatedAt, time.Second)

	_, err = repo.GetByVersion(ctx, "tenant-a", 2)
	assert.ErrorIs(t, err, cryptoDomain.ErrKeyNotFound)

	latest, err := repo.GetLatestVersion(ctx, "tenant-z")
	require.NoError(t, err)
	assert.Equal(t, uint(0), latest)
}

func TestMySQLTenantKeyRepository_Rotation(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLTenantKeyRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	testutil.InsertTestTenantKey(t, db, "mysql", "tenant-a", 1, true)

	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.DeactivatePrevious(txCtx, "tenant-a", 2); err != nil {
			return err
		}
		return repo.Create(txCtx, newTenantKey("tenant-a", 2, true))
	})
	require.NoError(t, err)

	keys, err := repo.ListByTenant(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint(2), keys[0].Version)
	assert.True(t, keys[0].IsActive)
	assert.False(t, keys[1].IsActive)

	t.Run("second active key is rejected", func(t *testing.T) {
		err := repo.Create(ctx, newTenantKey("tenant-a", 3, true))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})

	t.Run("duplicate version is rejected", func(t *testing.T) {
		err := repo.Create(ctx, newTenantKey("tenant-a", 2, false))
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationConflict)
	})
}
