// Package mysql implements tenant key persistence for MySQL.
//
// MySQL has no partial indexes, so the one-active-key rule is enforced by a unique index on
// the generated column active_tenant_id, which is NULL for superseded rows.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// duplicateEntry is ER_DUP_ENTRY.
const duplicateEntry = 1062

// MySQLTenantKeyRepository implements TenantKeyRepository for MySQL databases.
// IDs are stored as BINARY(16).
type MySQLTenantKeyRepository struct {
	db *sql.DB
}

// NewMySQLTenantKeyRepository creates a new MySQL tenant key repository.
func NewMySQLTenantKeyRepository(db *sql.DB) *MySQLTenantKeyRepository {
	return &MySQLTenantKeyRepository{db: db}
}

func (m *MySQLTenantKeyRepository) Create(ctx context.Context, tk *cryptoDomain.TenantKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO tenant_encryption_keys (id, tenant_id, version, encrypted_key, nonce, is_active, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := tk.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tenant key id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		tk.TenantID,
		tk.Version,
		tk.EncryptedKey,
		tk.Nonce,
		tk.IsActive,
		tk.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry {
			return cryptoDomain.ErrRotationConflict
		}
		return apperrors.Wrap(err, "failed to create tenant key")
	}
	return nil
}

func (m *MySQLTenantKeyRepository) DeactivatePrevious(
	ctx context.Context,
	tenantID string,
	exceptVersion uint,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE tenant_encryption_keys
			  SET is_active = FALSE
			  WHERE tenant_id = ? AND version <> ? AND is_active = TRUE`

	if _, err := querier.ExecContext(ctx, query, tenantID, exceptVersion); err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant keys")
	}
	return nil
}

func (m *MySQLTenantKeyRepository) GetActive(ctx context.Context, tenantID string) (*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = ? AND is_active = TRUE`

	return scanTenantKey(querier.QueryRowContext(ctx, query, tenantID))
}

func (m *MySQLTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = ? AND version = ?`

	return scanTenantKey(querier.QueryRowContext(ctx, query, tenantID, version))
}

func (m *MySQLTenantKeyRepository) GetLatestVersion(ctx context.Context, tenantID string) (uint, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COALESCE(MAX(version), 0) FROM tenant_encryption_keys WHERE tenant_id = ?`

	var version uint
	if err := querier.QueryRowContext(ctx, query, tenantID).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest tenant key version")
	}
	return version, nil
}

func (m *MySQLTenantKeyRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
) ([]*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = ?
			  ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tenant keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	var keys []*cryptoDomain.TenantKey
	for rows.Next() {
		tk, err := scanTenantKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate tenant keys")
	}
	return keys, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenantKey(row scanner) (*cryptoDomain.TenantKey, error) {
	var tk cryptoDomain.TenantKey
	var id []byte

	err := row.Scan(
		&id,
		&tk.TenantID,
		&tk.Version,
		&tk.EncryptedKey,
		&tk.Nonce,
		&tk.IsActive,
		&tk.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan tenant key")
	}

	if err := tk.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal tenant key id")
	}
	return &tk, nil
}
