// Package postgresql implements tenant key persistence for PostgreSQL.
//
// Rows live in tenant_encryption_keys. The schema enforces one row per (tenant_id, version)
// and at most one active row per tenant through a partial unique index, so two processes
// rotating the same tenant cannot both commit. A violation of either constraint is reported
// as ErrRotationConflict.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgreSQLTenantKeyRepository implements TenantKeyRepository for PostgreSQL databases.
//
// All methods honor a transaction carried in ctx via database.GetTx, which lets a rotation
// read the latest version, deactivate it and insert the successor atomically.
type PostgreSQLTenantKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLTenantKeyRepository creates a new PostgreSQL tenant key repository.
func NewPostgreSQLTenantKeyRepository(db *sql.DB) *PostgreSQLTenantKeyRepository {
	return &PostgreSQLTenantKeyRepository{db: db}
}

// Create inserts a new tenant key version. Only the wrapped key is stored.
func (p *PostgreSQLTenantKeyRepository) Create(ctx context.Context, tk *cryptoDomain.TenantKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tenant_encryption_keys (id, tenant_id, version, encrypted_key, nonce, is_active, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		tk.ID,
		tk.TenantID,
		tk.Version,
		tk.EncryptedKey,
		tk.Nonce,
		tk.IsActive,
		tk.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cryptoDomain.ErrRotationConflict
		}
		return apperrors.Wrap(err, "failed to create tenant key")
	}
	return nil
}

// DeactivatePrevious clears the active flag on every version of the tenant except exceptVersion.
func (p *PostgreSQLTenantKeyRepository) DeactivatePrevious(
	ctx context.Context,
	tenantID string,
	exceptVersion uint,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tenant_encryption_keys
			  SET is_active = FALSE
			  WHERE tenant_id = $1 AND version <> $2 AND is_active`

	if _, err := querier.ExecContext(ctx, query, tenantID, exceptVersion); err != nil {
		return apperrors.Wrap(err, "failed to deactivate tenant keys")
	}
	return nil
}

// GetActive returns the tenant's active key version or ErrKeyNotFound.
func (p *PostgreSQLTenantKeyRepository) GetActive(
	ctx context.Context,
	tenantID string,
) (*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = $1 AND is_active`

	return scanTenantKey(querier.QueryRowContext(ctx, query, tenantID))
}

// GetByVersion returns one version of the tenant's key whether or not it is active.
func (p *PostgreSQLTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = $1 AND version = $2`

	return scanTenantKey(querier.QueryRowContext(ctx, query, tenantID, version))
}

// GetLatestVersion returns the highest version stored for the tenant, or 0 when it has none.
func (p *PostgreSQLTenantKeyRepository) GetLatestVersion(ctx context.Context, tenantID string) (uint, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COALESCE(MAX(version), 0) FROM tenant_encryption_keys WHERE tenant_id = $1`

	var version uint
	if err := querier.QueryRowContext(ctx, query, tenantID).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest tenant key version")
	}
	return version, nil
}

// ListByTenant returns every version of the tenant's key, newest first.
func (p *PostgreSQLTenantKeyRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
) ([]*cryptoDomain.TenantKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, tenant_id, version, encrypted_key, nonce, is_active, created_at
			  FROM tenant_encryption_keys
			  WHERE tenant_id = $1
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
	err := row.Scan(
		&tk.ID,
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
	return &tk, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
