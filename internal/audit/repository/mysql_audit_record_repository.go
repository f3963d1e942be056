package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// MySQLAuditRecordRepository appends audit records to MySQL. IDs are stored as BINARY(16).
type MySQLAuditRecordRepository struct {
	db *sql.DB
}

// NewMySQLAuditRecordRepository creates a new MySQL audit sink.
func NewMySQLAuditRecordRepository(db *sql.DB) *MySQLAuditRecordRepository {
	return &MySQLAuditRecordRepository{db: db}
}

func (m *MySQLAuditRecordRepository) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO encryption_audit_logs
			  (id, tenant_id, table_name, field_name, operation, key_version, success, error_message, occurred_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit record id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		record.TenantID,
		record.TableName,
		record.FieldName,
		string(record.Operation),
		record.KeyVersion,
		record.Success,
		nullString(record.ErrorMessage),
		record.OccurredAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit record")
	}
	return nil
}
