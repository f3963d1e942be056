// Package repository implements audit sinks for the encryption audit trail.
//
// SQL sinks append to encryption_audit_logs, the MongoDB sink appends to a collection of the
// same name, and LogAuditSink writes each record as a structured log line. Sinks only ever
// insert; records are never updated or deleted by this module.
package repository

import (
	"context"
	"database/sql"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// PostgreSQLAuditRecordRepository appends audit records to PostgreSQL.
type PostgreSQLAuditRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditRecordRepository creates a new PostgreSQL audit sink.
func NewPostgreSQLAuditRecordRepository(db *sql.DB) *PostgreSQLAuditRecordRepository {
	return &PostgreSQLAuditRecordRepository{db: db}
}

// Create inserts one audit record. An empty error message is stored as NULL.
func (p *PostgreSQLAuditRecordRepository) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_audit_logs
			  (id, tenant_id, table_name, field_name, operation, key_version, success, error_message, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
