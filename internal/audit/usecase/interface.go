// Package usecase delivers audit records to a durable sink without ever blocking or failing
// the cryptographic operation that produced them.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
)

// AuditSink persists audit records. Implementations are append-only.
type AuditSink interface {
	// Create appends one record.
	Create(ctx context.Context, record *auditDomain.AuditRecord) error
}

// AuditLogger is the fire-and-forget entry point used by the crypto use cases.
type AuditLogger interface {
	// Log hands a record off for asynchronous delivery. It never blocks and never fails.
	Log(ctx context.Context, record *auditDomain.AuditRecord)
}
