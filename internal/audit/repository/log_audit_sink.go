package repository

import (
	"context"
	"log/slog"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
)

// LogAuditSink writes audit records as structured log lines. It is used when no audit store
// is configured and never fails.
type LogAuditSink struct {
	logger *slog.Logger
}

// NewLogAuditSink creates a sink that logs at INFO on logger.
func NewLogAuditSink(logger *slog.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger}
}

func (l *LogAuditSink) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	attrs := []slog.Attr{
		slog.String("audit_id", record.ID.String()),
		slog.String("tenant_id", record.TenantID),
		slog.String("operation", string(record.Operation)),
		slog.Uint64("key_version", uint64(record.KeyVersion)),
		slog.Bool("success", record.Success),
		slog.Time("occurred_at", record.OccurredAt),
	}
	if record.TableName != "" {
		attrs = append(attrs, slog.String("table_name", record.TableName))
	}
	if record.FieldName != "" {
		attrs = append(attrs, slog.String("field_name", record.FieldName))
	}
	if record.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", record.ErrorMessage))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, "encryption audit", attrs...)
	return nil
}
