package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// AuditCollection is the MongoDB collection holding audit records.
const AuditCollection = "encryption_audit_logs"

// documentInserter is the subset of *mongo.Collection the sink uses.
type documentInserter interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
}

type auditDocument struct {
	ID           string    `bson:"_id"`
	TenantID     string    `bson:"tenant_id"`
	TableName    string    `bson:"table_name,omitempty"`
	FieldName    string    `bson:"field_name,omitempty"`
	Operation    string    `bson:"operation"`
	KeyVersion   int64     `bson:"key_version"`
	Success      bool      `bson:"success"`
	ErrorMessage string    `bson:"error_message,omitempty"`
	OccurredAt   time.Time `bson:"occurred_at"`
}

func newAuditDocument(record *auditDomain.AuditRecord) auditDocument {
	return auditDocument{
		ID:           record.ID.String(),
		TenantID:     record.TenantID,
		TableName:    record.TableName,
		FieldName:    record.FieldName,
		Operation:    string(record.Operation),
		KeyVersion:   int64(record.KeyVersion),
		Success:      record.Success,
		ErrorMessage: record.ErrorMessage,
		OccurredAt:   record.OccurredAt,
	}
}

// MongoDBAuditRecordRepository appends audit records to a MongoDB collection.
type MongoDBAuditRecordRepository struct {
	collection documentInserter
}

// NewMongoDBAuditRecordRepository creates a MongoDB audit sink writing to AuditCollection.
func NewMongoDBAuditRecordRepository(db *mongo.Database) *MongoDBAuditRecordRepository {
	return &MongoDBAuditRecordRepository{collection: db.Collection(AuditCollection)}
}

func (m *MongoDBAuditRecordRepository) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	if _, err := m.collection.InsertOne(ctx, newAuditDocument(record)); err != nil {
		return apperrors.Wrap(err, "failed to insert audit record")
	}
	return nil
}
