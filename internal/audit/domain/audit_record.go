// Package domain defines the append-only audit trail of field encryption and tenant key lifecycle events.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation identifies what produced an audit record.
type Operation string

const (
	OperationEncrypt     Operation = "encrypt"
	OperationDecrypt     Operation = "decrypt"
	OperationKeyRotation Operation = "key_rotation"
	OperationKeyAccess   Operation = "key_access"
)

// Valid reports whether o is one of the known operations.
func (o Operation) Valid() bool {
	switch o {
	case OperationEncrypt, OperationDecrypt, OperationKeyRotation, OperationKeyAccess:
		return true
	}
	return false
}

// AuditRecord is one immutable entry of the encryption audit trail.
//
// It never carries plaintext, ciphertext or key material. ErrorMessage is the message of
// the error returned to the caller, which is always one of the crypto domain errors.
type AuditRecord struct {
	ID           uuid.UUID
	TenantID     string
	TableName    string
	FieldName    string
	Operation    Operation
	KeyVersion   uint
	Success      bool
	ErrorMessage string
	OccurredAt   time.Time
}

// NewAuditRecord builds a record for an operation outcome. A nil err marks success.
func NewAuditRecord(
	op Operation,
	tenantID, tableName, fieldName string,
	keyVersion uint,
	err error,
) *AuditRecord {
	record := &AuditRecord{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		TableName:  tableName,
		FieldName:  fieldName,
		Operation:  op,
		KeyVersion: keyVersion,
		Success:    err == nil,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	return record
}
