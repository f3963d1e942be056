package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	"github.com/allisson/tenantcrypt/internal/metrics"
)

const metricsDomain = "crypto"

// tenantKeyUseCaseWithMetrics decorates TenantKeyUseCase with metrics instrumentation.
type tenantKeyUseCaseWithMetrics struct {
	next    TenantKeyUseCase
	metrics metrics.BusinessMetrics
}

// NewTenantKeyUseCaseWithMetrics wraps a TenantKeyUseCase with metrics recording.
func NewTenantKeyUseCaseWithMetrics(useCase TenantKeyUseCase, m metrics.BusinessMetrics) TenantKeyUseCase {
	return &tenantKeyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GenerateTenantKey records metrics for tenant key rotation.
func (t *tenantKeyUseCaseWithMetrics) GenerateTenantKey(ctx context.Context, tenantID string) (uint, error) {
	start := time.Now()
	version, err := t.next.GenerateTenantKey(ctx, tenantID)
	record(ctx, t.metrics, "tenant_key_generate", start, err)
	return version, err
}

// EnsureTenantKey records metrics for tenant key provisioning.
func (t *tenantKeyUseCaseWithMetrics) EnsureTenantKey(ctx context.Context, tenantID string) (uint, error) {
	start := time.Now()
	version, err := t.next.EnsureTenantKey(ctx, tenantID)
	record(ctx, t.metrics, "tenant_key_ensure", start, err)
	return version, err
}

// GetActiveTenantKey records metrics for active key resolution.
func (t *tenantKeyUseCaseWithMetrics) GetActiveTenantKey(
	ctx context.Context,
	tenantID string,
) (*cryptoDomain.ResolvedKey, error) {
	start := time.Now()
	key, err := t.next.GetActiveTenantKey(ctx, tenantID)
	record(ctx, t.metrics, "tenant_key_get_active", start, err)
	return key, err
}

// GetTenantKeyByVersion records metrics for versioned key resolution.
func (t *tenantKeyUseCaseWithMetrics) GetTenantKeyByVersion(
	ctx context.Context,
	tenantID string,
	version uint,
) (*cryptoDomain.ResolvedKey, error) {
	start := time.Now()
	key, err := t.next.GetTenantKeyByVersion(ctx, tenantID, version)
	record(ctx, t.metrics, "tenant_key_get_version", start, err)
	return key, err
}

// ListTenantKeyVersions records metrics for version listing.
func (t *tenantKeyUseCaseWithMetrics) ListTenantKeyVersions(
	ctx context.Context,
	tenantID string,
) ([]*cryptoDomain.TenantKey, error) {
	start := time.Now()
	keys, err := t.next.ListTenantKeyVersions(ctx, tenantID)
	record(ctx, t.metrics, "tenant_key_list", start, err)
	return keys, err
}

// fieldCipherUseCaseWithMetrics decorates FieldCipherUseCase with metrics instrumentation.
type fieldCipherUseCaseWithMetrics struct {
	next    FieldCipherUseCase
	metrics metrics.BusinessMetrics
}

// NewFieldCipherUseCaseWithMetrics wraps a FieldCipherUseCase with metrics recording.
func NewFieldCipherUseCaseWithMetrics(useCase FieldCipherUseCase, m metrics.BusinessMetrics) FieldCipherUseCase {
	return &fieldCipherUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (f *fieldCipherUseCaseWithMetrics) EncryptField(
	ctx context.Context,
	tenantID, fieldName string,
	plaintext *string,
) (*string, error) {
	start := time.Now()
	out, err := f.next.EncryptField(ctx, tenantID, fieldName, plaintext)
	record(ctx, f.metrics, "field_encrypt", start, err)
	return out, err
}

func (f *fieldCipherUseCaseWithMetrics) DecryptField(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
) (*string, error) {
	start := time.Now()
	out, err := f.next.DecryptField(ctx, tenantID, fieldName, encoded)
	record(ctx, f.metrics, "field_decrypt", start, err)
	return out, err
}

func (f *fieldCipherUseCaseWithMetrics) EncryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	values any,
) (*string, error) {
	start := time.Now()
	out, err := f.next.EncryptArray(ctx, tenantID, fieldName, values)
	record(ctx, f.metrics, "array_encrypt", start, err)
	return out, err
}

func (f *fieldCipherUseCaseWithMetrics) DecryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
	out any,
) error {
	start := time.Now()
	err := f.next.DecryptArray(ctx, tenantID, fieldName, encoded, out)
	record(ctx, f.metrics, "array_decrypt", start, err)
	return err
}

// EncryptFields records the batch as a whole; a batch with field errors is recorded as "partial".
func (f *fieldCipherUseCaseWithMetrics) EncryptFields(
	ctx context.Context,
	tenantID string,
	rec map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	start := time.Now()
	result, err := f.next.EncryptFields(ctx, tenantID, rec, config)
	recordBatch(ctx, f.metrics, "fields_encrypt", start, result, err)
	return result, err
}

func (f *fieldCipherUseCaseWithMetrics) DecryptFields(
	ctx context.Context,
	tenantID string,
	rec map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	start := time.Now()
	result, err := f.next.DecryptFields(ctx, tenantID, rec, config)
	recordBatch(ctx, f.metrics, "fields_decrypt", start, result, err)
	return result, err
}

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

func recordBatch(
	ctx context.Context,
	m metrics.BusinessMetrics,
	operation string,
	start time.Time,
	result *cryptoDomain.BatchResult,
	err error,
) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.Failed():
		status = "partial"
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
