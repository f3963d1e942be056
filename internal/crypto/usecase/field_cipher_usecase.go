package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	auditUsecase "github.com/allisson/tenantcrypt/internal/audit/usecase"
	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
)

// DefaultBatchConcurrency bounds how many fields of one record are processed at once.
const DefaultBatchConcurrency = 8

// fieldCipherUseCase implements FieldCipherUseCase.
type fieldCipherUseCase struct {
	tenantKeys     TenantKeyUseCase
	keyDeriver     cryptoService.KeyDeriver
	aeadManager    cryptoService.AEADManager
	auditLogger    auditUsecase.AuditLogger
	maxConcurrency int
}

// NewFieldCipherUseCase creates a FieldCipherUseCase. A non-positive maxConcurrency uses
// DefaultBatchConcurrency.
func NewFieldCipherUseCase(
	tenantKeys TenantKeyUseCase,
	keyDeriver cryptoService.KeyDeriver,
	aeadManager cryptoService.AEADManager,
	auditLogger auditUsecase.AuditLogger,
	maxConcurrency int,
) FieldCipherUseCase {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultBatchConcurrency
	}
	return &fieldCipherUseCase{
		tenantKeys:     tenantKeys,
		keyDeriver:     keyDeriver,
		aeadManager:    aeadManager,
		auditLogger:    auditLogger,
		maxConcurrency: maxConcurrency,
	}
}

func (f *fieldCipherUseCase) EncryptField(
	ctx context.Context,
	tenantID, fieldName string,
	plaintext *string,
) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	if err := validateFieldCall(tenantID, fieldName); err != nil {
		return nil, err
	}

	key, err := f.tenantKeys.GetActiveTenantKey(ctx, tenantID)
	if err != nil {
		f.audit(ctx, auditDomain.OperationEncrypt, tenantID, "", fieldName, 0, err)
		return nil, err
	}

	encoded, err := f.seal(key, fieldName, []byte(*plaintext))
	f.audit(ctx, auditDomain.OperationEncrypt, tenantID, "", fieldName, key.Version, err)
	if err != nil {
		return nil, err
	}
	return &encoded, nil
}

func (f *fieldCipherUseCase) DecryptField(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
) (*string, error) {
	if encoded == nil {
		return nil, nil
	}
	if err := validateFieldCall(tenantID, fieldName); err != nil {
		return nil, err
	}

	value, err := cryptoDomain.ParseEncryptedValue(*encoded)
	if err != nil {
		// Legacy plaintext written before encryption was enabled.
		passthrough := *encoded
		return &passthrough, nil
	}

	plaintext, err := f.decryptValue(ctx, tenantID, "", fieldName, value, nil)
	if err != nil {
		return nil, err
	}
	return &plaintext, nil
}

func (f *fieldCipherUseCase) EncryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	values any,
) (*string, error) {
	data, err := encodeArray(values)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	plaintext := string(data)
	return f.EncryptField(ctx, tenantID, fieldName, &plaintext)
}

func (f *fieldCipherUseCase) DecryptArray(
	ctx context.Context,
	tenantID, fieldName string,
	encoded *string,
	out any,
) error {
	plaintext, err := f.DecryptField(ctx, tenantID, fieldName, encoded)
	if err != nil {
		return err
	}
	if plaintext == nil {
		return nil
	}

	if err := json.Unmarshal([]byte(*plaintext), out); err != nil {
		return fmt.Errorf("%w: %s is not a JSON array", cryptoDomain.ErrInvalidFormat, fieldName)
	}
	return nil
}

// EncryptFields resolves the active key once and encrypts every configured field with it,
// so all fields of the record carry the same version.
func (f *fieldCipherUseCase) EncryptFields(
	ctx context.Context,
	tenantID string,
	record map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	key, err := f.tenantKeys.GetActiveTenantKey(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return f.batch(record, config, func(field cryptoDomain.FieldConfig, value any) (any, error) {
		encoded, err := f.encryptFieldValue(key, field, value)
		f.audit(ctx, auditDomain.OperationEncrypt, tenantID, config.Table, field.Name, key.Version, err)
		return encoded, err
	}), nil
}

// DecryptFields resolves every key version referenced by the record before decrypting.
// A store failure while resolving fails the whole call, as does a record whose referenced
// versions are all missing. When only some versions are missing the error is reported on
// the fields that reference them.
func (f *fieldCipherUseCase) DecryptFields(
	ctx context.Context,
	tenantID string,
	record map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, cryptoDomain.ErrInvalidTenantID
	}

	parsed := make(map[string]cryptoDomain.EncryptedValue, len(config.Fields))
	for _, field := range config.Fields {
		s, ok := record[field.Name].(string)
		if !ok {
			continue
		}
		if value, err := cryptoDomain.ParseEncryptedValue(s); err == nil {
			parsed[field.Name] = value
		}
	}

	keys := make(map[uint]*cryptoDomain.ResolvedKey)
	missing := make(map[uint]error)
	for _, value := range parsed {
		if _, done := keys[value.Version]; done {
			continue
		}
		if _, done := missing[value.Version]; done {
			continue
		}
		key, err := f.tenantKeys.GetTenantKeyByVersion(ctx, tenantID, value.Version)
		switch {
		case err == nil:
			keys[value.Version] = key
		case apperrors.Is(err, cryptoDomain.ErrKeyNotFound):
			missing[value.Version] = err
		default:
			return nil, err
		}
	}
	if len(keys) == 0 && len(missing) > 0 {
		// No referenced version resolves, so nothing in the record can be decrypted.
		return nil, missing[slices.Min(slices.Collect(maps.Keys(missing)))]
	}

	return f.batch(record, config, func(field cryptoDomain.FieldConfig, raw any) (any, error) {
		value, ok := parsed[field.Name]
		if !ok {
			// Legacy plaintext or a non-string value is left as stored.
			return raw, nil
		}

		key, ok := keys[value.Version]
		if !ok {
			err := missing[value.Version]
			f.audit(ctx, auditDomain.OperationDecrypt, tenantID, config.Table, field.Name, value.Version, err)
			return nil, err
		}

		plaintext, err := f.decryptValue(ctx, tenantID, config.Table, field.Name, value, key)
		if err != nil {
			return nil, err
		}
		if !field.Array {
			return plaintext, nil
		}

		var decoded []any
		if err := json.Unmarshal([]byte(plaintext), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %s is not a JSON array", cryptoDomain.ErrInvalidFormat, field.Name)
		}
		return decoded, nil
	}), nil
}

// batch applies fn to every configured field with bounded concurrency. The input record is
// never modified.
func (f *fieldCipherUseCase) batch(
	record map[string]any,
	config cryptoDomain.EntityConfig,
	fn func(field cryptoDomain.FieldConfig, value any) (any, error),
) *cryptoDomain.BatchResult {
	result := &cryptoDomain.BatchResult{
		Record: maps.Clone(record),
		Errors: make(map[string]error),
	}
	if result.Record == nil {
		result.Record = make(map[string]any)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(f.maxConcurrency)

	for _, field := range config.Fields {
		value, present := record[field.Name]
		if !present || isNil(value) {
			if field.Required {
				result.Errors[field.Name] = cryptoDomain.ErrRequiredFieldMissing
			}
			continue
		}

		g.Go(func() error {
			out, err := fn(field, value)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[field.Name] = err
				return nil
			}
			result.Record[field.Name] = out
			return nil
		})
	}

	_ = g.Wait()
	return result
}

func (f *fieldCipherUseCase) encryptFieldValue(
	key *cryptoDomain.ResolvedKey,
	field cryptoDomain.FieldConfig,
	value any,
) (string, error) {
	if field.Array {
		data, err := encodeArray(value)
		if err != nil {
			return "", fmt.Errorf("%w: array field %s", err, field.Name)
		}
		return f.seal(key, field.Name, data)
	}

	switch v := value.(type) {
	case string:
		return f.seal(key, field.Name, []byte(v))
	case *string:
		return f.seal(key, field.Name, []byte(*v))
	}
	return "", fmt.Errorf("%w: %s is %T, want string", cryptoDomain.ErrUnsupportedFieldValue, field.Name, value)
}

// decryptValue opens one parsed value and audits the outcome. When key is nil it is resolved
// from the version embedded in value.
func (f *fieldCipherUseCase) decryptValue(
	ctx context.Context,
	tenantID, tableName, fieldName string,
	value cryptoDomain.EncryptedValue,
	key *cryptoDomain.ResolvedKey,
) (string, error) {
	if key == nil {
		var err error
		key, err = f.tenantKeys.GetTenantKeyByVersion(ctx, tenantID, value.Version)
		if err != nil {
			f.audit(ctx, auditDomain.OperationDecrypt, tenantID, tableName, fieldName, value.Version, err)
			return "", err
		}
	}

	plaintext, err := f.open(key, fieldName, value)
	f.audit(ctx, auditDomain.OperationDecrypt, tenantID, tableName, fieldName, value.Version, err)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// seal derives the field key and encrypts plaintext into the wire format.
func (f *fieldCipherUseCase) seal(key *cryptoDomain.ResolvedKey, fieldName string, plaintext []byte) (string, error) {
	fieldKey, err := f.keyDeriver.DeriveFieldKey(key.Key, fieldName, key.Version)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(fieldKey)

	cipher, err := f.aeadManager.CreateCipher(fieldKey, cryptoDomain.AESGCM)
	if err != nil {
		return "", err
	}

	sealed, iv, err := cipher.Encrypt(plaintext, nil)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encrypt field")
	}

	value, err := cryptoDomain.NewEncryptedValue(key.Version, iv, sealed)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// open derives the field key for the value's version and verifies and decrypts it.
func (f *fieldCipherUseCase) open(
	key *cryptoDomain.ResolvedKey,
	fieldName string,
	value cryptoDomain.EncryptedValue,
) ([]byte, error) {
	if err := value.CheckSizes(); err != nil {
		return nil, err
	}

	fieldKey, err := f.keyDeriver.DeriveFieldKey(key.Key, fieldName, value.Version)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(fieldKey)

	cipher, err := f.aeadManager.CreateCipher(fieldKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipher.Decrypt(value.Sealed(), value.IV, nil)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}
	return plaintext, nil
}

func (f *fieldCipherUseCase) audit(
	ctx context.Context,
	op auditDomain.Operation,
	tenantID, tableName, fieldName string,
	version uint,
	err error,
) {
	f.auditLogger.Log(ctx, auditDomain.NewAuditRecord(op, tenantID, tableName, fieldName, version, err))
}

func validateFieldCall(tenantID, fieldName string) error {
	if tenantID == "" {
		return cryptoDomain.ErrInvalidTenantID
	}
	if fieldName == "" {
		return cryptoDomain.ErrInvalidFieldName
	}
	return nil
}

// encodeArray JSON-encodes a slice or array. A nil slice encodes to nil; any other
// kind of value is rejected with ErrUnsupportedFieldValue.
func encodeArray(values any) ([]byte, error) {
	if isNil(values) {
		return nil, nil
	}
	if kind := reflect.TypeOf(values).Kind(); kind != reflect.Slice && kind != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not a list", cryptoDomain.ErrUnsupportedFieldValue, values)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrUnsupportedFieldValue, err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return v.IsNil()
	}
	return false
}
