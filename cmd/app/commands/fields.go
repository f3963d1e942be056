package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/tenantcrypt/internal/crypto/usecase"
)

// readValue returns value, or the first line of reader when value is empty.
func readValue(reader io.Reader, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// RunEncryptField encrypts one value under the tenant's active key and prints the
// encrypted value. The value is read from the reader when not given as a flag.
func RunEncryptField(
	ctx context.Context,
	fieldCipherUseCase cryptoUseCase.FieldCipherUseCase,
	logger *slog.Logger,
	streams IOTuple,
	tenantID string,
	fieldName string,
	value string,
) error {
	plaintext, err := readValue(streams.Reader, value)
	if err != nil {
		return err
	}

	encrypted, err := fieldCipherUseCase.EncryptField(ctx, tenantID, fieldName, &plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt field: %w", err)
	}

	logger.Info("field encrypted",
		slog.String("tenant_id", tenantID),
		slog.String("field", fieldName),
	)

	_, err = fmt.Fprintln(streams.Writer, *encrypted)
	return err
}

// RunDecryptField decrypts one encrypted value and prints the plaintext. Values that are
// not in the encrypted format are printed unchanged.
func RunDecryptField(
	ctx context.Context,
	fieldCipherUseCase cryptoUseCase.FieldCipherUseCase,
	logger *slog.Logger,
	streams IOTuple,
	tenantID string,
	fieldName string,
	value string,
) error {
	encoded, err := readValue(streams.Reader, value)
	if err != nil {
		return err
	}

	plaintext, err := fieldCipherUseCase.DecryptField(ctx, tenantID, fieldName, &encoded)
	if err != nil {
		return fmt.Errorf("failed to decrypt field: %w", err)
	}

	logger.Info("field decrypted",
		slog.String("tenant_id", tenantID),
		slog.String("field", fieldName),
	)

	_, err = fmt.Fprintln(streams.Writer, *plaintext)
	return err
}

// RecordOptions names the encrypted columns of a record processed by the record commands.
// Fields, Required and Arrays are comma-separated field names.
type RecordOptions struct {
	Table    string
	Fields   string
	Required string
	Arrays   string
}

// RunEncryptRecord reads one JSON object from the reader, encrypts its configured fields
// and writes the resulting record with any per-field errors as JSON.
//
// The record is always written. A non-nil error is returned when any field failed.
func RunEncryptRecord(
	ctx context.Context,
	fieldCipherUseCase cryptoUseCase.FieldCipherUseCase,
	logger *slog.Logger,
	streams IOTuple,
	tenantID string,
	opts RecordOptions,
) error {
	return runRecord(ctx, fieldCipherUseCase.EncryptFields, logger, streams, tenantID, opts, "encrypt")
}

// RunDecryptRecord is the inverse of RunEncryptRecord. Records mixing key versions are
// supported.
func RunDecryptRecord(
	ctx context.Context,
	fieldCipherUseCase cryptoUseCase.FieldCipherUseCase,
	logger *slog.Logger,
	streams IOTuple,
	tenantID string,
	opts RecordOptions,
) error {
	return runRecord(ctx, fieldCipherUseCase.DecryptFields, logger, streams, tenantID, opts, "decrypt")
}

type batchFunc func(
	ctx context.Context,
	tenantID string,
	record map[string]any,
	config cryptoDomain.EntityConfig,
) (*cryptoDomain.BatchResult, error)

func runRecord(
	ctx context.Context,
	process batchFunc,
	logger *slog.Logger,
	streams IOTuple,
	tenantID string,
	opts RecordOptions,
	operation string,
) error {
	config, err := parseEntityConfig(opts.Table, opts.Fields, opts.Required, opts.Arrays)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(streams.Reader)
	decoder.UseNumber()

	var record map[string]any
	if err := decoder.Decode(&record); err != nil {
		return fmt.Errorf("failed to parse record JSON: %w", err)
	}

	result, err := process(ctx, tenantID, record, config)
	if err != nil {
		return fmt.Errorf("failed to %s record: %w", operation, err)
	}

	fieldErrors := make(map[string]string, len(result.Errors))
	for field, fieldErr := range result.Errors {
		fieldErrors[field] = fieldErr.Error()
	}

	output := map[string]any{"record": result.Record}
	if len(fieldErrors) > 0 {
		output["errors"] = fieldErrors
	}
	if err := writeJSON(streams.Writer, output); err != nil {
		return err
	}

	if result.Failed() {
		failed := slices.Sorted(maps.Keys(result.Errors))
		logger.Warn("record processed with field errors",
			slog.String("operation", operation),
			slog.String("tenant_id", tenantID),
			slog.Any("fields", failed),
		)
		return fmt.Errorf("failed to %s %d field(s): %s", operation, len(failed), strings.Join(failed, ", "))
	}

	logger.Info("record processed",
		slog.String("operation", operation),
		slog.String("tenant_id", tenantID),
		slog.Int("fields", len(config.Fields)),
	)
	return nil
}
