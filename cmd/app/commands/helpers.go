// Package commands contains CLI command implementations for the application.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// validateFormat rejects output formats other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}

// parseEntityConfig builds an EntityConfig from comma-separated field lists.
// A field listed in required or arrays must also be listed in fields.
func parseEntityConfig(table, fields, required, arrays string) (cryptoDomain.EntityConfig, error) {
	requiredSet := splitSet(required)
	arraySet := splitSet(arrays)

	cfg := cryptoDomain.EntityConfig{Table: table}
	declared := make(map[string]struct{})
	for _, name := range splitList(fields) {
		_, isRequired := requiredSet[name]
		_, isArray := arraySet[name]
		cfg.Fields = append(cfg.Fields, cryptoDomain.FieldConfig{
			Name:     name,
			Required: isRequired,
			Array:    isArray,
		})
		declared[name] = struct{}{}
	}

	for name := range requiredSet {
		if _, ok := declared[name]; !ok {
			return cryptoDomain.EntityConfig{}, fmt.Errorf("required field %q is not listed in --fields", name)
		}
	}
	for name := range arraySet {
		if _, ok := declared[name]; !ok {
			return cryptoDomain.EntityConfig{}, fmt.Errorf("array field %q is not listed in --fields", name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cryptoDomain.EntityConfig{}, fmt.Errorf("invalid entity config: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range splitList(s) {
		set[name] = struct{}{}
	}
	return set
}
