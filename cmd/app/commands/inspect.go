package commands

import (
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// RunInspectValue reports whether a stored value is in the encrypted format and, if so,
// which tenant key version produced it. No key material is needed.
func RunInspectValue(writer io.Writer, value string, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	ev, err := cryptoDomain.ParseEncryptedValue(value)
	if err != nil {
		if format == "json" {
			return writeJSON(writer, map[string]any{
				"encrypted": false,
				"reason":    err.Error(),
			})
		}
		_, err = fmt.Fprintf(writer, "Not an encrypted value (%v); it is read back unchanged\n", err)
		return err
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"encrypted":        true,
			"version":          ev.Version,
			"iv_bytes":         len(ev.IV),
			"tag_bytes":        len(ev.Tag),
			"ciphertext_bytes": len(ev.Ciphertext),
		})
	}

	_, _ = fmt.Fprintln(writer, "Encrypted value")
	_, _ = fmt.Fprintf(writer, "  key version:      %d\n", ev.Version)
	_, _ = fmt.Fprintf(writer, "  iv bytes:         %d\n", len(ev.IV))
	_, _ = fmt.Fprintf(writer, "  tag bytes:        %d\n", len(ev.Tag))
	_, _ = fmt.Fprintf(writer, "  ciphertext bytes: %d\n", len(ev.Ciphertext))
	return nil
}
