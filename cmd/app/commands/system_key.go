package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
)

// RunCreateSystemKey generates a random 32-byte system master key and prints it as a
// SYSTEM_MASTER_KEY assignment. Key material is zeroed from memory after encoding.
//
// The key wraps every tenant key. Losing it makes all stored tenant keys, and therefore
// every encrypted field, unrecoverable.
func RunCreateSystemKey(writer io.Writer) error {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate system master key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	encoded := base64.StdEncoding.EncodeToString(key)

	_, _ = fmt.Fprintln(writer, "# System Master Key Configuration")
	_, _ = fmt.Fprintln(writer, "# Copy this environment variable to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", cryptoDomain.SystemMasterKeyEnv, encoded)
	return nil
}
