package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoUseCase "github.com/allisson/tenantcrypt/internal/crypto/usecase"
)

// RunProvisionTenantKey makes sure the tenant has an active key, creating version 1 on
// first use. Running it again for a provisioned tenant reports the current version.
//
// Requirements: Database must be migrated, SYSTEM_MASTER_KEY must be set.
func RunProvisionTenantKey(
	ctx context.Context,
	tenantKeyUseCase cryptoUseCase.TenantKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("provisioning tenant key", slog.String("tenant_id", tenantID))

	version, err := tenantKeyUseCase.EnsureTenantKey(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to provision tenant key: %w", err)
	}

	logger.Info("tenant key provisioned",
		slog.String("tenant_id", tenantID),
		slog.Uint64("version", uint64(version)),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"tenant_id":      tenantID,
			"active_version": version,
		})
	}
	_, err = fmt.Fprintf(writer, "Tenant %s active key version: %d\n", tenantID, version)
	return err
}

// RunRotateTenantKey creates the next key version for the tenant and makes it the only
// active one. Values encrypted under earlier versions stay decryptable.
//
// Requirements: Database must be migrated, SYSTEM_MASTER_KEY must be set.
func RunRotateTenantKey(
	ctx context.Context,
	tenantKeyUseCase cryptoUseCase.TenantKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("rotating tenant key", slog.String("tenant_id", tenantID))

	version, err := tenantKeyUseCase.GenerateTenantKey(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to rotate tenant key: %w", err)
	}

	logger.Info("tenant key rotated successfully",
		slog.String("tenant_id", tenantID),
		slog.Uint64("version", uint64(version)),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"tenant_id":   tenantID,
			"new_version": version,
		})
	}
	_, err = fmt.Fprintf(writer, "Tenant %s rotated to key version %d\n", tenantID, version)
	return err
}

// tenantKeyView is the printable metadata of one key version.
type tenantKeyView struct {
	Version   uint      `json:"version"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// RunListTenantKeys prints every retained key version of the tenant, newest first.
// Key material is never printed.
func RunListTenantKeys(
	ctx context.Context,
	tenantKeyUseCase cryptoUseCase.TenantKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keys, err := tenantKeyUseCase.ListTenantKeyVersions(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list tenant keys: %w", err)
	}

	logger.Info("tenant keys listed",
		slog.String("tenant_id", tenantID),
		slog.Int("count", len(keys)),
	)

	views := make([]tenantKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, tenantKeyView{
			Version:   k.Version,
			State:     string(k.State()),
			CreatedAt: k.CreatedAt.UTC(),
		})
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"tenant_id": tenantID,
			"versions":  views,
		})
	}

	if len(views) == 0 {
		_, err = fmt.Fprintf(writer, "Tenant %s has no keys\n", tenantID)
		return err
	}
	_, _ = fmt.Fprintf(writer, "Tenant %s key versions:\n", tenantID)
	for _, v := range views {
		_, _ = fmt.Fprintf(writer, "  v%d  %-10s  %s\n", v.Version, v.State, v.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
