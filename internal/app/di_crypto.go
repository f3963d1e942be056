package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoMySQL "github.com/allisson/tenantcrypt/internal/crypto/repository/mysql"
	cryptoPostgreSQL "github.com/allisson/tenantcrypt/internal/crypto/repository/postgresql"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
	cryptoUseCase "github.com/allisson/tenantcrypt/internal/crypto/usecase"
)

// SystemMasterKey returns the system master key decoded from SYSTEM_MASTER_KEY.
// A missing or malformed key fails with ErrConfiguration.
func (c *Container) SystemMasterKey() (*cryptoDomain.SystemMasterKey, error) {
	var err error
	c.systemMasterKeyInit.Do(func() {
		c.systemMasterKey, err = cryptoDomain.LoadSystemMasterKey(c.config.SystemMasterKey)
		if err != nil {
			c.initErrors["systemMasterKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["systemMasterKey"]; exists {
		return nil, storedErr
	}
	return c.systemMasterKey, nil
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyManager returns the tenant key wrapping service.
func (c *Container) KeyManager() cryptoService.KeyManager {
	c.keyManagerInit.Do(func() {
		c.keyManager = cryptoService.NewKeyManager(c.AEADManager())
	})
	return c.keyManager
}

// KeyDeriver returns the HKDF field key deriver.
func (c *Container) KeyDeriver() cryptoService.KeyDeriver {
	c.keyDeriverInit.Do(func() {
		c.keyDeriver = cryptoService.NewKeyDeriver()
	})
	return c.keyDeriver
}

// KeyCache returns the process-wide tenant key cache.
func (c *Container) KeyCache() *cryptoUseCase.KeyCache {
	c.keyCacheInit.Do(func() {
		c.keyCache = cryptoUseCase.NewKeyCache(c.config.KeyCacheTTL)
	})
	return c.keyCache
}

// TenantKeyRepository returns the tenant key store for the configured database driver.
func (c *Container) TenantKeyRepository() (cryptoUseCase.TenantKeyRepository, error) {
	var err error
	c.tenantKeyRepoInit.Do(func() {
		c.tenantKeyRepo, err = c.initTenantKeyRepository()
		if err != nil {
			c.initErrors["tenantKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.tenantKeyRepo, nil
}

// TenantKeyUseCase returns the tenant key use case.
func (c *Container) TenantKeyUseCase() (cryptoUseCase.TenantKeyUseCase, error) {
	var err error
	c.tenantKeyUseCaseInit.Do(func() {
		c.tenantKeyUseCase, err = c.initTenantKeyUseCase()
		if err != nil {
			c.initErrors["tenantKeyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantKeyUseCase"]; exists {
		return nil, storedErr
	}
	return c.tenantKeyUseCase, nil
}

// FieldCipherUseCase returns the field encryption use case.
func (c *Container) FieldCipherUseCase() (cryptoUseCase.FieldCipherUseCase, error) {
	var err error
	c.fieldCipherUseCaseInit.Do(func() {
		c.fieldCipherUseCase, err = c.initFieldCipherUseCase()
		if err != nil {
			c.initErrors["fieldCipherUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldCipherUseCase"]; exists {
		return nil, storedErr
	}
	return c.fieldCipherUseCase, nil
}

// initTenantKeyRepository creates the tenant key repository based on the database driver.
func (c *Container) initTenantKeyRepository() (cryptoUseCase.TenantKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tenant key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return cryptoPostgreSQL.NewPostgreSQLTenantKeyRepository(db), nil
	case "mysql":
		return cryptoMySQL.NewMySQLTenantKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTenantKeyUseCase creates the tenant key use case with all its dependencies.
func (c *Container) initTenantKeyUseCase() (cryptoUseCase.TenantKeyUseCase, error) {
	systemMasterKey, err := c.SystemMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load system master key: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for tenant key use case: %w", err)
	}

	repo, err := c.TenantKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant key repository for tenant key use case: %w", err)
	}

	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for tenant key use case: %w", err)
	}

	baseUseCase := cryptoUseCase.NewTenantKeyUseCase(
		txManager,
		repo,
		c.KeyManager(),
		systemMasterKey,
		c.KeyCache(),
		recorder,
		c.config.KeyStoreTimeout,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for tenant key use case: %w", err)
		}
		return cryptoUseCase.NewTenantKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initFieldCipherUseCase creates the field encryption use case with all its dependencies.
func (c *Container) initFieldCipherUseCase() (cryptoUseCase.FieldCipherUseCase, error) {
	tenantKeys, err := c.TenantKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant key use case for field cipher use case: %w", err)
	}

	recorder, err := c.AuditRecorder()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit recorder for field cipher use case: %w", err)
	}

	baseUseCase := cryptoUseCase.NewFieldCipherUseCase(
		tenantKeys,
		c.KeyDeriver(),
		c.AEADManager(),
		recorder,
		c.config.BatchMaxConcurrency,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for field cipher use case: %w", err)
		}
		return cryptoUseCase.NewFieldCipherUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
