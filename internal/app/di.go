// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"

	auditUsecase "github.com/allisson/tenantcrypt/internal/audit/usecase"
	"github.com/allisson/tenantcrypt/internal/config"
	cryptoDomain "github.com/allisson/tenantcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantcrypt/internal/crypto/service"
	cryptoUsecase "github.com/allisson/tenantcrypt/internal/crypto/usecase"
	"github.com/allisson/tenantcrypt/internal/database"
	apperrors "github.com/allisson/tenantcrypt/internal/errors"
	"github.com/allisson/tenantcrypt/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	mongoClient     *mongo.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Crypto
	systemMasterKey    *cryptoDomain.SystemMasterKey
	aeadManager        cryptoService.AEADManager
	keyManager         cryptoService.KeyManager
	keyDeriver         cryptoService.KeyDeriver
	keyCache           *cryptoUsecase.KeyCache
	tenantKeyRepo      cryptoUsecase.TenantKeyRepository
	tenantKeyUseCase   cryptoUsecase.TenantKeyUseCase
	fieldCipherUseCase cryptoUsecase.FieldCipherUseCase

	// Audit
	auditSink     auditUsecase.AuditSink
	auditRecorder *auditUsecase.Recorder

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	mongoClientInit        sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	txManagerInit          sync.Once
	systemMasterKeyInit    sync.Once
	aeadManagerInit        sync.Once
	keyManagerInit         sync.Once
	keyDeriverInit         sync.Once
	keyCacheInit           sync.Once
	tenantKeyRepoInit      sync.Once
	tenantKeyUseCaseInit   sync.Once
	fieldCipherUseCaseInit sync.Once
	auditSinkInit          sync.Once
	auditRecorderInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider backed by a Prometheus registry.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder, or a no-op one when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Shutdown performs cleanup of all initialized resources.
//
// The audit recorder is drained first so records produced by in-flight operations still
// reach the sink, then cached key material and the system master key are zeroed.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.auditRecorder != nil {
		if err := c.auditRecorder.Close(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("audit recorder close: %w", err))
		}
	}

	if c.keyCache != nil {
		c.keyCache.Close()
	}
	if c.systemMasterKey != nil {
		c.systemMasterKey.Close()
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("mongodb disconnect: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return apperrors.Wrap(apperrors.Join(shutdownErrors...), "shutdown errors")
	}
	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates business metrics on the shared provider.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider: %w", err)
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}
