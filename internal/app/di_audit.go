package app

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auditRepository "github.com/allisson/tenantcrypt/internal/audit/repository"
	auditUsecase "github.com/allisson/tenantcrypt/internal/audit/usecase"
	"github.com/allisson/tenantcrypt/internal/config"
)

// AuditSink returns the audit store selected by AUDIT_SINK.
func (c *Container) AuditSink() (auditUsecase.AuditSink, error) {
	var err error
	c.auditSinkInit.Do(func() {
		c.auditSink, err = c.initAuditSink()
		if err != nil {
			c.initErrors["auditSink"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSink"]; exists {
		return nil, storedErr
	}
	return c.auditSink, nil
}

// AuditRecorder returns the started asynchronous audit recorder. Shutdown drains it.
func (c *Container) AuditRecorder() (*auditUsecase.Recorder, error) {
	var err error
	c.auditRecorderInit.Do(func() {
		c.auditRecorder, err = c.initAuditRecorder()
		if err != nil {
			c.initErrors["auditRecorder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRecorder"]; exists {
		return nil, storedErr
	}
	return c.auditRecorder, nil
}

// MongoClient returns a connected MongoDB client for the audit sink.
func (c *Container) MongoClient() (*mongo.Client, error) {
	var err error
	c.mongoClientInit.Do(func() {
		c.mongoClient, err = c.initMongoClient()
		if err != nil {
			c.initErrors["mongoClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["mongoClient"]; exists {
		return nil, storedErr
	}
	return c.mongoClient, nil
}

// initAuditSink creates the audit sink for the configured backend.
func (c *Container) initAuditSink() (auditUsecase.AuditSink, error) {
	switch c.config.AuditSink {
	case config.AuditSinkLog:
		return auditRepository.NewLogAuditSink(c.Logger()), nil
	case config.AuditSinkMongoDB:
		client, err := c.MongoClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get mongodb client for audit sink: %w", err)
		}
		return auditRepository.NewMongoDBAuditRecordRepository(client.Database(c.config.MongoDBDatabase)), nil
	case config.AuditSinkDatabase:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for audit sink: %w", err)
		}
		switch c.config.DBDriver {
		case "postgres":
			return auditRepository.NewPostgreSQLAuditRecordRepository(db), nil
		case "mysql":
			return auditRepository.NewMySQLAuditRecordRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", c.config.AuditSink)
	}
}

// initAuditRecorder creates and starts the audit recorder.
func (c *Container) initAuditRecorder() (*auditUsecase.Recorder, error) {
	sink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for audit recorder: %w", err)
	}

	recorder := auditUsecase.NewRecorder(sink, c.Logger(), auditUsecase.RecorderConfig{
		BufferSize:    c.config.AuditBufferSize,
		WriteTimeout:  c.config.AuditWriteTimeout,
		FallbackRate:  c.config.AuditFallbackLogRate,
		FallbackBurst: c.config.AuditFallbackLogBurst,
	})
	recorder.Start()
	return recorder, nil
}

// initMongoClient connects to MongoDB and verifies the connection.
func (c *Container) initMongoClient() (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(c.config.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.AuditWriteTimeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}
