package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
)

const (
	defaultBufferSize   = 1024
	defaultWriteTimeout = 5 * time.Second
)

// RecorderConfig tunes the asynchronous delivery of audit records.
type RecorderConfig struct {
	// BufferSize is the queue capacity. A full queue drops records to the fallback log.
	BufferSize int
	// WriteTimeout bounds each sink write.
	WriteTimeout time.Duration
	// FallbackRate and FallbackBurst throttle fallback log lines per second.
	FallbackRate  float64
	FallbackBurst int
}

// Recorder queues audit records and writes them to an AuditSink from a single worker goroutine.
//
// Log never blocks: when the queue is full, or the sink returns an error, the record is reported
// to the fallback logger instead. Fallback lines are rate limited so a dead sink cannot flood the
// process log. Records logged after Close are reported to the fallback logger.
type Recorder struct {
	sink         AuditSink
	logger       *slog.Logger
	limiter      *rate.Limiter
	writeTimeout time.Duration

	queue chan *auditDomain.AuditRecord
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	closeOnce sync.Once

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder creates a Recorder. Call Start before use and Close on shutdown.
func NewRecorder(sink AuditSink, logger *slog.Logger, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	limit := rate.Inf
	if cfg.FallbackRate > 0 {
		limit = rate.Limit(cfg.FallbackRate)
	}
	burst := cfg.FallbackBurst
	if burst <= 0 {
		burst = 1
	}

	return &Recorder{
		sink:         sink,
		logger:       logger,
		limiter:      rate.NewLimiter(limit, burst),
		writeTimeout: cfg.WriteTimeout,
		queue:        make(chan *auditDomain.AuditRecord, cfg.BufferSize),
		done:         make(chan struct{}),
	}
}

// Start launches the delivery worker. Calling it more than once has no effect.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Log enqueues a record for delivery.
func (r *Recorder) Log(ctx context.Context, record *auditDomain.AuditRecord) {
	if record == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		r.fallback(ctx, "audit recorder closed", record, nil)
		return
	}

	select {
	case r.queue <- record:
	default:
		r.dropped.Add(1)
		r.fallback(ctx, "audit queue full", record, nil)
	}
}

// Close stops accepting records and waits for the queue to drain, or for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.Start()

		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many records never reached the sink because the queue was full or closed.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Failed returns how many sink writes returned an error.
func (r *Recorder) Failed() uint64 {
	return r.failed.Load()
}

func (r *Recorder) run() {
	defer close(r.done)

	for record := range r.queue {
		r.write(record)
	}
}

func (r *Recorder) write(record *auditDomain.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.sink.Create(ctx, record); err != nil {
		r.failed.Add(1)
		r.fallback(ctx, "audit sink write failed", record, err)
	}
}

func (r *Recorder) fallback(ctx context.Context, msg string, record *auditDomain.AuditRecord, err error) {
	if !r.limiter.Allow() {
		return
	}

	attrs := []any{
		slog.String("audit_id", record.ID.String()),
		slog.String("operation", string(record.Operation)),
		slog.String("tenant_id", record.TenantID),
		slog.String("table_name", record.TableName),
		slog.String("field_name", record.FieldName),
		slog.Uint64("key_version", uint64(record.KeyVersion)),
		slog.Bool("success", record.Success),
		slog.Time("occurred_at", record.OccurredAt),
	}
	if record.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error_message", record.ErrorMessage))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}

	r.logger.WarnContext(ctx, msg, attrs...)
}
