package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auditDomain "github.com/allisson/tenantcrypt/internal/audit/domain"
	auditMocks "github.com/allisson/tenantcrypt/internal/audit/usecase/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// syncBuffer guards a bytes.Buffer shared between the test and the recorder worker.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// blockingSink holds every write until release is closed.
type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu      sync.Mutex
	records []*auditDomain.AuditRecord
}

func newBlockingSink() *blockingSink {
	return &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSink) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	s.once.Do(func() { close(s.started) })
	<-s.release

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}

func TestRecorder_DeliversRecords(t *testing.T) {
	sink := auditMocks.NewMockAuditSink(t)
	recorder := NewRecorder(sink, newTestLogger(io.Discard), RecorderConfig{BufferSize: 10})
	recorder.Start()

	r1 := auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "tenant-1", "customers", "email", 1, nil)
	r2 := auditDomain.NewAuditRecord(auditDomain.OperationKeyAccess, "tenant-1", "", "", 1, nil)

	sink.On("Create", mock.Anything, r1).Return(nil).Once()
	sink.On("Create", mock.Anything, r2).Return(nil).Once()

	recorder.Log(context.Background(), r1)
	recorder.Log(context.Background(), r2)

	require.NoError(t, recorder.Close(context.Background()))
	assert.Equal(t, uint64(0), recorder.Dropped())
	assert.Equal(t, uint64(0), recorder.Failed())
}

func TestRecorder_SinkFailureGoesToFallback(t *testing.T) {
	sink := auditMocks.NewMockAuditSink(t)
	var buf syncBuffer
	recorder := NewRecorder(sink, newTestLogger(&buf), RecorderConfig{BufferSize: 10})
	recorder.Start()

	record := auditDomain.NewAuditRecord(auditDomain.OperationDecrypt, "tenant-1", "", "ssn", 2, nil)
	sink.On("Create", mock.Anything, record).Return(errors.New("connection refused")).Once()

	recorder.Log(context.Background(), record)
	require.NoError(t, recorder.Close(context.Background()))

	assert.Equal(t, uint64(1), recorder.Failed())
	out := buf.String()
	assert.Contains(t, out, "audit sink write failed")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, `"field_name":"ssn"`)
}

func TestRecorder_FullQueueNeverBlocks(t *testing.T) {
	sink := newBlockingSink()
	var buf syncBuffer
	recorder := NewRecorder(sink, newTestLogger(&buf), RecorderConfig{BufferSize: 1})
	recorder.Start()

	ctx := context.Background()
	recorder.Log(ctx, auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "a", 1, nil))
	<-sink.started

	// The worker is parked in the sink; one slot is free in the queue.
	recorder.Log(ctx, auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "b", 1, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		recorder.Log(ctx, auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "c", 1, nil))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked on a full queue")
	}

	assert.Equal(t, uint64(1), recorder.Dropped())
	assert.Contains(t, buf.String(), "audit queue full")

	close(sink.release)
	require.NoError(t, recorder.Close(ctx))
	assert.Equal(t, 2, sink.count())
}

func TestRecorder_FallbackIsRateLimited(t *testing.T) {
	sink := auditMocks.NewMockAuditSink(t)
	var buf syncBuffer
	recorder := NewRecorder(sink, newTestLogger(&buf), RecorderConfig{
		BufferSize:    1,
		FallbackRate:  0.001,
		FallbackBurst: 2,
	})
	require.NoError(t, recorder.Close(context.Background()))

	for range 10 {
		recorder.Log(context.Background(), auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "f", 1, nil))
	}

	assert.Equal(t, uint64(10), recorder.Dropped())
	assert.Equal(t, 2, bytes.Count([]byte(buf.String()), []byte("audit recorder closed")))
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	sink := auditMocks.NewMockAuditSink(t)
	recorder := NewRecorder(sink, newTestLogger(io.Discard), RecorderConfig{BufferSize: 100})

	sink.On("Create", mock.Anything, mock.Anything).Return(nil).Times(50)

	// Records logged before Start are buffered and delivered once the worker runs.
	for range 50 {
		recorder.Log(context.Background(), auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "f", 1, nil))
	}

	require.NoError(t, recorder.Close(context.Background()))
	require.NoError(t, recorder.Close(context.Background()))
}

func TestRecorder_CloseHonoursContext(t *testing.T) {
	sink := newBlockingSink()
	recorder := NewRecorder(sink, newTestLogger(io.Discard), RecorderConfig{BufferSize: 4})
	recorder.Start()

	recorder.Log(context.Background(), auditDomain.NewAuditRecord(auditDomain.OperationEncrypt, "t", "", "f", 1, nil))
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, recorder.Close(ctx), context.DeadlineExceeded)

	close(sink.release)
	require.NoError(t, recorder.Close(context.Background()))
}

func TestRecorder_NilRecordIgnored(t *testing.T) {
	sink := auditMocks.NewMockAuditSink(t)
	recorder := NewRecorder(sink, newTestLogger(io.Discard), RecorderConfig{})
	recorder.Start()

	recorder.Log(context.Background(), nil)

	require.NoError(t, recorder.Close(context.Background()))
	assert.Equal(t, uint64(0), recorder.Dropped())
}
