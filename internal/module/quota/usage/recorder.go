package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentgrid/governor/internal/model"
	"github.com/agentgrid/governor/internal/port/outbound"
)

// Record represents a token usage record to be persisted.
type Record struct {
	TenantID     string
	RequestID    string
	InputTokens  int64
	OutputTokens int64
	Timestamp    time.Time
}

// Recorder persists token usage asynchronously. Accounting writes must never
// slow down the request path, so records go through a buffered channel and
// are dropped (with a warning) when the buffer is full.
type Recorder struct {
	repo   outbound.UsageRecordPort
	logger *zap.Logger
	buffer chan *Record
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewRecorder creates a new usage recorder.
func NewRecorder(repo outbound.UsageRecordPort, logger *zap.Logger, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		buffer: make(chan *Record, bufferSize),
		done:   make(chan struct{}),
	}
	r.start()
	return r
}

// Record queues a usage record for persistence.
func (r *Recorder) Record(record *Record) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	select {
	case r.buffer <- record:
		// Successfully queued
	default:
		// Buffer full, log and drop
		r.logger.Warn("usage record buffer full, dropping record",
			zap.String("tenant_id", record.TenantID),
			zap.String("request_id", record.RequestID),
		)
	}
}

// Close stops the recorder and flushes remaining records.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case record := <-r.buffer:
				r.persist(record)
			case <-r.done:
				// Flush remaining records
				for {
					select {
					case record := <-r.buffer:
						r.persist(record)
					default:
						return
					}
				}
			}
		}
	}()
}

func (r *Recorder) persist(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := &model.UsageRecord{
		ID:           uuid.New(),
		TenantID:     record.TenantID,
		RequestID:    record.RequestID,
		InputTokens:  record.InputTokens,
		OutputTokens: record.OutputTokens,
		TotalTokens:  record.InputTokens + record.OutputTokens,
		CreatedAt:    record.Timestamp,
	}

	if err := r.repo.Create(ctx, row); err != nil {
		r.logger.Error("failed to persist usage record",
			zap.Error(err),
			zap.String("tenant_id", record.TenantID),
		)
	}
}
