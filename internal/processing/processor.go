// Package processing runs seal audits in-process when no Redis queue is
// configured. A fixed set of goroutines drains a buffered channel.
package processing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/queue"
)

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("audit queue full")

// AuditFunc performs one audit. worker.Processor.Audit satisfies it.
type AuditFunc func(ctx context.Context, payload queue.AuditPayload) error

// Processor consumes audit jobs.
type Processor struct {
	audit   AuditFunc
	queue   chan queue.AuditPayload
	workers int
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Processor with queue capacity tied to worker count.
func New(audit AuditFunc, workers int, timeout time.Duration, logger *zap.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		audit:   audit,
		queue:   make(chan queue.AuditPayload, workers*4),
		workers: workers,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "audit_pool")),
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

// Enqueue implements queue.Auditor. It never blocks; a full buffer drops the
// job and the ledger entry stays sealed.
func (p *Processor) Enqueue(_ context.Context, payload queue.AuditPayload) error {
	select {
	case p.queue <- payload:
		return nil
	default:
		p.logger.Warn("audit queue full, dropping job", zap.String("doc_id", payload.DocumentID))
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.process(ctx, job)
		}
	}
}

func (p *Processor) process(ctx context.Context, job queue.AuditPayload) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.audit(ctx, job); err != nil {
		p.logger.Error("audit failed", zap.String("doc_id", job.DocumentID), zap.Error(err))
	}
}
