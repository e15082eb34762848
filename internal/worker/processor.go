package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/queue"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/repository"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/signing"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

// Processor re-verifies stored sealed documents and records the result in the
// ledger. It is plugged into the asynq worker loop and into the in-process
// audit pool.
type Processor struct {
	ledger   repository.Ledger
	store    storage.Store
	verifier signing.Verifier
	sealer   *seal.Sealer
	logger   *zap.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(ledger repository.Ledger, store storage.Store, verifier signing.Verifier, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		ledger:   ledger,
		store:    store,
		verifier: verifier,
		sealer:   &seal.Sealer{Logger: logger},
		logger:   logger.With(zap.String("component", "auditor")),
	}
}

// Handler registers the audit job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.AuditSealTask, p.handleAudit)
	return mux
}

func (p *Processor) handleAudit(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeAudit(task)
	if err != nil {
		// A payload that cannot be decoded never will be.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return p.Audit(ctx, payload)
}

// Audit loads the stored document and marks the ledger entry audited or
// tampered. Only storage and ledger failures are returned, so the queue
// retries them; a document that fails verification is a result, not an error.
func (p *Processor) Audit(ctx context.Context, payload queue.AuditPayload) error {
	log := p.logger.With(zap.String("doc_id", payload.DocumentID))
	data, err := p.store.Get(ctx, payload.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn("sealed object missing", zap.String("object_key", payload.ObjectKey))
			if markErr := p.ledger.MarkTampered(ctx, payload.DocumentID, "stored object missing"); markErr != nil {
				return fmt.Errorf("mark tampered: %w", markErr)
			}
			return nil
		}
		return fmt.Errorf("load sealed object: %w", err)
	}

	rep := p.sealer.Inspect(data, p.verifier)
	msg := auditMessage(rep, payload.DocumentID)
	if rep.Valid() && rep.Record.Value(record.KeyID) == payload.DocumentID {
		if err := p.ledger.MarkAudited(ctx, payload.DocumentID, msg); err != nil {
			return fmt.Errorf("mark audited: %w", err)
		}
		log.Info("seal audited", zap.Int("bytes", len(data)))
		return nil
	}
	if err := p.ledger.MarkTampered(ctx, payload.DocumentID, msg); err != nil {
		return fmt.Errorf("mark tampered: %w", err)
	}
	log.Warn("seal audit failed", zap.String("reason", msg))
	return nil
}

func auditMessage(rep seal.Report, wantID string) string {
	switch {
	case !rep.Outcome.Valid():
		if rep.Err != nil {
			return fmt.Sprintf("signature %s: %v", rep.Outcome, rep.Err)
		}
		return "signature " + rep.Outcome.String()
	case rep.ContentBound && !rep.ContentMatch:
		return "content digest mismatch"
	case rep.Record.Value(record.KeyID) != wantID:
		return fmt.Sprintf("record id %q does not match ledger", rep.Record.Value(record.KeyID))
	default:
		return "signature valid"
	}
}
