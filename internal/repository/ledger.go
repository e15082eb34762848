// Package repository stores the seal ledger, in Postgres or in memory.
package repository

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/SealDrop/internal/model"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("seal entry not found")

// Ledger is implemented by SealRepository and MemoryLedger.
type Ledger interface {
	Create(ctx context.Context, entry *model.SealEntry) error
	Get(ctx context.Context, id string) (*model.SealEntry, error)
	MarkAudited(ctx context.Context, id, msg string) error
	MarkTampered(ctx context.Context, id, msg string) error
}
