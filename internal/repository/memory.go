package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dharsanguruparan/SealDrop/internal/model"
)

// MemoryLedger is the Ledger used when no database is configured. Entries
// are lost on restart; the sealed documents themselves are not.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]*model.SealEntry
	now     func() time.Time
}

// NewMemoryLedger constructs a MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]*model.SealEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts an entry with status sealed.
func (m *MemoryLedger) Create(_ context.Context, entry *model.SealEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; ok {
		return fmt.Errorf("insert seal: duplicate id %s", entry.ID)
	}
	now := m.now()
	entry.Status = model.StatusSealed
	entry.CreatedAt = now
	entry.UpdatedAt = now
	stored := *entry
	m.entries[entry.ID] = &stored
	return nil
}

// Get returns a copy of the entry.
func (m *MemoryLedger) Get(_ context.Context, id string) (*model.SealEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

// MarkAudited records a successful re-verification.
func (m *MemoryLedger) MarkAudited(_ context.Context, id, msg string) error {
	return m.updateStatus(id, model.StatusAudited, msg)
}

// MarkTampered records a failed re-verification.
func (m *MemoryLedger) MarkTampered(_ context.Context, id, msg string) error {
	return m.updateStatus(id, model.StatusTampered, msg)
}

func (m *MemoryLedger) updateStatus(id string, status model.SealStatus, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.AuditMessage = msg
	e.UpdatedAt = m.now()
	return nil
}
