// Package trash is the retention-bounded soft-delete store for
// workstreams. Deleted workstreams live here until restored, purged on
// demand, or aged out by the retention window.
package trash

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/store"
)

// DefaultRetentionDays is the purge horizon when none is configured.
const DefaultRetentionDays = 30

// Bin holds trashed workstreams, backed by one JSON file per item.
//
// Retention is enforced lazily: expired items are purged as a side effect
// of the first Load in a session, not by a background timer.
type Bin struct {
	mu            sync.RWMutex
	store         *store.FileStore[models.TrashedWorkstream]
	items         map[string]*models.TrashedWorkstream
	retentionDays int
	loaded        bool
}

// NewBin creates a bin over the given record store.
func NewBin(s *store.FileStore[models.TrashedWorkstream], retentionDays int) *Bin {
	if retentionDays < 1 {
		retentionDays = DefaultRetentionDays
	}
	return &Bin{
		store:         s,
		items:         make(map[string]*models.TrashedWorkstream),
		retentionDays: retentionDays,
	}
}

// Load hydrates the bin from disk and purges items older than the
// retention window. Idempotent; subsequent calls are no-ops.
func (b *Bin) Load() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return nil
	}

	records, err := b.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load trash: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -b.retentionDays)
	for id, item := range records {
		if item.DeletedAt.Before(cutoff) {
			_, _ = b.store.Delete(id)
			continue
		}
		b.items[id] = item
	}

	b.loaded = true
	return nil
}

// MoveToTrash wraps a snapshot of the workstream and persists it. The
// source workstream is not mutated.
func (b *Bin) MoveToTrash(ws *models.Workstream, reason string) (*models.TrashedWorkstream, error) {
	item := &models.TrashedWorkstream{
		Workstream:     *ws.Clone(),
		DeletedAt:      time.Now().UTC(),
		DeletionReason: reason,
	}

	if err := b.store.Write(item.ID, item); err != nil {
		return nil, fmt.Errorf("persist trashed workstream: %w", err)
	}

	b.mu.Lock()
	b.items[item.ID] = item
	b.mu.Unlock()
	return item, nil
}

// Restore removes an item from the trash and returns its workstream.
// Returns (nil, nil) if the id is not in the trash.
func (b *Bin) Restore(id string) (*models.Workstream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[id]
	if !ok {
		return nil, nil
	}

	if _, err := b.store.Delete(id); err != nil {
		return nil, fmt.Errorf("remove trashed workstream: %w", err)
	}
	delete(b.items, id)

	ws := item.Workstream.Clone()
	return ws, nil
}

// PermanentlyDelete erases an item for good. Reports whether it existed.
func (b *Bin) PermanentlyDelete(id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.items[id]; !ok {
		return false, nil
	}
	if _, err := b.store.Delete(id); err != nil {
		return false, fmt.Errorf("remove trashed workstream: %w", err)
	}
	delete(b.items, id)
	return true, nil
}

// Get returns one trashed item, or nil if absent.
func (b *Bin) Get(id string) *models.TrashedWorkstream {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.items[id]
}

// List returns all trashed items, most recently deleted first.
func (b *Bin) List() []*models.TrashedWorkstream {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*models.TrashedWorkstream, 0, len(b.items))
	for _, item := range b.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeletedAt.After(out[j].DeletedAt)
	})
	return out
}

// SetRetentionDays mutates the purge horizon for subsequent loads.
// Clamped to a minimum of one day.
func (b *Bin) SetRetentionDays(n int) {
	if n < 1 {
		n = 1
	}
	b.mu.Lock()
	b.retentionDays = n
	b.mu.Unlock()
}

// Stats summarizes the bin contents.
type Stats struct {
	Count         int
	OldestDeleted time.Time
	NewestDeleted time.Time
	TotalMessages int
}

// GetStats scans all items. O(n), fine at the expected scale.
func (b *Bin) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var s Stats
	for _, item := range b.items {
		s.Count++
		s.TotalMessages += len(item.Messages)
		if s.OldestDeleted.IsZero() || item.DeletedAt.Before(s.OldestDeleted) {
			s.OldestDeleted = item.DeletedAt
		}
		if item.DeletedAt.After(s.NewestDeleted) {
			s.NewestDeleted = item.DeletedAt
		}
	}
	return s
}
