// Package workstream owns the active set of tracked workstreams: CRUD,
// durable persistence, and soft delete/restore through the trash bin.
package workstream

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/store"
	"github.com/kestrelhq/kestrel/internal/trash"
)

// Manager coordinates the in-memory active set with its durable store.
//
// A manager-wide mutex serializes all mutations, so two logically
// concurrent writes to the same id cannot interleave mid-operation.
// There is still no version check: the later write wins whole.
// All returned records are deep copies; callers never share memory with
// the manager's internal state.
type Manager struct {
	mu     sync.RWMutex
	store  *store.FileStore[models.Workstream]
	bin    *trash.Bin
	items  map[string]*models.Workstream
	loaded bool

	// DefaultModelConfig is applied to newly created workstreams.
	DefaultModelConfig models.ModelConfig
}

// NewManager creates a manager over the given record store and trash bin.
func NewManager(s *store.FileStore[models.Workstream], bin *trash.Bin) *Manager {
	return &Manager{
		store: s,
		bin:   bin,
		items: make(map[string]*models.Workstream),
	}
}

// Load hydrates the active set from disk, at most once per process.
// Loading also triggers the trash bin's lazy retention purge. Corrupt
// records are skipped by the store, never fatal.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}

	records, err := m.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load workstreams: %w", err)
	}
	m.items = records

	if err := m.bin.Load(); err != nil {
		return err
	}

	m.loaded = true
	return nil
}

// Create allocates a workstream with defaults, persists it synchronously,
// and inserts it into the active set.
func (m *Manager) Create(typ models.WorkstreamType, name string, metadata map[string]string) (*models.Workstream, error) {
	now := time.Now().UTC()
	ws := &models.Workstream{
		ID:          models.NewID(),
		Name:        name,
		Type:        typ,
		Status:      models.StatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    []models.Message{},
		Metadata:    metadata,
		ModelConfig: m.DefaultModelConfig,
	}

	if err := m.store.Write(ws.ID, ws); err != nil {
		return nil, fmt.Errorf("persist workstream: %w", err)
	}

	m.mu.Lock()
	m.items[ws.ID] = ws
	m.mu.Unlock()

	return ws.Clone(), nil
}

// Update describes a partial workstream mutation. Nil fields are left
// untouched; non-nil fields replace the current value wholesale.
type Update struct {
	Name          *string
	Type          *models.WorkstreamType
	Status        *models.WorkstreamStatus
	StatusMessage *string
	Messages      *[]models.Message
	TokenEstimate *int
	TurnCount     *int
	Metadata      map[string]string
	ModelConfig   *models.ModelConfig
	LiveProgress  *models.Progress
	ClearProgress bool
}

// Apply merges only the supplied fields, bumps UpdatedAt, and persists
// the full resulting record. Returns (nil, nil) for an unknown id.
func (m *Manager) Apply(id string, upd Update) (*models.Workstream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.items[id]
	if !ok {
		return nil, nil
	}

	if upd.Name != nil {
		ws.Name = *upd.Name
	}
	if upd.Type != nil {
		ws.Type = *upd.Type
	}
	if upd.Status != nil {
		ws.Status = *upd.Status
	}
	if upd.StatusMessage != nil {
		ws.StatusMessage = *upd.StatusMessage
	}
	if upd.Messages != nil {
		ws.Messages = append([]models.Message(nil), (*upd.Messages)...)
	}
	if upd.TokenEstimate != nil {
		ws.TokenEstimate = *upd.TokenEstimate
	}
	if upd.TurnCount != nil {
		ws.TurnCount = *upd.TurnCount
	}
	if upd.Metadata != nil {
		ws.Metadata = upd.Metadata
	}
	if upd.ModelConfig != nil {
		ws.ModelConfig = *upd.ModelConfig
	}
	if upd.LiveProgress != nil {
		ws.LiveProgress = upd.LiveProgress
	} else if upd.ClearProgress {
		ws.LiveProgress = nil
	}

	ws.UpdatedAt = time.Now().UTC()

	if err := m.store.Write(ws.ID, ws); err != nil {
		return nil, fmt.Errorf("persist workstream: %w", err)
	}
	return ws.Clone(), nil
}

// UpdateStatus is a convenience wrapper over Apply for status changes.
// No transition table is enforced: any caller may set any status.
func (m *Manager) UpdateStatus(id string, status models.WorkstreamStatus, statusMessage string) (*models.Workstream, error) {
	return m.Apply(id, Update{Status: &status, StatusMessage: &statusMessage})
}

// Delete soft-deletes a workstream into the trash bin. The transfer is
// not transactional across the two stores: the trash write completes
// before the active-store removal, so a crash mid-operation leaves the
// record in both stores rather than neither.
// Returns (nil, nil) for an unknown id.
func (m *Manager) Delete(id, reason string) (*models.TrashedWorkstream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.items[id]
	if !ok {
		return nil, nil
	}

	trashed, err := m.bin.MoveToTrash(ws, reason)
	if err != nil {
		return nil, err
	}

	if _, err := m.store.Delete(id); err != nil {
		return nil, fmt.Errorf("remove workstream: %w", err)
	}
	delete(m.items, id)

	return trashed, nil
}

// RestoreFromTrash is the inverse of Delete: the record leaves the bin,
// sheds its trash-only fields, gets a fresh UpdatedAt, and rejoins the
// active set and its store. Returns (nil, nil) if the id is not trashed.
func (m *Manager) RestoreFromTrash(id string) (*models.Workstream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, err := m.bin.Restore(id)
	if err != nil || ws == nil {
		return nil, err
	}

	ws.UpdatedAt = time.Now().UTC()

	if err := m.store.Write(ws.ID, ws); err != nil {
		return nil, fmt.Errorf("persist restored workstream: %w", err)
	}
	m.items[ws.ID] = ws

	return ws.Clone(), nil
}

// PermanentlyDelete purges a trashed workstream for good.
func (m *Manager) PermanentlyDelete(id string) (bool, error) {
	return m.bin.PermanentlyDelete(id)
}

// Get returns one workstream, or nil if absent.
func (m *Manager) Get(id string) *models.Workstream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ws, ok := m.items[id]; ok {
		return ws.Clone()
	}
	return nil
}

// GetAll returns every active workstream sorted ascending by CreatedAt.
// CreatedAt is immutable, so the numbering users see stays stable.
func (m *Manager) GetAll() []*models.Workstream {
	return m.collect(func(*models.Workstream) bool { return true })
}

// GetByType returns workstreams of one type, sorted by CreatedAt.
func (m *Manager) GetByType(typ models.WorkstreamType) []*models.Workstream {
	return m.collect(func(ws *models.Workstream) bool { return ws.Type == typ })
}

// GetByStatus returns workstreams in one status, sorted by CreatedAt.
func (m *Manager) GetByStatus(status models.WorkstreamStatus) []*models.Workstream {
	return m.collect(func(ws *models.Workstream) bool { return ws.Status == status })
}

// GetNeedingAttention returns workstreams blocked on the user.
func (m *Manager) GetNeedingAttention() []*models.Workstream {
	return m.collect(func(ws *models.Workstream) bool { return ws.NeedsAttention() })
}

// GetActive returns workstreams that have not reached a terminal status.
func (m *Manager) GetActive() []*models.Workstream {
	return m.collect(func(ws *models.Workstream) bool { return !ws.Terminal() })
}

func (m *Manager) collect(keep func(*models.Workstream) bool) []*models.Workstream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Workstream
	for _, ws := range m.items {
		if keep(ws) {
			out = append(out, ws.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Trash exposes the bin for trash-specific operations (search, stats).
func (m *Manager) Trash() *trash.Bin {
	return m.bin
}
