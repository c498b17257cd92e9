package workstream

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/store"
	"github.com/kestrelhq/kestrel/internal/trash"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	ws, err := store.New[models.Workstream](filepath.Join(dir, "workstreams"))
	require.NoError(t, err)
	ts, err := store.New[models.TrashedWorkstream](filepath.Join(dir, "trash"))
	require.NoError(t, err)

	m := NewManager(ws, trash.NewBin(ts, trash.DefaultRetentionDays))
	require.NoError(t, m.Load())
	return m
}

func TestCreate_Defaults(t *testing.T) {
	m := newTestManager(t)
	m.DefaultModelConfig = models.ModelConfig{Model: "sonnet", MaxTokens: 8192}

	ws, err := m.Create(models.TypeTicket, "triage PROJ-9", map[string]string{"ticketKey": "PROJ-9"})
	require.NoError(t, err)

	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, models.StatusWaiting, ws.Status)
	assert.NotNil(t, ws.Messages)
	assert.Empty(t, ws.Messages)
	assert.Equal(t, "sonnet", ws.ModelConfig.Model)
	assert.Equal(t, ws.CreatedAt, ws.UpdatedAt)
	assert.Equal(t, time.UTC, ws.CreatedAt.Location())
}

func TestGet_ReturnsCopy(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypeAsk, "explain the cache", nil)
	require.NoError(t, err)

	got := m.Get(ws.ID)
	require.NotNil(t, got)
	got.Name = "mutated"

	assert.Equal(t, "explain the cache", m.Get(ws.ID).Name)
}

func TestGet_Unknown(t *testing.T) {
	m := newTestManager(t)
	assert.Nil(t, m.Get("nope"))
}

func TestApply_MergesOnlySuppliedFields(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypePR, "review #42", map[string]string{"repo": "kestrelhq/kestrel"})
	require.NoError(t, err)

	before := m.Get(ws.ID)
	time.Sleep(2 * time.Millisecond)

	name := "review and land #42"
	tokens := 1200
	updated, err := m.Apply(ws.ID, Update{Name: &name, TokenEstimate: &tokens})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "review and land #42", updated.Name)
	assert.Equal(t, 1200, updated.TokenEstimate)
	assert.Equal(t, before.Status, updated.Status, "untouched field survives")
	assert.Equal(t, before.Metadata, updated.Metadata)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
}

func TestApply_UnknownID(t *testing.T) {
	m := newTestManager(t)
	name := "whatever"
	ws, err := m.Apply("missing", Update{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestApply_ProgressLifecycle(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypeInvestigation, "trace the leak", nil)
	require.NoError(t, err)

	updated, err := m.Apply(ws.ID, Update{
		LiveProgress: &models.Progress{Phase: "bisecting", Detail: "commit 40 of 200"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.LiveProgress)
	assert.Equal(t, "bisecting", updated.LiveProgress.Phase)

	updated, err = m.Apply(ws.ID, Update{ClearProgress: true})
	require.NoError(t, err)
	assert.Nil(t, updated.LiveProgress)
}

func TestUpdateStatus(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypePR, "review #7", nil)
	require.NoError(t, err)

	updated, err := m.UpdateStatus(ws.ID, models.StatusInProgress, "agent picked it up")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "agent picked it up", updated.StatusMessage)
}

func TestGetAll_SortedByCreation(t *testing.T) {
	m := newTestManager(t)
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		ws, err := m.Create(models.TypeCustom, name, nil)
		require.NoError(t, err)
		ids = append(ids, ws.ID)
		time.Sleep(2 * time.Millisecond)
	}

	all := m.GetAll()
	require.Len(t, all, 3)
	for i, ws := range all {
		assert.Equal(t, ids[i], ws.ID)
	}
}

func TestFilters(t *testing.T) {
	m := newTestManager(t)

	pr, err := m.Create(models.TypePR, "pr work", nil)
	require.NoError(t, err)
	ask, err := m.Create(models.TypeAsk, "question", nil)
	require.NoError(t, err)
	done, err := m.Create(models.TypeTicket, "finished", nil)
	require.NoError(t, err)

	_, err = m.UpdateStatus(pr.ID, models.StatusNeedsInput, "")
	require.NoError(t, err)
	_, err = m.UpdateStatus(ask.ID, models.StatusError, "crashed")
	require.NoError(t, err)
	_, err = m.UpdateStatus(done.ID, models.StatusDone, "")
	require.NoError(t, err)

	byType := m.GetByType(models.TypePR)
	require.Len(t, byType, 1)
	assert.Equal(t, pr.ID, byType[0].ID)

	byStatus := m.GetByStatus(models.StatusDone)
	require.Len(t, byStatus, 1)
	assert.Equal(t, done.ID, byStatus[0].ID)

	attention := m.GetNeedingAttention()
	require.Len(t, attention, 2)

	active := m.GetActive()
	require.Len(t, active, 1, "done and error are terminal")
	assert.Equal(t, pr.ID, active[0].ID)
}

func TestDeleteAndRestore_Roundtrip(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypePR, "roundtrip me", map[string]string{"repo": "kestrelhq/kestrel"})
	require.NoError(t, err)
	msgs := []models.Message{
		{Role: models.RoleHuman, Content: "start"},
		{Role: models.RoleAssistant, Content: "on it"},
	}
	_, err = m.Apply(ws.ID, Update{Messages: &msgs})
	require.NoError(t, err)
	orig := m.Get(ws.ID)

	trashed, err := m.Delete(ws.ID, "cleanup")
	require.NoError(t, err)
	require.NotNil(t, trashed)
	assert.Equal(t, "cleanup", trashed.DeletionReason)
	assert.Nil(t, m.Get(ws.ID), "deleted workstream leaves the active set")

	restored, err := m.RestoreFromTrash(ws.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)

	// Everything except UpdatedAt comes back untouched.
	assert.Equal(t, orig.ID, restored.ID)
	assert.Equal(t, orig.Name, restored.Name)
	assert.Equal(t, orig.Status, restored.Status)
	assert.Equal(t, orig.Messages, restored.Messages)
	assert.Equal(t, orig.Metadata, restored.Metadata)
	assert.Equal(t, orig.CreatedAt, restored.CreatedAt)
	assert.True(t, restored.UpdatedAt.After(orig.UpdatedAt))

	assert.Nil(t, m.Trash().Get(ws.ID), "restored item leaves the trash")
}

func TestDelete_UnknownID(t *testing.T) {
	m := newTestManager(t)
	trashed, err := m.Delete("missing", "")
	require.NoError(t, err)
	assert.Nil(t, trashed)
}

func TestRestoreFromTrash_UnknownID(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.RestoreFromTrash("missing")
	require.NoError(t, err)
	assert.Nil(t, ws)
}

func TestPermanentlyDelete(t *testing.T) {
	m := newTestManager(t)
	ws, err := m.Create(models.TypeCustom, "gone for good", nil)
	require.NoError(t, err)
	_, err = m.Delete(ws.ID, "")
	require.NoError(t, err)

	removed, err := m.PermanentlyDelete(ws.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	restored, err := m.RestoreFromTrash(ws.ID)
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestLoad_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	open := func() *Manager {
		ws, err := store.New[models.Workstream](filepath.Join(dir, "workstreams"))
		require.NoError(t, err)
		ts, err := store.New[models.TrashedWorkstream](filepath.Join(dir, "trash"))
		require.NoError(t, err)
		m := NewManager(ws, trash.NewBin(ts, trash.DefaultRetentionDays))
		require.NoError(t, m.Load())
		return m
	}

	m1 := open()
	created, err := m1.Create(models.TypeTicket, "persisted", nil)
	require.NoError(t, err)

	m2 := open()
	got := m2.Get(created.ID)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Name)
}
