package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
)

func newTestStore(t *testing.T) *FileStore[models.Workstream] {
	t.Helper()
	s, err := New[models.Workstream](filepath.Join(t.TempDir(), "workstreams"))
	require.NoError(t, err)
	return s
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "records")
	_, err := New[models.Workstream](dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteAndRead_Roundtrip(t *testing.T) {
	s := newTestStore(t)

	ws := &models.Workstream{
		ID:   "WS1",
		Name: "fix flaky test",
		Type: models.TypePR,
		Metadata: map[string]string{
			"repo":     "kestrelhq/kestrel",
			"prNumber": "42",
		},
		Messages: []models.Message{
			{Role: models.RoleHuman, Content: "please fix"},
		},
	}
	require.NoError(t, s.Write(ws.ID, ws))

	got, err := s.Read("WS1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fix flaky test", got.Name)
	assert.Equal(t, "42", got.Metadata["prNumber"])
	assert.Len(t, got.Messages, 1)
}

func TestRead_Missing_ReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Read("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("WS1", &models.Workstream{ID: "WS1"}))

	removed, err := s.Delete("WS1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete("WS1")
	require.NoError(t, err)
	assert.False(t, removed, "second delete is a no-op")
}

func TestLoadAll_SkipsCorruptRecords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("GOOD", &models.Workstream{ID: "GOOD", Name: "survivor"}))

	// Plant a file the decoder cannot parse.
	corrupt := filepath.Join(s.Dir(), "BAD.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))

	var warned bool
	s.Warn = func(string, ...any) { warned = true }

	records, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "survivor", records["GOOD"].Name)
	assert.True(t, warned, "corrupt record should be reported")
}

func TestLoadAll_IgnoresForeignFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0644))

	records, err := s.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadAll_UnknownFieldsIgnored(t *testing.T) {
	s := newTestStore(t)

	// A record written by a newer version with extra fields still loads.
	raw := []byte(`{"id": "WS1", "name": "future", "someNewField": {"a": 1}}`)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "WS1.json"), raw, 0644))

	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "future", records["WS1"].Name)
}
