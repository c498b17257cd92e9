package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefFromMetadata(t *testing.T) {
	ref, ok := RefFromMetadata(map[string]string{
		"repo":     "kestrelhq/kestrel",
		"prNumber": "42",
	})
	require.True(t, ok)
	assert.Equal(t, Ref{Owner: "kestrelhq", Repo: "kestrel", Number: 42}, ref)
}

func TestRefFromMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]string
	}{
		{"nil metadata", nil},
		{"missing repo", map[string]string{"prNumber": "42"}},
		{"repo without owner", map[string]string{"repo": "kestrel", "prNumber": "42"}},
		{"empty owner", map[string]string{"repo": "/kestrel", "prNumber": "42"}},
		{"empty name", map[string]string{"repo": "kestrelhq/", "prNumber": "42"}},
		{"missing number", map[string]string{"repo": "kestrelhq/kestrel"}},
		{"non-numeric number", map[string]string{"repo": "kestrelhq/kestrel", "prNumber": "abc"}},
		{"zero number", map[string]string{"repo": "kestrelhq/kestrel", "prNumber": "0"}},
		{"negative number", map[string]string{"repo": "kestrelhq/kestrel", "prNumber": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := RefFromMetadata(tt.md)
			assert.False(t, ok)
		})
	}
}

func TestRefString(t *testing.T) {
	ref := Ref{Owner: "kestrelhq", Repo: "kestrel", Number: 7}
	assert.Equal(t, "kestrelhq/kestrel#7", ref.String())
}
