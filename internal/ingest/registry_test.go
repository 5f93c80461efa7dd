package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistryEmbedded(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	require.NotEmpty(t, reg.Sources)

	ids := make(map[string]bool)
	for _, s := range reg.Sources {
		ids[s.ID] = true
		assert.NotEmpty(t, s.Adapter, "source %s missing adapter", s.ID)
		assert.NotEmpty(t, s.BaseURL, "source %s missing base_url", s.ID)
	}
	assert.True(t, ids["canada_esdc"])
	assert.True(t, ids["ontario"])
	assert.True(t, ids["otf"])
}

func TestLoadRegistryPathOverridesEmbedded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	override := `sources:
  - id: custom_only
    name: "Custom Source"
    adapter: ontario
    base_url: "https://example.ca"
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Sources, 1)
	assert.Equal(t, "custom_only", reg.Sources[0].ID)
}

func TestLoadRegistryMissingOverride(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSourceConfigTimeout(t *testing.T) {
	assert.Equal(t, 20*time.Second, SourceConfig{}.Timeout())
	assert.Equal(t, 5*time.Second, SourceConfig{TimeoutSeconds: 5}.Timeout())
}

func TestRegistrySourceLookup(t *testing.T) {
	reg := &Registry{Sources: []SourceConfig{{ID: "a"}, {ID: "b"}}}

	got, ok := reg.Source("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)

	_, ok = reg.Source("missing")
	assert.False(t, ok)
}
