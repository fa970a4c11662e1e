// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidariuandrei/tane/pkg/types"
)

func testRegistry(t *testing.T, cfg types.ResearchConfig, env map[string]string) *Registry {
	t.Helper()
	if cfg.SecretsDir == "" {
		cfg.SecretsDir = t.TempDir()
	}
	r := NewRegistry(cfg, zerolog.Nop())
	r.getenv = func(k string) string { return env[k] }
	require.NoError(t, r.Refresh())
	return r
}

func modelIDs(models []Model) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

func TestRegistryAvailableFollowsKeys(t *testing.T) {
	r := testRegistry(t, types.ResearchConfig{}, nil)
	assert.Empty(t, r.Available())
	assert.Len(t, r.Models(), len(builtinModels))

	r = testRegistry(t, types.ResearchConfig{}, map[string]string{
		"ZAI_API_KEY":    "zai",
		"OPENAI_API_KEY": "sk",
	})
	assert.Equal(t, []string{"gpt-4o", "glm-4.7-flash"}, modelIDs(r.Available()))
}

func TestRegistryRefreshReadsSecretFiles(t *testing.T) {
	dir := t.TempDir()
	r := testRegistry(t, types.ResearchConfig{SecretsDir: dir}, nil)
	assert.Empty(t, r.Available())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "google-api-key"), []byte("g-key\n"), 0o644))
	require.NoError(t, r.Refresh())
	assert.Equal(t, []string{"gemini-3-flash"}, modelIDs(r.Available()))
}

func TestRegistryModelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - id: glm-4.7-flash
    name: GLM Flash (local proxy)
    provider: zai
    base_url: http://localhost:9000/v1
  - id: claude-opus-4-5
    provider: anthropic
`), 0o644))

	r := testRegistry(t, types.ResearchConfig{ModelsFile: path}, map[string]string{
		"ZAI_API_KEY":       "zai",
		"ANTHROPIC_API_KEY": "ant",
	})

	available := r.Available()
	assert.Equal(t, []string{"claude-sonnet-4-5", "glm-4.7-flash", "claude-opus-4-5"}, modelIDs(available))
	assert.Equal(t, "http://localhost:9000/v1", available[1].BaseURL)
	assert.Equal(t, APIOpenAI, available[1].API)
	assert.Equal(t, APIAnthropic, available[2].API)
}

func TestRegistryModelsFileInvalid(t *testing.T) {
	tests := map[string]string{
		"missing provider": "models:\n  - id: x\n",
		"unknown api":      "models:\n  - id: x\n    provider: p\n    api: grpc\n",
		"bad yaml":         "models: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "models.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			r := NewRegistry(types.ResearchConfig{SecretsDir: t.TempDir(), ModelsFile: path}, zerolog.Nop())
			assert.Error(t, r.Refresh())
		})
	}
}

func TestRegistryMissingModelsFileIsIgnored(t *testing.T) {
	r := testRegistry(t, types.ResearchConfig{ModelsFile: filepath.Join(t.TempDir(), "nope.yaml")}, nil)
	assert.Len(t, r.Models(), len(builtinModels))
}

func TestRegistryProviders(t *testing.T) {
	r := testRegistry(t, types.ResearchConfig{}, map[string]string{"ANTHROPIC_API_KEY": "ant"})
	assert.Equal(t, []ProviderStatus{
		{Name: "anthropic", Configured: true, Models: 1},
		{Name: "google", Configured: false, Models: 1},
		{Name: "openai", Configured: false, Models: 1},
		{Name: "zai", Configured: false, Models: 1},
	}, r.Providers())
}

func TestRegistryNewSession(t *testing.T) {
	r := testRegistry(t, types.ResearchConfig{MaxTurns: 3}, map[string]string{"ZAI_API_KEY": "zai"})

	glm := r.Available()[0]
	conv, err := r.NewSession(glm, nil)
	require.NoError(t, err)
	s, ok := conv.(*Session)
	require.True(t, ok)
	assert.Equal(t, "zai", s.apiKey)
	assert.Equal(t, 3, s.maxTurns)

	_, err = r.NewSession(Model{ID: "gpt-4o", Provider: "openai", API: APIOpenAI}, nil)
	assert.ErrorContains(t, err, "no API key")
}

func TestSortForDisplay(t *testing.T) {
	sorted := SortForDisplay([]Model{
		{ID: "glm-4.7-flash", Provider: "zai"},
		{ID: "gpt-4o", Provider: "openai"},
		{ID: "claude-sonnet-4-5", Provider: "anthropic"},
		{ID: "claude-haiku-4-5", Provider: "anthropic"},
	})
	assert.Equal(t, []string{"claude-haiku-4-5", "claude-sonnet-4-5", "gpt-4o", "glm-4.7-flash"}, modelIDs(sorted))
}
