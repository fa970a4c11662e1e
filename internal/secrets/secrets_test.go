// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "  sk-ant-abc  \n")
				writeFile(t, dir, "zai-api-key", "zai_789")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "sk-ant-abc",
				"zai-api-key":       "zai_789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "sk-valid")
				writeFile(t, dir, "google-api-key", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				return dir
			},
			want: map[string]string{
				"openai-api-key": "sk-valid",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEnvironmentWins(t *testing.T) {
	files := map[string]string{
		"anthropic-api-key": "from-file",
		"openai-api-key":    "openai-file",
	}
	env := map[string]string{
		"ANTHROPIC_API_KEY": "from-env",
		"GOOGLE_API_KEY":    "google-env",
		"OPENAI_API_KEY":    "  ",
	}

	keys := Resolve(files, func(k string) string { return env[k] })

	assert.Equal(t, Keyring{
		"anthropic": "from-env",
		"openai":    "openai-file",
		"google":    "google-env",
	}, keys)
	assert.Equal(t, []string{"anthropic", "google", "openai"}, keys.Names())

	_, ok := keys.Key("zai")
	assert.False(t, ok)
	v, ok := keys.Key("google")
	assert.True(t, ok)
	assert.Equal(t, "google-env", v)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
