// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys from a directory of plain-text files
// and the process environment. Each file in the directory holds one secret:
// the filename is the key name (e.g. anthropic-api-key) and the trimmed file
// contents are the value. Environment variables take precedence over files.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ProviderKey names where one provider's API key can come from.
type ProviderKey struct {
	// File is the filename inside the secrets directory.
	File string
	// Env is the environment variable that overrides the file.
	Env string
}

// Providers maps provider names to their key sources.
var Providers = map[string]ProviderKey{
	"anthropic": {File: "anthropic-api-key", Env: "ANTHROPIC_API_KEY"},
	"openai":    {File: "openai-api-key", Env: "OPENAI_API_KEY"},
	"zai":       {File: "zai-api-key", Env: "ZAI_API_KEY"},
	"google":    {File: "google-api-key", Env: "GOOGLE_API_KEY"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map. Unreadable
// files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	files := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			files[name] = value
		}
	}
	return files, nil
}

// Keyring holds resolved API keys by provider name.
type Keyring map[string]string

// Resolve builds a Keyring from secret files and an environment lookup.
// A non-empty environment value wins over the file of the same provider.
func Resolve(files map[string]string, getenv func(string) string) Keyring {
	if getenv == nil {
		getenv = os.Getenv
	}
	keys := make(Keyring)
	for provider, src := range Providers {
		if v := strings.TrimSpace(getenv(src.Env)); v != "" {
			keys[provider] = v
			continue
		}
		if v, ok := files[src.File]; ok {
			keys[provider] = v
		}
	}
	return keys
}

// Key returns the key for provider, if any.
func (k Keyring) Key(provider string) (string, bool) {
	v, ok := k[provider]
	return v, ok && v != ""
}

// Names returns the providers that have a key, sorted.
func (k Keyring) Names() []string {
	names := make([]string, 0, len(k))
	for name, v := range k {
		if v != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
