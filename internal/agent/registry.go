// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/zidariuandrei/tane/internal/secrets"
	"github.com/zidariuandrei/tane/pkg/types"
)

// builtinModels is the catalog every registry starts from. Order matters:
// when a seed asks for no particular model the gardener takes the last
// available entry.
var builtinModels = []Model{
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai", API: APIOpenAI, ContextWindow: 128000},
	{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Provider: "anthropic", API: APIAnthropic, ContextWindow: 200000},
	{ID: "gemini-3-flash", Name: "Gemini 3 Flash", Provider: "google", API: APIOpenAI,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", ContextWindow: 1000000},
	{ID: "glm-4.7-flash", Name: "GLM 4.7 Flash", Provider: "zai", API: APIOpenAI,
		BaseURL: "https://api.z.ai/api/paas/v4", ContextWindow: 200000},
}

// catalogFile is the YAML layout of research.models_file.
type catalogFile struct {
	Models []Model `yaml:"models"`
}

// ProviderStatus summarises one provider for status reporting.
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Models     int    `json:"models"`
}

// Registry is the model catalog plus the credentials needed to use it.
// Call Refresh to (re)load keys and the catalog file.
type Registry struct {
	cfg    types.ResearchConfig
	log    zerolog.Logger
	getenv func(string) string

	backends map[API]Backend

	mu     sync.RWMutex
	models []Model
	keys   secrets.Keyring
}

// NewRegistry creates a registry with the built-in catalog and no keys.
func NewRegistry(cfg types.ResearchConfig, log zerolog.Logger) *Registry {
	client := &http.Client{Timeout: cfg.Timeout}
	return &Registry{
		cfg:    cfg,
		log:    log,
		getenv: os.Getenv,
		backends: map[API]Backend{
			APIAnthropic: &AnthropicBackend{Client: client, MaxRetries: cfg.MaxRetries, UserAgent: cfg.UserAgent},
			APIOpenAI:    &OpenAIBackend{Client: client, MaxRetries: cfg.MaxRetries, UserAgent: cfg.UserAgent},
		},
		models: append([]Model(nil), builtinModels...),
		keys:   secrets.Keyring{},
	}
}

// SetBackend replaces the backend used for api.
func (r *Registry) SetBackend(api API, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[api] = b
}

// Refresh reloads provider keys from the secrets directory and environment,
// and the catalog from the built-in list plus research.models_file.
func (r *Registry) Refresh() error {
	files, err := secrets.Load(r.cfg.SecretsDir, r.log)
	if err != nil {
		return fmt.Errorf("loading secrets: %w", err)
	}
	keys := secrets.Resolve(files, r.getenv)

	models, err := loadCatalog(r.cfg.ModelsFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.keys = keys
	r.models = models
	r.mu.Unlock()

	r.log.Debug().
		Strs("providers", keys.Names()).
		Int("models", len(models)).
		Msg("model registry refreshed")
	return nil
}

// loadCatalog merges the catalog file over the built-in models. Entries with
// the same provider and id replace the built-in one in place; new entries
// are appended.
func loadCatalog(path string) ([]Model, error) {
	models := append([]Model(nil), builtinModels...)
	if path == "" {
		return models, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading models file %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing models file %s: %w", path, err)
	}

	for _, m := range file.Models {
		if m.ID == "" || m.Provider == "" {
			return nil, fmt.Errorf("models file %s: every model needs an id and a provider", path)
		}
		if m.API == "" {
			m.API = APIOpenAI
			if m.Provider == "anthropic" {
				m.API = APIAnthropic
			}
		}
		if m.API != APIAnthropic && m.API != APIOpenAI {
			return nil, fmt.Errorf("models file %s: model %s has unknown api %q", path, m.ID, m.API)
		}

		replaced := false
		for i := range models {
			if models[i].ID == m.ID && models[i].Provider == m.Provider {
				models[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			models = append(models, m)
		}
	}
	return models, nil
}

// Models returns the whole catalog in catalog order.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Model(nil), r.models...)
}

// Available returns catalog models whose provider has a key, in catalog order.
func (r *Registry) Available() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Model
	for _, m := range r.models {
		if _, ok := r.keys.Key(m.Provider); ok {
			out = append(out, m)
		}
	}
	return out
}

// Providers reports, for every provider in the catalog, whether a key is
// configured and how many models it offers. Sorted by name.
func (r *Registry) Providers() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName := map[string]*ProviderStatus{}
	for _, m := range r.models {
		ps, ok := byName[m.Provider]
		if !ok {
			_, configured := r.keys.Key(m.Provider)
			ps = &ProviderStatus{Name: m.Provider, Configured: configured}
			byName[m.Provider] = ps
		}
		ps.Models++
	}

	out := make([]ProviderStatus, 0, len(byName))
	for _, ps := range byName {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewSession opens a conversation with m using the given tools.
func (r *Registry) NewSession(m Model, tools []Tool) (Conversation, error) {
	r.mu.RLock()
	key, ok := r.keys.Key(m.Provider)
	backend := r.backends[m.API]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no API key for provider %s", m.Provider)
	}
	if backend == nil {
		return nil, fmt.Errorf("model %s: unsupported api %q", m.ID, m.API)
	}

	return NewSession(m, backend, SessionOptions{
		APIKey:    key,
		Tools:     tools,
		MaxTurns:  r.cfg.MaxTurns,
		MaxTokens: r.cfg.MaxTokens,
		Logger:    r.log,
	}), nil
}

// SortForDisplay orders models by provider, then id.
func SortForDisplay(models []Model) []Model {
	out := append([]Model(nil), models...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}
