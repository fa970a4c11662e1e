package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "tane/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	// Path is the database file (e.g. "data/tane.sqlite").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long a writer waits on a locked database (default 5s).
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// NurseryConfig controls the background poller.
type NurseryConfig struct {
	// PollInterval is the delay between ticks (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxInFlight caps concurrent research runs (default 4).
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight" mapstructure:"max_in_flight"`

	// RepairOnStart runs the integrity repair pass before polling starts.
	RepairOnStart bool `json:"repair_on_start" yaml:"repair_on_start" mapstructure:"repair_on_start"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is the SearXNG base URL (e.g. "http://searxng:8080").
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// MaxResults is the number of results handed to the agent (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ResearchConfig holds settings for the gardener and its agent sessions.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// SecretsDir holds provider key files such as anthropic-api-key.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`

	// ModelsFile is an optional YAML model catalog that extends the built-in one.
	ModelsFile string `json:"models_file" yaml:"models_file" mapstructure:"models_file"`

	// FallbackModels are tried in order when no model can be chosen otherwise.
	FallbackModels []string `json:"fallback_models" yaml:"fallback_models" mapstructure:"fallback_models"`

	// MaxTurns bounds the model/tool round trips of one prompt (default 12).
	MaxTurns int `json:"max_turns" yaml:"max_turns" mapstructure:"max_turns"`

	// MaxTokens is the completion budget per model call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the retry budget for rate-limited API calls (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// WebConfig configures the HTTP server.
type WebConfig struct {
	// Addr is the listen address (default ":5173").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// CORSOrigins lists origins allowed to call /api. Empty allows all.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`

	// GardenSize is the number of seeds shown on the garden page (default 50).
	GardenSize int `json:"garden_size" yaml:"garden_size" mapstructure:"garden_size"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, disabled.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" (default) or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all component configurations.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Nursery  NurseryConfig  `json:"nursery" yaml:"nursery" mapstructure:"nursery"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	Web      WebConfig      `json:"web" yaml:"web" mapstructure:"web"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}
