// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search provides the web_search tool backed by a SearXNG instance.
//
// The tool never fails from the agent's point of view: when SearXNG is
// unreachable, slow, or returns something unusable, synthetic results marked
// [MOCK] are returned so a research run can continue.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/pkg/types"
)

// DefaultURL is the SearXNG address used when none is configured, matching
// the service name in the compose setup.
const DefaultURL = "http://searxng:8080"

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxResults = 5
)

// Result is one search hit as handed to the model.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// WebSearch queries SearXNG.
type WebSearch struct {
	BaseURL string
	Client  *http.Client
	// Timeout bounds each query; zero means defaultTimeout.
	Timeout    time.Duration
	UserAgent  string
	MaxResults int
	Log        zerolog.Logger
}

// New builds a WebSearch from configuration.
func New(cfg types.SearchConfig, log zerolog.Logger) *WebSearch {
	base := cfg.URL
	if base == "" {
		base = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebSearch{
		BaseURL:    base,
		Client:     &http.Client{Timeout: timeout},
		Timeout:    timeout,
		UserAgent:  cfg.UserAgent,
		MaxResults: cfg.MaxResults,
		Log:        log,
	}
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

// Search returns up to MaxResults hits for query. On any failure it logs the
// cause and returns mock results instead.
func (w *WebSearch) Search(ctx context.Context, query string) []Result {
	log := w.Log.With().Str("query", query).Logger()
	log.Info().Str("url", w.BaseURL).Msg("web search")

	results, err := w.query(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("SearXNG query failed, using mock results")
		return mockResults(query)
	}
	if len(results) == 0 {
		log.Warn().Msg("no search results")
	}
	return results
}

func (w *WebSearch) query(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{
		"q":          {query},
		"format":     {"json"},
		"categories": {"general"},
		"language":   {"en-US"},
	}
	reqURL := strings.TrimRight(w.BaseURL, "/") + "/search?" + params.Encode()

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if w.UserAgent != "" {
		req.Header.Set("User-Agent", w.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SearXNG request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SearXNG returned HTTP %d", resp.StatusCode)
	}

	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing SearXNG response: %w", err)
	}

	limit := w.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	results := make([]Result, 0, limit)
	for _, r := range sr.Results {
		if len(results) == limit {
			break
		}
		snippet := r.Content
		if snippet == "" {
			snippet = r.Snippet
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: snippet})
	}
	return results, nil
}

func mockResults(query string) []Result {
	q := strings.ToLower(query)
	if strings.Contains(q, "competitor") || strings.Contains(q, "market") {
		return []Result{
			{Title: "[MOCK] Top Competitors (SearXNG Failed)", Snippet: "Major players include Company A and Startup B. Market is growing."},
			{Title: "[MOCK] Market Analysis", Snippet: "Global market size estimated at $5B."},
		}
	}
	return []Result{
		{Title: "[MOCK] General Info about " + query, Snippet: "This is a rapidly evolving field."},
	}
}

// Tool exposes the search as the agent's web_search tool. The tool result is
// the JSON array of results.
func (w *WebSearch) Tool() agent.Tool {
	return agent.Tool{
		Name:        "web_search",
		Label:       "Web Search",
		Description: "Search the web for information about a topic using SearXNG.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to perform.",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("decoding web_search arguments: %w", err)
			}
			if strings.TrimSpace(in.Query) == "" {
				return "", fmt.Errorf("web_search needs a non-empty query")
			}
			data, err := json.Marshal(w.Search(ctx, in.Query))
			if err != nil {
				return "", fmt.Errorf("encoding results: %w", err)
			}
			return string(data), nil
		},
	}
}
