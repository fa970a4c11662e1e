// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidariuandrei/tane/pkg/types"
)

const sampleSearxJSON = `{
	"query": "climbing gear marketplace",
	"results": [
		{"title": "One", "url": "https://one.example", "content": "first"},
		{"title": "Two", "url": "https://two.example", "snippet": "second"},
		{"title": "Three", "url": "https://three.example", "content": "third"},
		{"title": "Four", "url": "https://four.example", "content": "fourth"},
		{"title": "Five", "url": "https://five.example", "content": "fifth"},
		{"title": "Six", "url": "https://six.example", "content": "sixth"}
	]
}`

func searxServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "general", q.Get("categories"))
		assert.Equal(t, "en-US", q.Get("language"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestSearch(url string) *WebSearch {
	return New(types.SearchConfig{URL: url}, zerolog.Nop())
}

func TestSearchReturnsTopFive(t *testing.T) {
	ts := searxServer(t, http.StatusOK, sampleSearxJSON)

	results := newTestSearch(ts.URL).Search(context.Background(), "climbing gear marketplace")
	require.Len(t, results, 5)
	assert.Equal(t, Result{Title: "One", URL: "https://one.example", Snippet: "first"}, results[0])
	assert.Equal(t, "second", results[1].Snippet, "snippet falls back to the snippet field")
	assert.Equal(t, "Five", results[4].Title)
}

func TestSearchEmptyResults(t *testing.T) {
	ts := searxServer(t, http.StatusOK, `{"results": []}`)
	results := newTestSearch(ts.URL).Search(context.Background(), "anything")
	assert.Empty(t, results)
}

func TestSearchFallsBackToMock(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		query   string
		wantLen int
	}{
		{"server error, market query", http.StatusInternalServerError, "oops", "market size for drones", 2},
		{"server error, competitor query", http.StatusBadGateway, "", "Competitors of Strava", 2},
		{"malformed json, other query", http.StatusOK, "{not json", "drone delivery", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := searxServer(t, tt.status, tt.body)
			results := newTestSearch(ts.URL).Search(context.Background(), tt.query)
			require.Len(t, results, tt.wantLen)
			for _, r := range results {
				assert.True(t, strings.HasPrefix(r.Title, "[MOCK]"), r.Title)
			}
		})
	}
}

func TestSearchUnreachableFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	results := newTestSearch(url).Search(context.Background(), "drone delivery")
	require.Len(t, results, 1)
	assert.Equal(t, "[MOCK] General Info about drone delivery", results[0].Title)
}

func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleSearxJSON)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSearchSlowBackendFallsBackWithinTimeout(t *testing.T) {
	ts := slowServer(t, 5*time.Second)
	w := New(types.SearchConfig{URL: ts.URL, HTTPConfig: types.HTTPConfig{Timeout: 100 * time.Millisecond}}, zerolog.Nop())

	start := time.Now()
	results := w.Search(context.Background(), "drone delivery")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, "[MOCK] General Info about drone delivery", results[0].Title)
}

func TestSearchHonorsConfiguredTimeout(t *testing.T) {
	ts := slowServer(t, 150*time.Millisecond)

	// A client without its own timeout leaves the configured one in charge.
	w := New(types.SearchConfig{URL: ts.URL, HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Second}}, zerolog.Nop())
	w.Client = &http.Client{}
	results := w.Search(context.Background(), "gear")
	require.Len(t, results, 5)
	assert.Equal(t, "One", results[0].Title)

	w.Timeout = 50 * time.Millisecond
	results = w.Search(context.Background(), "gear")
	require.Len(t, results, 1)
	assert.True(t, strings.HasPrefix(results[0].Title, "[MOCK]"))
}

func TestToolExecute(t *testing.T) {
	ts := searxServer(t, http.StatusOK, sampleSearxJSON)
	tool := newTestSearch(ts.URL).Tool()
	assert.Equal(t, "web_search", tool.Name)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"gear"}`))
	require.NoError(t, err)

	var results []Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 5)

	_, err = tool.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	assert.Error(t, err)
	_, err = tool.Execute(context.Background(), json.RawMessage(`nope`))
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	w := New(types.SearchConfig{}, zerolog.Nop())
	assert.Equal(t, DefaultURL, w.BaseURL)
	assert.Equal(t, defaultTimeout, w.Client.Timeout)
	assert.Equal(t, defaultTimeout, w.Timeout)

	w = New(types.SearchConfig{HTTPConfig: types.HTTPConfig{Timeout: 8 * time.Second}}, zerolog.Nop())
	assert.Equal(t, 8*time.Second, w.Timeout)
	assert.Equal(t, 8*time.Second, w.Client.Timeout)
}
