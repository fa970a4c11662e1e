// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

type fakeModels struct {
	available []agent.Model
	providers []agent.ProviderStatus
}

func (f *fakeModels) Refresh() error                    { return nil }
func (f *fakeModels) Available() []agent.Model          { return f.available }
func (f *fakeModels) Providers() []agent.ProviderStatus { return f.providers }

type fixture struct {
	store  *store.Store
	models *fakeModels
	srv    *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "tane.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	models := &fakeModels{
		available: []agent.Model{
			{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai"},
			{ID: "glm-4.7-flash", Name: "GLM-4.7 Flash", Provider: "zai"},
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Provider: "anthropic"},
		},
		providers: []agent.ProviderStatus{
			{Name: "anthropic", Configured: true, Models: 1},
			{Name: "openai", Configured: false, Models: 1},
		},
	}
	reg := prometheus.NewRegistry()
	srv := New(types.WebConfig{}, s, models, Options{
		Logger:   zerolog.Nop(),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	})
	return &fixture{store: s, models: models, srv: srv}
}

func (f *fixture) do(t *testing.T, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) plant(t *testing.T, content string) types.Seed {
	t.Helper()
	seed, err := f.store.PlantSeed(context.Background(), content, "")
	require.NoError(t, err)
	return seed
}

func (f *fixture) complete(t *testing.T, id, report string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveReport(ctx, types.Report{
		SeedID:  id,
		Content: report,
		Logs:    []string{"Starting research", "Research complete"},
		Model:   "glm-4.7-flash",
	}))
	require.NoError(t, f.store.SetStatus(ctx, id, types.StatusCompleted))
}

func form(values map[string]string) string {
	v := url.Values{}
	for k, val := range values {
		v.Set(k, val)
	}
	return v.Encode()
}

const formType = "application/x-www-form-urlencoded"

// --- pages ---

func TestGardenPage(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "Drone delivery for mountain huts")

	rec := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Drone delivery for mountain huts")
	assert.Contains(t, body, "GPT-4o (openai)")
	assert.Contains(t, body, `value="claude-sonnet-4-5"`)
	// Models are listed by provider.
	assert.Less(t, strings.Index(body, "claude-sonnet-4-5"), strings.Index(body, "gpt-4o"))
}

func TestPlantFromForm(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/seeds", form(map[string]string{"idea": "   "}), formType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please describe your idea")

	rec = f.do(t, http.MethodPost, "/seeds",
		form(map[string]string{"idea": "A tea subscription", "model": "gpt-4o"}), formType)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/seed/"))

	seed, err := f.store.Seed(context.Background(), strings.TrimPrefix(loc, "/seed/"))
	require.NoError(t, err)
	assert.Equal(t, "A tea subscription", seed.Content)
	assert.Equal(t, "gpt-4o", seed.Model)
	assert.Equal(t, types.StatusPending, seed.Status)
}

func TestSeedPage(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "idea in progress")

	rec := f.do(t, http.MethodGet, "/seed/"+seed.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)
	assert.Contains(t, rec.Body.String(), "idea in progress")

	f.complete(t, seed.ID, "# Report")
	rec = f.do(t, http.MethodGet, "/seed/"+seed.ID, "", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/report/"+seed.ID, rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/seed/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailedSeedPageOffersRegrow(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "a withered idea")
	require.NoError(t, f.store.SetStatus(context.Background(), seed.ID, types.StatusFailed))

	rec := f.do(t, http.MethodGet, "/seed/"+seed.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "/report/"+seed.ID+"/regenerate")
}

func TestReportPage(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "hut drones")

	rec := f.do(t, http.MethodGet, "/report/"+seed.ID, "", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "unfinished seeds go back to the seed page")
	assert.Equal(t, "/seed/"+seed.ID, rec.Header().Get("Location"))

	f.complete(t, seed.ID, "# Research Report: Hut Drones\n\n## Executive Summary\nPromising.\n\nSee [source](https://example.com).")
	rec = f.do(t, http.MethodGet, "/report/"+seed.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Research Report: Hut Drones · Tane</title>")
	assert.Contains(t, body, `<h2 id="executive-summary">Executive Summary</h2>`)
	assert.Contains(t, body, `href="#executive-summary"`)
	assert.Contains(t, body, `target="_blank"`)
	assert.Contains(t, body, "Research complete")
	assert.Contains(t, body, "glm-4.7-flash")

	rec = f.do(t, http.MethodGet, "/report/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportPageFailedSeed(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "idea")
	require.NoError(t, f.store.SetStatus(context.Background(), seed.ID, types.StatusFailed))

	rec := f.do(t, http.MethodGet, "/report/"+seed.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "withered")
}

func TestDeleteFromPages(t *testing.T) {
	for _, prefix := range []string{"/seed/", "/report/"} {
		t.Run(prefix, func(t *testing.T) {
			f := newFixture(t)
			seed := f.plant(t, "idea")

			rec := f.do(t, http.MethodPost, prefix+seed.ID+"/delete", "", formType)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))

			_, err := f.store.Seed(context.Background(), seed.ID)
			assert.ErrorIs(t, err, store.ErrNotFound)

			rec = f.do(t, http.MethodPost, prefix+seed.ID+"/delete", "", formType)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestRegenerateFromPage(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "idea")
	f.complete(t, seed.ID, "# Report")

	rec := f.do(t, http.MethodPost, "/report/"+seed.ID+"/regenerate", "", formType)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/seed/"+seed.ID, rec.Header().Get("Location"))

	got, err := f.store.Seed(context.Background(), seed.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	_, err = f.store.Report(context.Background(), seed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing grows here.")
}

// --- api ---

func TestAPIPlantAndGet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/seeds", `{"content":"  Creative cherry blossom tours  ","model":"gpt-4o"}`, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var seed types.Seed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seed))
	assert.Equal(t, "Creative cherry blossom tours", seed.Content)
	assert.Equal(t, types.PlantSakura, seed.PlantType)
	assert.Equal(t, "/api/seeds/"+seed.ID, rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/api/seeds/"+seed.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Seed   types.Seed    `json:"seed"`
		Report *types.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, seed.ID, got.Seed.ID)
	assert.Nil(t, got.Report)

	f.complete(t, seed.ID, "# Report")
	rec = f.do(t, http.MethodGet, "/api/seeds/"+seed.ID, "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Report)
	assert.Equal(t, "# Report", got.Report.Content)
	assert.Equal(t, types.StatusCompleted, got.Seed.Status)

	rec = f.do(t, http.MethodGet, "/api/seeds/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIPlantRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"content":"  "}`, `{}`, `not json`} {
		rec := f.do(t, http.MethodPost, "/api/seeds", body, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestAPIListSeeds(t *testing.T) {
	f := newFixture(t)
	a := f.plant(t, "first")
	f.plant(t, "second")
	require.NoError(t, f.store.SetStatus(context.Background(), a.ID, types.StatusFailed))

	decode := func(rec *httptest.ResponseRecorder) []types.Seed {
		var out struct {
			Seeds []types.Seed `json:"seeds"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out.Seeds
	}

	rec := f.do(t, http.MethodGet, "/api/seeds", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(rec), 2)

	rec = f.do(t, http.MethodGet, "/api/seeds?status=failed", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decode(rec)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	rec = f.do(t, http.MethodGet, "/api/seeds?limit=1", "", "")
	assert.Len(t, decode(rec), 1)

	rec = f.do(t, http.MethodGet, "/api/seeds?status=completed", "", "")
	assert.JSONEq(t, `{"seeds":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/seeds?status=wilting", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/seeds?limit=-2", "", "").Code)
}

func TestAPIDeleteAndRegenerate(t *testing.T) {
	f := newFixture(t)
	seed := f.plant(t, "idea")
	f.complete(t, seed.ID, "# Report")

	rec := f.do(t, http.MethodPost, "/api/seeds/"+seed.ID+"/regenerate", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"id":"`+seed.ID+`","status":"pending"}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/api/seeds/"+seed.ID, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/seeds/"+seed.ID, "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/seeds/"+seed.ID+"/regenerate", "", "").Code)
}

func TestAPIModels(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/models", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Models []struct {
			ID          string `json:"id"`
			Provider    string `json:"provider"`
			DisplayName string `json:"display_name"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Models, 3)
	assert.Equal(t, "anthropic", out.Models[0].Provider)
	assert.Equal(t, "Claude Sonnet 4.5 (anthropic)", out.Models[0].DisplayName)
	assert.Equal(t, "zai", out.Models[2].Provider)
}

func TestAPIStatus(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "idea")

	rec := f.do(t, http.MethodGet, "/api/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Connected bool           `json:"connected"`
		Seeds     map[string]int `json:"seeds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Connected)
	assert.Equal(t, 1, out.Seeds["pending"])

	f.models.providers = []agent.ProviderStatus{{Name: "openai", Models: 1}}
	rec = f.do(t, http.MethodGet, "/api/status", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no provider API keys configured")
}

func TestAPICORS(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/seeds", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/seeds/abc", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
}

// --- operational ---

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	require.NoError(t, f.store.Close())
	rec = f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.plant(t, "idea")
	f.do(t, http.MethodGet, "/", "", "")

	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tane_store_seeds{status="pending"} 1`)
	assert.Contains(t, body, `tane_http_requests_total{method="GET",path="/",status="200"} 1`)
}

func TestRunShutsDown(t *testing.T) {
	f := newFixture(t)
	f.srv.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", since(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", since(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", since(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", since(now.Add(-48*time.Hour), now))
	assert.Equal(t, "2025-12-01", since(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Empty(t, since(time.Time{}, now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Sakura…", truncate("Sakura tours in Kyoto", 7))
	assert.Equal(t, "🌸🌸…", truncate("🌸🌸🌸", 2))
}
