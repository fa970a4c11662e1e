// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gardener drives one seed through a research attempt: it picks a
// model, runs a single research prompt with the web_search tool, stores the
// resulting report, and records whether the seed completed or failed.
//
// The gardener is the only writer of status transitions out of processing
// and the only writer of reports.
package gardener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

var (
	// ErrNoModels means no model could be selected. It is a configuration
	// problem: no provider has an API key.
	ErrNoModels = errors.New("no models available: configure an API key for at least one provider")

	// ErrNoReport means the conversation ended without an assistant message.
	ErrNoReport = errors.New("agent did not return a final report")

	// ErrNoText means the final assistant message had no text.
	ErrNoText = errors.New("agent finished but produced no text content")
)

// DefaultFallbackModels are tried, in order, when no authenticated model is
// available.
var DefaultFallbackModels = []string{"glm-4.7-flash", "gemini-3-flash"}

// Provider supplies models and research sessions.
type Provider interface {
	Refresh() error
	Available() []agent.Model
	NewSession(m agent.Model, tools []agent.Tool) (agent.Conversation, error)
}

// catalog is implemented by providers that can list models they have no key
// for.
type catalog interface {
	Models() []agent.Model
}

// Store is the subset of the seed store the gardener writes to.
type Store interface {
	Seed(ctx context.Context, id string) (types.Seed, error)
	ClaimSeed(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status types.Status) error
	// CompleteSeed stores the report and marks the seed completed atomically.
	CompleteSeed(ctx context.Context, r types.Report) error
}

// Options configures a Gardener.
type Options struct {
	// FallbackModels overrides DefaultFallbackModels.
	FallbackModels []string
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

// Gardener grows seeds into reports.
type Gardener struct {
	store    Store
	provider Provider
	tools    []agent.Tool
	fallback []string
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a Gardener. tools are offered to every research session.
func New(s Store, p Provider, tools []agent.Tool, opts Options) *Gardener {
	fallback := opts.FallbackModels
	if len(fallback) == 0 {
		fallback = DefaultFallbackModels
	}
	return &Gardener{
		store:    s,
		provider: p,
		tools:    tools,
		fallback: fallback,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Grow runs one attempt for the seed with the given id. A missing seed is
// ignored. The seed is claimed first; if it is not pending (another worker
// owns it, or it already settled) Grow does nothing.
func (g *Gardener) Grow(ctx context.Context, id string) error {
	seed, err := g.store.Seed(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		g.log.Warn().Str("seed", id).Msg("seed not found, nothing to grow")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading seed: %w", err)
	}

	claimed, err := g.store.ClaimSeed(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		g.log.Debug().Str("seed", id).Str("status", string(seed.Status)).Msg("seed not pending, skipping")
		return nil
	}
	seed.Status = types.StatusProcessing
	return g.Tend(ctx, seed)
}

// Tend runs the research attempt for a seed that is already claimed
// (status processing). On success the report is stored and the seed marked
// completed. Any failure marks the seed failed and is returned. If ctx is
// cancelled mid-attempt the seed goes back to pending instead.
func (g *Gardener) Tend(ctx context.Context, seed types.Seed) error {
	log := g.log.With().Str("seed", seed.ID).Logger()
	start := g.now()
	log.Info().Msg("picking up seed")

	// Backends log retries through the context logger.
	err := g.tendRecovered(log.WithContext(ctx), seed, log)

	// Status writes must land even when the caller is shutting down.
	writeCtx := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		g.metrics.GrowFinished(metrics.OutcomeCompleted, g.now().Sub(start))
		log.Info().Dur("duration", g.now().Sub(start)).Msg("seed has grown into a tree")
		return nil

	case ctx.Err() != nil:
		log.Warn().Err(err).Msg("attempt interrupted, returning seed to pending")
		if serr := g.store.SetStatus(writeCtx, seed.ID, types.StatusPending); serr != nil {
			log.Error().Err(serr).Msg("could not requeue seed")
		}
		g.metrics.GrowFinished(metrics.OutcomeRequeued, g.now().Sub(start))
		return err

	default:
		ev := log.Error().Err(err)
		if causes := causeChain(err); len(causes) > 0 {
			ev = ev.Strs("causes", causes)
		}
		ev.Msg("seed withered")
		if serr := g.store.SetStatus(writeCtx, seed.ID, types.StatusFailed); serr != nil {
			log.Error().Err(serr).Msg("could not mark seed failed")
		}
		g.metrics.GrowFinished(metrics.OutcomeFailed, g.now().Sub(start))
		return err
	}
}

// causeChain lists the message of every error wrapped by err, outermost
// first.
func causeChain(err error) []string {
	var causes []string
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		causes = append(causes, cause.Error())
	}
	return causes
}

func (g *Gardener) tendRecovered(ctx context.Context, seed types.Seed, log zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during research: %v", r)
		}
	}()
	return g.tend(ctx, seed, log)
}

func (g *Gardener) tend(ctx context.Context, seed types.Seed, log zerolog.Logger) error {
	if err := g.provider.Refresh(); err != nil {
		return fmt.Errorf("refreshing models: %w", err)
	}

	available := g.provider.Available()
	ids := make([]string, len(available))
	for i, m := range available {
		ids[i] = m.ID
	}
	log.Debug().Strs("available", ids).Msg("available models")

	model, authenticated, err := g.selectModel(available, seed.Model, log)
	if err != nil {
		return err
	}
	log = log.With().Str("model", model.ID).Str("provider", model.Provider).Logger()
	log.Info().Msg("using model")

	conv, err := g.provider.NewSession(model, g.tools)
	if err != nil {
		if !authenticated {
			return fmt.Errorf("%w (tried %s: %v)", ErrNoModels, model.ID, err)
		}
		return fmt.Errorf("opening session with %s: %w", model.ID, err)
	}

	var (
		mu   sync.Mutex
		logs []string
	)
	record := func(msg string) {
		mu.Lock()
		logs = append(logs, msg)
		mu.Unlock()
		log.Info().Msg(msg)
	}
	unsubscribe := conv.Subscribe(func(e agent.Event) {
		switch e.Type {
		case agent.EventToolStart:
			record("Using tool: " + e.ToolName)
		case agent.EventToolEnd:
			if e.Err != nil {
				record(fmt.Sprintf("Tool %s failed: %v", e.ToolName, e.Err))
			}
		}
	})
	defer unsubscribe()

	record("Starting research on: " + seed.Content)

	prompt, err := renderPrompt(seed.Content)
	if err != nil {
		return fmt.Errorf("rendering prompt: %w", err)
	}
	if err := conv.Prompt(ctx, prompt); err != nil {
		return fmt.Errorf("prompting %s: %w", model.ID, err)
	}

	text, err := extractReport(conv.Messages())
	if err != nil {
		return err
	}
	record("Research complete")

	// The research is done; a shutdown from here on must not lose it.
	writeCtx := context.WithoutCancel(ctx)
	mu.Lock()
	report := types.Report{SeedID: seed.ID, Content: text, Logs: logs, Model: model.ID}
	mu.Unlock()
	if err := g.store.CompleteSeed(writeCtx, report); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// selectModel picks the model for a seed: the requested model when it is
// available, otherwise the last available model. With nothing available the
// fallback list is looked up in the provider's full catalog; the boolean
// result is false in that case because the provider has no key for it.
func (g *Gardener) selectModel(available []agent.Model, requested string, log zerolog.Logger) (agent.Model, bool, error) {
	if requested != "" {
		for _, m := range available {
			if m.ID == requested {
				return m, true, nil
			}
		}
		log.Warn().Str("requested", requested).Msg("requested model not found or not authenticated, falling back")
	}

	if len(available) > 0 {
		return available[len(available)-1], true, nil
	}

	if c, ok := g.provider.(catalog); ok {
		all := c.Models()
		for _, id := range g.fallback {
			for _, m := range all {
				if m.ID == id {
					log.Warn().Str("fallback", id).Msg("no authenticated models, trying fallback")
					return m, false, nil
				}
			}
		}
	}
	return agent.Model{}, false, ErrNoModels
}
