// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nursery runs the background poller that finds pending seeds and
// hands them to the gardener.
//
// Each tick claims at most one pending seed. Claiming is an atomic
// pending-to-processing update in the store, so a seed is never dispatched
// twice, even across overlapping ticks. The number of attempts running at
// once is capped; a tick at capacity claims nothing.
package nursery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/pkg/types"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxInFlight  = 4
)

// Claimer hands out pending seeds, each at most once.
type Claimer interface {
	ClaimNext(ctx context.Context) (types.Seed, bool, error)
}

// Tender runs one research attempt for a claimed seed.
type Tender interface {
	Tend(ctx context.Context, seed types.Seed) error
}

// Poller periodically claims pending seeds and tends them on tracked
// goroutines.
type Poller struct {
	claimer     Claimer
	tender      Tender
	interval    time.Duration
	maxInFlight int
	log         zerolog.Logger
	metrics     *metrics.Metrics

	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight int
}

// New creates a Poller.
func New(c Claimer, t Tender, cfg types.NurseryConfig, log zerolog.Logger, m *metrics.Metrics) *Poller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Poller{
		claimer:     c,
		tender:      t,
		interval:    interval,
		maxInFlight: maxInFlight,
		log:         log,
		metrics:     m,
	}
}

// Run ticks until ctx is cancelled, then waits for running attempts to
// return. Attempts observe the same ctx, so they are interrupted too.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().
		Dur("interval", p.interval).
		Int("max_in_flight", p.maxInFlight).
		Msg("nursery started")

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Int("in_flight", p.InFlight()).Msg("nursery stopping, waiting for running attempts")
			p.Wait()
			p.log.Info().Msg("nursery stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick claims at most one pending seed and starts tending it. It reports
// whether a seed was dispatched.
func (p *Poller) Tick(ctx context.Context) bool {
	p.metrics.Tick()
	if ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	if p.inFlight >= p.maxInFlight {
		p.mu.Unlock()
		p.log.Debug().Int("in_flight", p.inFlight).Msg("at capacity, skipping tick")
		return false
	}
	// Reserve the slot before claiming so concurrent ticks cannot overshoot.
	p.inFlight++
	p.mu.Unlock()

	seed, ok, err := p.claimer.ClaimNext(ctx)
	if err != nil || !ok {
		p.release()
		if err != nil {
			p.log.Error().Err(err).Msg("polling for pending seeds")
		}
		return false
	}

	p.metrics.Claimed()
	p.metrics.SetInFlight(p.InFlight())
	p.log.Info().Str("seed", seed.ID).Msg("found pending seed")

	p.wg.Add(1)
	go p.tend(ctx, seed)
	return true
}

func (p *Poller) tend(ctx context.Context, seed types.Seed) {
	defer p.wg.Done()
	defer p.release()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("seed", seed.ID).Err(fmt.Errorf("%v", r)).Msg("panic while tending seed")
		}
	}()

	if err := p.tender.Tend(ctx, seed); err != nil {
		p.log.Warn().Str("seed", seed.ID).Err(err).Msg("grow attempt did not complete")
	}
}

func (p *Poller) release() {
	p.mu.Lock()
	p.inFlight--
	n := p.inFlight
	p.mu.Unlock()
	p.metrics.SetInFlight(n)
}

// InFlight returns the number of attempts currently running.
func (p *Poller) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Wait blocks until every dispatched attempt has returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}
