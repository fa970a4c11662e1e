// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/gardener"
	"github.com/zidariuandrei/tane/internal/logging"
	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/internal/search"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

// openStore loads the configuration and opens the seed database.
func openStore() (types.Config, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return types.Config{}, nil, err
	}
	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return types.Config{}, nil, err
	}
	return cfg, s, nil
}

// newRegistry builds the model registry and loads keys and the catalog.
// A refresh failure is logged; the built-in catalog stays usable.
func newRegistry(cfg types.Config) *agent.Registry {
	reg := agent.NewRegistry(cfg.Research, logging.Component(logger, "models"))
	if err := reg.Refresh(); err != nil {
		logger.Warn().Err(err).Msg("loading model registry")
	}
	return reg
}

// newGardener wires the gardener to the store, the registry and the web
// search tool.
func newGardener(cfg types.Config, s *store.Store, reg *agent.Registry, m *metrics.Metrics) *gardener.Gardener {
	ws := search.New(cfg.Search, logging.Component(logger, "search"))
	return gardener.New(s, reg, []agent.Tool{ws.Tool()}, gardener.Options{
		FallbackModels: cfg.Research.FallbackModels,
		Logger:         logging.Component(logger, "gardener"),
		Metrics:        m,
	})
}
