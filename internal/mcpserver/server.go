// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the garden to MCP clients: planting seeds,
// listing them, reading a seed with its report, and queueing a regrow.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

// Store is the part of the seed store the tools use.
type Store interface {
	PlantSeed(ctx context.Context, content, model string) (types.Seed, error)
	Seed(ctx context.Context, id string) (types.Seed, error)
	ListSeeds(ctx context.Context, opts store.ListOptions) ([]types.Seed, error)
	Report(ctx context.Context, seedID string) (types.Report, error)
	Regenerate(ctx context.Context, id string) error
}

// New creates an MCP server with the seed tools registered.
func New(s Store, version string, log zerolog.Logger) *mcp.Server {
	t := &tools{store: s, log: log}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "tane",
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "plant_seed",
		Description: "Plant a startup idea as a seed. The gardener researches it in the background and writes a report.",
	}, t.PlantSeed)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_seeds",
		Description: "List seeds, newest first, optionally filtered by status (pending, processing, completed, failed)",
	}, t.ListSeeds)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "show_seed",
		Description: "Get a seed and, once research completed, its markdown report",
	}, t.ShowSeed)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "regenerate_seed",
		Description: "Discard a seed's report and queue it for research again",
	}, t.RegenerateSeed)

	return srv
}

type tools struct {
	store Store
	log   zerolog.Logger
}

// --- Input types ---

type PlantSeedInput struct {
	Content string `json:"content" jsonschema:"The startup idea to research"`
	Model   string `json:"model,omitempty" jsonschema:"Optional model id to research with"`
}

type ListSeedsInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: pending, processing, completed or failed"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of seeds to return (default 50)"`
}

type SeedIDInput struct {
	ID string `json:"id" jsonschema:"Seed id"`
}

type seedWithReport struct {
	Seed   types.Seed    `json:"seed"`
	Report *types.Report `json:"report"`
}

// --- Handlers ---

func (t *tools) PlantSeed(ctx context.Context, _ *mcp.CallToolRequest, in PlantSeedInput) (*mcp.CallToolResult, any, error) {
	seed, err := t.store.PlantSeed(ctx, in.Content, in.Model)
	if errors.Is(err, store.ErrEmptyContent) {
		return toolError("Seed content is required"), nil, nil
	}
	if err != nil {
		t.log.Error().Err(err).Msg("planting seed")
		return toolError("Failed to plant seed: %v", err), nil, nil
	}
	t.log.Info().Str("seed", seed.ID).Msg("seed planted")
	return toolJSON(seed)
}

func (t *tools) ListSeeds(ctx context.Context, _ *mcp.CallToolRequest, in ListSeedsInput) (*mcp.CallToolResult, any, error) {
	opts := store.ListOptions{Limit: in.Limit}
	if in.Status != "" {
		status, err := types.ParseStatus(in.Status)
		if err != nil {
			return toolError("%v", err), nil, nil
		}
		opts.Status = status
	}

	seeds, err := t.store.ListSeeds(ctx, opts)
	if err != nil {
		return toolError("Failed to list seeds: %v", err), nil, nil
	}
	if seeds == nil {
		seeds = []types.Seed{}
	}
	return toolJSON(seeds)
}

func (t *tools) ShowSeed(ctx context.Context, _ *mcp.CallToolRequest, in SeedIDInput) (*mcp.CallToolResult, any, error) {
	seed, err := t.store.Seed(ctx, in.ID)
	if errors.Is(err, store.ErrNotFound) {
		return toolError("Seed %q not found", in.ID), nil, nil
	}
	if err != nil {
		return toolError("Failed to load seed: %v", err), nil, nil
	}

	out := seedWithReport{Seed: seed}
	report, err := t.store.Report(ctx, seed.ID)
	switch {
	case err == nil:
		out.Report = &report
	case !errors.Is(err, store.ErrNotFound):
		return toolError("Failed to load report: %v", err), nil, nil
	}
	return toolJSON(out)
}

func (t *tools) RegenerateSeed(ctx context.Context, _ *mcp.CallToolRequest, in SeedIDInput) (*mcp.CallToolResult, any, error) {
	err := t.store.Regenerate(ctx, in.ID)
	if errors.Is(err, store.ErrNotFound) {
		return toolError("Seed %q not found", in.ID), nil, nil
	}
	if err != nil {
		return toolError("Failed to regenerate seed: %v", err), nil, nil
	}
	return toolText("Seed %s queued for research", in.ID), nil, nil
}

func toolText(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	r := toolText(format, args...)
	r.IsError = true
	return r
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return toolText("%s", data), nil, nil
}
