// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "List, inspect, delete and regrow seeds",
	Long: `Seeds manages the garden from the terminal. Use subcommands to list
seeds, show one with its report, delete one, or queue one for research
again.`,
}

// --- list subcommand ---

var seedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List seeds, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSeedsList,
}

func runSeedsList(cmd *cobra.Command, args []string) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	opts := store.ListOptions{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		status, err := types.ParseStatus(raw)
		if err != nil {
			return err
		}
		opts.Status = status
	}

	seeds, err := s.ListSeeds(context.Background(), opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if seeds == nil {
			seeds = []types.Seed{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(seeds)
	}
	writeSeedTable(cmd.OutOrStdout(), seeds)
	return nil
}

// --- show subcommand ---

var seedsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a seed and its report",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeedsShow,
}

// seedExport is the document written by show --yaml and --json.
type seedExport struct {
	Seed   types.Seed    `json:"seed" yaml:"seed"`
	Report *types.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

func runSeedsShow(cmd *cobra.Command, args []string) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	seed, err := s.Seed(ctx, args[0])
	if err != nil {
		return err
	}
	out := seedExport{Seed: seed}
	report, err := s.Report(ctx, seed.ID)
	switch {
	case err == nil:
		out.Report = &report
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	w := cmd.OutOrStdout()
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	writeSeed(w, out.Seed, out.Report)
	return nil
}

// --- delete subcommand ---

var seedsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a seed and its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteSeed(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

// --- regenerate subcommand ---

var seedsRegenerateCmd = &cobra.Command{
	Use:   "regenerate <id>",
	Short: "Discard a seed's report and queue it for research again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Regenerate(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %s for research\n", args[0])
		return nil
	},
}

func init() {
	seedsListCmd.Flags().String("status", "", "filter by status: pending, processing, completed, failed")
	seedsListCmd.Flags().Int("limit", 50, "maximum number of seeds to list")
	seedsListCmd.Flags().Bool("json", false, "output seeds as JSON")

	seedsShowCmd.Flags().Bool("yaml", false, "output the seed and report as YAML")
	seedsShowCmd.Flags().Bool("json", false, "output the seed and report as JSON")

	seedsCmd.AddCommand(seedsListCmd)
	seedsCmd.AddCommand(seedsShowCmd)
	seedsCmd.AddCommand(seedsDeleteCmd)
	seedsCmd.AddCommand(seedsRegenerateCmd)

	rootCmd.AddCommand(seedsCmd)
}
