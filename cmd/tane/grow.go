// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var growCmd = &cobra.Command{
	Use:   "grow <id>",
	Short: "Research one seed in the foreground",
	Long: `Grow runs a single gardener attempt for a pending seed and waits for it
to finish. A seed that is not pending is left alone unless --reset is given,
which discards its report and puts it back to pending first.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrow,
}

func init() {
	growCmd.Flags().Bool("reset", false, "reset the seed to pending before growing")

	rootCmd.AddCommand(growCmd)
}

func runGrow(cmd *cobra.Command, args []string) error {
	cfg, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	id := args[0]
	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := s.Regenerate(ctx, id); err != nil {
			return err
		}
	}

	seed, err := s.Seed(ctx, id)
	if err != nil {
		return err
	}

	g := newGardener(cfg, s, newRegistry(cfg), nil)
	if err := g.Grow(ctx, seed.ID); err != nil {
		return err
	}

	after, err := s.Seed(ctx, seed.ID)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if after.Status == seed.Status {
		fmt.Fprintf(w, "Seed %s is %s; nothing to grow (use --reset to regrow it)\n", seed.ID, seed.Status)
		return nil
	}
	fmt.Fprintf(w, "%s %s %s\n", plantIcon(after.PlantType), statusBadge(after.Status), after.ID)
	return nil
}
