// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Fix seeds whose reports are empty or missing",
	Long: `Repair restores report integrity. Completed seeds with an empty or
missing report are reset to pending so the gardener grows them again, and
reports whose seed no longer exists are removed.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.Repair(context.Background())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !summary.Changed() {
		fmt.Fprintln(w, "Garden is healthy; nothing to repair.")
		return nil
	}
	fmt.Fprintf(w, "Empty reports removed:    %d\n", summary.EmptyReports)
	fmt.Fprintf(w, "Missing reports:          %d\n", summary.MissingReports)
	fmt.Fprintf(w, "Dangling reports removed: %d\n", summary.DanglingReports)
	for _, id := range summary.Reset {
		fmt.Fprintf(w, "  reset %s to pending\n", id)
	}
	return nil
}
