// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zidariuandrei/tane/internal/agent"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and which providers have keys",
	Long: `Models prints the model catalog (built-in plus research.models_file)
sorted by provider, marking the models whose provider has an API key.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().Bool("available", false, "only list models with a configured key")
	modelsCmd.Flags().Bool("json", false, "output models as JSON")

	rootCmd.AddCommand(modelsCmd)
}

type modelRow struct {
	agent.Model
	DisplayName string `json:"display_name"`
	Available   bool   `json:"available"`
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg := agent.NewRegistry(cfg.Research, logger)
	if err := reg.Refresh(); err != nil {
		return err
	}

	available := map[string]bool{}
	for _, m := range reg.Available() {
		available[m.Provider+"/"+m.ID] = true
	}
	onlyAvailable, _ := cmd.Flags().GetBool("available")

	var rows []modelRow
	for _, m := range agent.SortForDisplay(reg.Models()) {
		ok := available[m.Provider+"/"+m.ID]
		if onlyAvailable && !ok {
			continue
		}
		rows = append(rows, modelRow{Model: m, DisplayName: m.DisplayName(), Available: ok})
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if rows == nil {
			rows = []modelRow{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-3s %-24s %-12s %s", "", "ID", "Provider", "Name")))
	for _, r := range rows {
		mark := mutedStyle.Render(" - ")
		if r.Available {
			mark = " ✓ "
		}
		fmt.Fprintf(w, "%s %-24s %-12s %s\n", mark, r.ID, r.Provider, r.Name)
	}

	fmt.Fprintln(w)
	for _, p := range reg.Providers() {
		state := "no key"
		if p.Configured {
			state = "configured"
		}
		fmt.Fprintf(w, "%s %s (%d models)\n", mutedStyle.Render(p.Name+":"), state, p.Models)
	}
	return nil
}
