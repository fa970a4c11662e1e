// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var plantCmd = &cobra.Command{
	Use:   "plant [idea...]",
	Short: "Plant a startup idea as a new seed",
	Long: `Plant stores the idea as a pending seed. A running "tane serve" picks it
up on its next tick; "tane grow <id>" researches it in the foreground.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlant,
}

func init() {
	plantCmd.Flags().String("model", "", "model id to research with (default: any available)")

	rootCmd.AddCommand(plantCmd)
}

func runPlant(cmd *cobra.Command, args []string) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	model, _ := cmd.Flags().GetString("model")
	seed, err := s.PlantSeed(context.Background(), strings.Join(args, " "), model)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Planted %s (%s)\n", plantIcon(seed.PlantType), seed.ID, seed.PlantType)
	return nil
}
