// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zidariuandrei/tane/pkg/types"
)

var statusColors = map[types.Status]lipgloss.Color{
	types.StatusPending:    lipgloss.Color("#E0C15A"),
	types.StatusProcessing: lipgloss.Color("#5B8DEF"),
	types.StatusCompleted:  lipgloss.Color("#5FB878"),
	types.StatusFailed:     lipgloss.Color("#FF6B6B"),
}

var plantIcons = map[types.PlantType]string{
	types.PlantPine:   "🌲",
	types.PlantSakura: "🌸",
	types.PlantBamboo: "🎋",
	types.PlantFern:   "🌿",
	types.PlantOak:    "🌳",
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func plantIcon(p types.PlantType) string {
	if icon, ok := plantIcons[p]; ok {
		return icon
	}
	return plantIcons[types.PlantPine]
}

// statusBadge renders a fixed-width, colored status label.
func statusBadge(s types.Status) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColors[s]).
		Width(10).
		Render(string(s))
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func writeSeedTable(w io.Writer, seeds []types.Seed) {
	if len(seeds) == 0 {
		fmt.Fprintln(w, "No seeds found.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-2s  %-10s  %-16s  %s", "ID", "", "Status", "Planted", "Idea")))
	for _, s := range seeds {
		fmt.Fprintf(w, "%-36s  %s  %s  %-16s  %s\n",
			s.ID, plantIcon(s.PlantType), statusBadge(s.Status),
			s.CreatedAt.Local().Format("2006-01-02 15:04"), shorten(s.Content, 60))
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("\n%d seeds", len(seeds))))
}

func writeSeed(w io.Writer, seed types.Seed, report *types.Report) {
	fmt.Fprintf(w, "%s %s  %s\n", plantIcon(seed.PlantType), statusBadge(seed.Status), seed.ID)
	fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("planted"), seed.CreatedAt.Local().Format(time.RFC1123))
	if seed.Model != "" {
		fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("model  "), seed.Model)
	}
	fmt.Fprintf(w, "\n%s\n", seed.Content)

	if report == nil {
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("\n--- report by %s, %s ---", orUnknown(report.Model), report.UpdatedAt.Local().Format(time.RFC1123))))
	fmt.Fprintln(w, report.Content)
	if len(report.Logs) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("\n--- research log ---"))
		for _, l := range report.Logs {
			fmt.Fprintln(w, mutedStyle.Render("  "+l))
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown model"
	}
	return s
}
