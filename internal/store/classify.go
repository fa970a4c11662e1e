// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"strings"
	"unicode"

	"github.com/zidariuandrei/tane/pkg/types"
)

// plantKeywords is checked in order; the first category with a matching
// keyword wins. Seeds matching nothing grow into pines.
var plantKeywords = []struct {
	plant    types.PlantType
	keywords []string
}{
	{types.PlantSakura, []string{
		"art", "design", "beauty", "color", "music", "style", "dream", "creative",
		"logo", "ui", "ux", "sketch", "draw", "paint", "image", "picture", "photo",
	}},
	{types.PlantBamboo, []string{
		"fast", "growth", "mvp", "hack", "tool", "productivity", "agile", "sprint",
		"code", "dev", "script", "cli", "build", "quick", "app",
	}},
	{types.PlantFern, []string{
		"research", "history", "ancient", "science", "complex", "study", "learn",
		"read", "book", "deep", "theory", "math", "philosophy", "analysis", "investigate",
	}},
	{types.PlantOak, []string{
		"business", "money", "finance", "strategy", "foundation", "long-term",
		"structure", "architecture", "plan", "company", "startup", "invest",
		"wealth", "management",
	}},
}

// ClassifyPlant derives a plant type from idea text. A keyword matches when a
// word of the text starts with it, so "designers" matches "design" but
// "build" does not match "ui".
func ClassifyPlant(content string) types.PlantType {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, group := range plantKeywords {
		for _, kw := range group.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return group.plant
				}
			}
		}
	}
	return types.PlantPine
}
