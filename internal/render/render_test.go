// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `# Research Report: Hut Drones

## Executive Summary
Drones deliver supplies to [mountain huts](https://example.com/huts).

## Market Analysis
See [the appendix](#appendix).

### Trends
| Year | Size |
|------|------|
| 2025 | $5B  |

<script>alert(1)</script>
`

func TestMarkdown(t *testing.T) {
	doc, err := Markdown(sampleReport)
	require.NoError(t, err)

	assert.Equal(t, "Research Report: Hut Drones", doc.Title)
	assert.Equal(t, []Heading{
		{Level: 2, ID: "executive-summary", Text: "Executive Summary"},
		{Level: 2, ID: "market-analysis", Text: "Market Analysis"},
		{Level: 3, ID: "trends", Text: "Trends"},
	}, doc.Outline)

	html := string(doc.HTML)
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "<script>")

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	external := parsed.Find(`a[href="https://example.com/huts"]`)
	require.Equal(t, 1, external.Length())
	assert.Equal(t, "_blank", external.AttrOr("target", ""))
	assert.Equal(t, "noopener noreferrer", external.AttrOr("rel", ""))

	internal := parsed.Find(`a[href="#appendix"]`)
	require.Equal(t, 1, internal.Length())
	_, hasTarget := internal.Attr("target")
	assert.False(t, hasTarget, "in-page links stay in the tab")
}

func TestMarkdownEmpty(t *testing.T) {
	doc, err := Markdown("")
	require.NoError(t, err)
	assert.Empty(t, doc.Title)
	assert.Empty(t, doc.Outline)
	assert.Empty(t, strings.TrimSpace(string(doc.HTML)))
}
