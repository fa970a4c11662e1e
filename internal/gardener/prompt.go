// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gardener

import (
	"bytes"
	"text/template"
)

// researchPromptTmpl is the single prompt sent to the agent for a seed.
var researchPromptTmpl = template.Must(template.New("research").Parse(`You are an expert Venture Capital Researcher.
Your task is to analyze the following startup idea/concept and write a comprehensive research report.

Startup Idea: "{{.Idea}}"

Please perform the following steps:
1. Search for existing competitors and similar products.
2. Analyze the market size and trends.
3. Identify potential risks and opportunities.
4. Synthesize all findings into a structured Markdown report.

The report MUST follow this format:
# Research Report: [Idea Name]

## Executive Summary
[Brief overview]

## Market Analysis
[Market size, trends, growth drivers]

## Competitive Landscape
[Major players, gaps, your advantage]

## Strategic Advice
[Recommendations for MVP, go-to-market, etc.]

Do not include any conversational filler. Just output the report.
`))

// renderPrompt executes the research prompt template for one idea.
func renderPrompt(idea string) (string, error) {
	var buf bytes.Buffer
	if err := researchPromptTmpl.Execute(&buf, struct{ Idea string }{Idea: idea}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
