// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns report markdown into HTML for the report page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Heading is an entry of a report's outline.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Document is a rendered report.
type Document struct {
	// Title is the text of the first level-one heading, if any.
	Title string

	// HTML is the rendered body. Raw HTML in the markdown is not passed
	// through.
	HTML template.HTML

	// Outline lists the level-two and level-three headings in order.
	Outline []Heading
}

// Markdown renders src. External links open in a new tab.
func Markdown(src string) (Document, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return Document{}, fmt.Errorf("rendering markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return Document{}, fmt.Errorf("parsing rendered html: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if isExternal(a.AttrOr("href", "")) {
			a.SetAttr("target", "_blank")
			a.SetAttr("rel", "noopener noreferrer")
		}
	})

	var out Document
	out.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		level := 2
		if goquery.NodeName(h) == "h3" {
			level = 3
		}
		out.Outline = append(out.Outline, Heading{
			Level: level,
			ID:    h.AttrOr("id", ""),
			Text:  strings.TrimSpace(h.Text()),
		})
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return Document{}, fmt.Errorf("serializing html: %w", err)
	}
	out.HTML = template.HTML(body)
	return out, nil
}

func isExternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
