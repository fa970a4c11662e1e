// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	ginrender "github.com/gin-gonic/gin/render"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/render"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// refreshSeconds is how often the seed page reloads while research runs.
const refreshSeconds = 3

var plantIcons = map[types.PlantType]string{
	types.PlantPine:   "🌲",
	types.PlantSakura: "🌸",
	types.PlantBamboo: "🎋",
	types.PlantFern:   "🌿",
	types.PlantOak:    "🌳",
}

var funcs = template.FuncMap{
	"plantIcon": plantIcon,
	"truncate":  truncate,
	"since":     func(t time.Time) string { return since(t, time.Now()) },
}

func plantIcon(p types.PlantType) string {
	if icon, ok := plantIcons[p]; ok {
		return icon
	}
	return plantIcons[types.PlantPine]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}

func since(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
	return t.Format("2006-01-02")
}

type pages struct {
	garden *template.Template
	seed   *template.Template
	report *template.Template
	err    *template.Template
}

func loadPages() *pages {
	parse := func(name string) *template.Template {
		return template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return &pages{
		garden: parse("garden.html"),
		seed:   parse("seed.html"),
		report: parse("report.html"),
		err:    parse("error.html"),
	}
}

// page is the data every template receives. Each page reads the fields it
// needs.
type page struct {
	Title   string
	Refresh int

	// garden
	Idea    string
	Missing bool
	Models  []agent.Model
	Counts  map[types.Status]int
	Seeds   []types.Seed

	// seed and report
	Seed   types.Seed
	Report *types.Report
	Doc    render.Document

	// error
	Code    int
	Message string
}

func (s *Server) html(c *gin.Context, code int, tmpl *template.Template, data page) {
	c.Render(code, ginrender.HTML{Template: tmpl, Name: "layout", Data: data})
}

func (s *Server) renderError(c *gin.Context, code int, msg string) {
	s.html(c, code, s.pages.err, page{Title: http.StatusText(code), Code: code, Message: msg})
}

// storeError maps a store error to a page. It reports whether err was nil.
func (s *Server) storeError(c *gin.Context, err error, what string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, "Seed not found.")
		return false
	}
	s.log.Error().Err(err).Str("id", c.Param("id")).Msg(what)
	s.renderError(c, http.StatusInternalServerError, "Something went wrong in the garden.")
	return false
}

func (s *Server) garden(c *gin.Context) {
	s.renderGarden(c, http.StatusOK, page{})
}

func (s *Server) renderGarden(c *gin.Context, code int, data page) {
	ctx := c.Request.Context()
	seeds, err := s.store.ListSeeds(ctx, store.ListOptions{Limit: s.cfg.GardenSize})
	if !s.storeError(c, err, "listing seeds") {
		return
	}
	counts, err := s.store.Counts(ctx)
	if !s.storeError(c, err, "counting seeds") {
		return
	}

	data.Title = "Garden"
	data.Seeds = seeds
	data.Counts = counts
	data.Models = s.availableModels()
	s.html(c, code, s.pages.garden, data)
}

func (s *Server) availableModels() []agent.Model {
	if err := s.models.Refresh(); err != nil {
		s.log.Warn().Err(err).Msg("refreshing models")
	}
	return agent.SortForDisplay(s.models.Available())
}

func (s *Server) plant(c *gin.Context) {
	idea := strings.TrimSpace(c.PostForm("idea"))
	if idea == "" {
		s.renderGarden(c, http.StatusBadRequest, page{Missing: true})
		return
	}

	seed, err := s.store.PlantSeed(c.Request.Context(), idea, strings.TrimSpace(c.PostForm("model")))
	if !s.storeError(c, err, "planting seed") {
		return
	}
	s.log.Info().Str("seed", seed.ID).Str("plant", string(seed.PlantType)).Msg("seed planted")
	c.Redirect(http.StatusSeeOther, "/seed/"+seed.ID)
}

func (s *Server) seedPage(c *gin.Context) {
	seed, err := s.store.Seed(c.Request.Context(), c.Param("id"))
	if !s.storeError(c, err, "loading seed") {
		return
	}
	if seed.Status == types.StatusCompleted {
		c.Redirect(http.StatusSeeOther, "/report/"+seed.ID)
		return
	}

	data := page{Title: truncate(seed.Content, 40), Seed: seed}
	if !seed.Status.Settled() {
		data.Refresh = refreshSeconds
	}
	s.html(c, http.StatusOK, s.pages.seed, data)
}

func (s *Server) reportPage(c *gin.Context) {
	ctx := c.Request.Context()
	seed, err := s.store.Seed(ctx, c.Param("id"))
	if !s.storeError(c, err, "loading seed") {
		return
	}
	if !seed.Status.Settled() {
		c.Redirect(http.StatusSeeOther, "/seed/"+seed.ID)
		return
	}

	data := page{Title: truncate(seed.Content, 40), Seed: seed}
	report, err := s.store.Report(ctx, seed.ID)
	switch {
	case err == nil:
		doc, rerr := render.Markdown(report.Content)
		if rerr != nil {
			s.log.Error().Err(rerr).Str("id", seed.ID).Msg("rendering report")
			s.renderError(c, http.StatusInternalServerError, "This report could not be rendered.")
			return
		}
		data.Report = &report
		data.Doc = doc
		if doc.Title != "" {
			data.Title = doc.Title
		}
	case errors.Is(err, store.ErrNotFound):
		// A failed seed has no report; the page offers a regrow.
	default:
		s.storeError(c, err, "loading report")
		return
	}
	s.html(c, http.StatusOK, s.pages.report, data)
}

func (s *Server) deleteFromPage(c *gin.Context) {
	if !s.storeError(c, s.store.DeleteSeed(c.Request.Context(), c.Param("id")), "deleting seed") {
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) regenerateFromPage(c *gin.Context) {
	id := c.Param("id")
	if !s.storeError(c, s.store.Regenerate(c.Request.Context(), id), "regenerating seed") {
		return
	}
	c.Redirect(http.StatusSeeOther, "/seed/"+id)
}
