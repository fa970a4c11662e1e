// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

type plantRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

type modelView struct {
	agent.Model
	DisplayName string `json:"display_name"`
}

func (s *Server) apiError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "seed not found"})
	case errors.Is(err, store.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error().Err(err).Str("id", c.Param("id")).Msg(what)
		c.JSON(http.StatusInternalServerError, gin.H{"error": what + " failed"})
	}
}

func (s *Server) apiListSeeds(c *gin.Context) {
	opts := store.ListOptions{Limit: s.cfg.GardenSize}
	if raw := c.Query("status"); raw != "" {
		status, err := types.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Status = status
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		opts.Limit = n
	}

	seeds, err := s.store.ListSeeds(c.Request.Context(), opts)
	if err != nil {
		s.apiError(c, err, "listing seeds")
		return
	}
	if seeds == nil {
		seeds = []types.Seed{}
	}
	c.JSON(http.StatusOK, gin.H{"seeds": seeds})
}

func (s *Server) apiPlantSeed(c *gin.Context) {
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	seed, err := s.store.PlantSeed(c.Request.Context(), req.Content, strings.TrimSpace(req.Model))
	if err != nil {
		s.apiError(c, err, "planting seed")
		return
	}
	c.Header("Location", "/api/seeds/"+seed.ID)
	c.JSON(http.StatusCreated, seed)
}

func (s *Server) apiGetSeed(c *gin.Context) {
	ctx := c.Request.Context()
	seed, err := s.store.Seed(ctx, c.Param("id"))
	if err != nil {
		s.apiError(c, err, "loading seed")
		return
	}

	body := gin.H{"seed": seed, "report": nil}
	report, err := s.store.Report(ctx, seed.ID)
	switch {
	case err == nil:
		body["report"] = report
	case !errors.Is(err, store.ErrNotFound):
		s.apiError(c, err, "loading report")
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) apiDeleteSeed(c *gin.Context) {
	if err := s.store.DeleteSeed(c.Request.Context(), c.Param("id")); err != nil {
		s.apiError(c, err, "deleting seed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) apiRegenerateSeed(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Regenerate(c.Request.Context(), id); err != nil {
		s.apiError(c, err, "regenerating seed")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": types.StatusPending})
}

func (s *Server) apiModels(c *gin.Context) {
	models := s.availableModels()
	out := make([]modelView, 0, len(models))
	for _, m := range models {
		out = append(out, modelView{Model: m, DisplayName: m.DisplayName()})
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

// apiStatus reports whether research can run: at least one provider has a
// key and the database answers.
func (s *Server) apiStatus(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.models.Refresh(); err != nil {
		s.log.Warn().Err(err).Msg("refreshing models")
	}
	providers := s.models.Providers()

	connected := false
	for _, p := range providers {
		if p.Configured {
			connected = true
			break
		}
	}
	body := gin.H{"connected": connected, "providers": providers}

	if err := s.store.Ping(ctx); err != nil {
		body["connected"] = false
		body["error"] = "database unavailable: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		s.apiError(c, err, "counting seeds")
		return
	}
	body["seeds"] = counts

	if !connected {
		body["error"] = "no provider API keys configured"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
