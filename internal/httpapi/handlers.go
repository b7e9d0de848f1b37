// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/engine"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// BatchRequest is the body of POST /api/batches.
type BatchRequest struct {
	ArticleIDs []int64 `json:"article_ids"`
	UserID     *int64  `json:"user_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProcessBatch(c *gin.Context) {
	var req BatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, fmt.Errorf("invalid body: %w", err))
			return
		}
	}
	res, err := s.engine.ProcessBatch(c.Request.Context(), engine.BatchRequest{ArticleIDs: req.ArticleIDs, UserID: req.UserID})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRebuild(c *gin.Context) {
	userID, ok := int64Param(c, "user")
	if !ok {
		return
	}
	date := c.Query("date")
	if date != "" && !validDate(c, date) {
		return
	}
	st, err := s.curator.Rebuild(c.Request.Context(), userID, date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleRebuildAll(c *gin.Context) {
	res, err := s.curator.RebuildAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetEdition(c *gin.Context) {
	userID, ok := int64Param(c, "user")
	if !ok {
		return
	}
	date := c.Param("date")
	if !validDate(c, date) {
		return
	}
	ed, err := s.editions.GetEdition(c.Request.Context(), userID, date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ed.Structure)
}

func (s *Server) handleToggleDownvote(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	res, err := s.engine.ToggleDownvote(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRebuildPrototypes(c *gin.Context) {
	userID, ok := int64Param(c, "user")
	if !ok {
		return
	}
	n, err := s.engine.RebuildPrototypes(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "downvotes": n})
}

func (s *Server) handleExplain(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	text, err := s.engine.ExplainAdjustment(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "explanation": text})
}

// --- helpers ---

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, fmt.Errorf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return v, true
}

func validDate(c *gin.Context, date string) bool {
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		badRequest(c, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date))
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps err to a status code: 404 for missing records, 503 for
// cancelled requests and 500 otherwise.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case c.Request.Context().Err() != nil:
		status = http.StatusServiceUnavailable
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
