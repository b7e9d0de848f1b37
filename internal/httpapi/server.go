// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httpapi exposes the curation operations over HTTP with gin.
// No endpoint stores a caller-supplied edition structure; editions change
// only through a rebuild.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/daily-curator/internal/curator"
	"github.com/pdiddy/daily-curator/internal/engine"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// RequestIDHeader carries the per-request id on every response.
const RequestIDHeader = "X-Request-ID"

// Engine is the scoring and feedback side.
type Engine interface {
	ProcessBatch(ctx context.Context, req engine.BatchRequest) (engine.BatchResult, error)
	ToggleDownvote(ctx context.Context, articleID int64) (engine.VoteResult, error)
	RebuildPrototypes(ctx context.Context, userID int64) (int, error)
	ExplainAdjustment(ctx context.Context, articleID int64) (string, error)
}

// Curator rebuilds editions.
type Curator interface {
	Rebuild(ctx context.Context, userID int64, date string) (types.Structure, error)
	RebuildAll(ctx context.Context) (curator.BatchResult, error)
}

// EditionReader loads stored editions.
type EditionReader interface {
	GetEdition(ctx context.Context, userID int64, date string) (types.Edition, error)
}

// Server holds the router and its dependencies.
type Server struct {
	engine   Engine
	curator  Curator
	editions EditionReader
	log      zerolog.Logger
	router   *gin.Engine
}

// New builds the router.
func New(e Engine, c Curator, r EditionReader, log zerolog.Logger) *Server {
	s := &Server{engine: e, curator: c, editions: r, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestID())
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	api.POST("/batches", s.handleProcessBatch)
	api.POST("/editions/rebuild", s.handleRebuildAll)
	api.POST("/users/:user/editions/rebuild", s.handleRebuild)
	api.GET("/users/:user/editions/:date", s.handleGetEdition)
	api.POST("/users/:user/prototypes/rebuild", s.handleRebuildPrototypes)
	api.POST("/articles/:id/downvote", s.handleToggleDownvote)
	api.GET("/articles/:id/explanation", s.handleExplain)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

// requestID tags the request with an id, exposes it in the response and
// attaches a logger carrying it to the request context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		log := s.log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context()))

		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	}
}
