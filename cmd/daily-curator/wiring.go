// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-curator/internal/curator"
	"github.com/pdiddy/daily-curator/internal/engine"
	"github.com/pdiddy/daily-curator/internal/httpapi"
	"github.com/pdiddy/daily-curator/internal/logging"
	"github.com/pdiddy/daily-curator/internal/oracle"
	"github.com/pdiddy/daily-curator/internal/rategate"
	"github.com/pdiddy/daily-curator/internal/retention"
	"github.com/pdiddy/daily-curator/internal/scheduler"
	"github.com/pdiddy/daily-curator/internal/store"
	"github.com/pdiddy/daily-curator/internal/userlock"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg   types.Config
	log   zerolog.Logger
	store *store.Store

	engine    *engine.Engine
	curator   *curator.Service
	retention *retention.Service
	scheduler *scheduler.Scheduler

	closers []func() error
}

// openStore opens only the database, for commands that need no oracle.
func openStore() (*store.Store, types.Config, error) {
	cfg := loadConfig(viper.GetViper())
	st, err := store.Open(cfg.Store)
	return st, cfg, err
}

// newLogger builds the process logger on stderr.
func newLogger(cfg types.Config) zerolog.Logger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

// newApp wires every component from the loaded configuration.
func newApp(ctx context.Context) (*app, error) {
	cfg := loadConfig(viper.GetViper())
	log := newLogger(cfg)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: st, closers: []func() error{st.Close}}

	if cfg.AI.APIKey == "" {
		log.Warn().Msg("no anthropic api key configured; scoring will fall back to defaults")
	}
	completer := &oracle.ClaudeCompleter{
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		Client:     &http.Client{Timeout: cfg.AI.Timeout},
		MaxRetries: cfg.AI.MaxRetries,
	}

	var embedder oracle.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = oracle.NewCohereEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, &http.Client{Timeout: cfg.Embedding.Timeout})
	} else {
		log.Warn().Msg("no cohere api key configured; duplicate detection and downvote penalties are disabled")
	}

	var locker userlock.Locker = userlock.NewMemory()
	if cfg.Redis.Addr != "" {
		r, err := userlock.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		locker = r
		a.closers = append(a.closers, r.Close)
	}

	gate := rategate.New(cfg.Rate.TPMLimit, cfg.Rate.MaxConcurrent,
		rategate.WithLogger(logging.Component(log, "rategate")))

	a.engine = engine.New(st, completer, embedder, gate, cfg,
		engine.WithUserLocker(locker),
		engine.WithLogger(logging.Component(log, "engine")))
	a.curator = curator.NewService(st, locker, cfg.Curator,
		curator.WithLogger(logging.Component(log, "curator")))
	a.retention = retention.New(st, cfg.Retention,
		retention.WithLogger(logging.Component(log, "retention")))
	a.scheduler = scheduler.New(a.retention, a.engine, a.curator,
		scheduler.WithLogger(logging.Component(log, "scheduler")))
	return a, nil
}

// server builds the HTTP surface over the wired components.
func (a *app) server() *httpapi.Server {
	return httpapi.New(a.engine, a.curator, a.store, logging.Component(a.log, "httpapi"))
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
