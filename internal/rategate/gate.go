// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rategate coordinates calls to the scoring oracle. A Gate enforces a
// tokens-per-minute budget, a cap on simultaneous in-flight calls, and a
// per-article exclusive lock so that no article is scored twice at once.
//
// One Gate is constructed per process and injected into every worker.
package rategate

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	window = time.Minute

	// messageOverhead approximates the per-request framing tokens.
	messageOverhead = 8

	// DefaultResponseBuffer is the token allowance for the model's reply.
	DefaultResponseBuffer = 400
)

// Gate is safe for concurrent use.
type Gate struct {
	tpmLimit int

	// window holds the budget ledger; a one-slot channel is used as the
	// mutex so waiting for it can honour context cancellation.
	window      chan struct{}
	used        int
	windowStart time.Time

	sem chan struct{}

	locks *lockRegistry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   zerolog.Logger
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock and the sleep function. Tests use it to
// drive window rollover without waiting.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) {
		g.now = now
		g.sleep = sleep
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Gate) { g.log = log }
}

// New returns a Gate admitting at most maxConcurrent simultaneous calls and
// tpmLimit estimated tokens per 60-second window.
func New(tpmLimit, maxConcurrent int, opts ...Option) *Gate {
	if tpmLimit <= 0 {
		tpmLimit = 30000
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	g := &Gate{
		tpmLimit: tpmLimit,
		window:   make(chan struct{}, 1),
		sem:      make(chan struct{}, maxConcurrent),
		locks:    newLockRegistry(),
		now:      time.Now,
		sleep:    sleepContext,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.windowStart = g.now()
	return g
}

// Admit blocks until one of the concurrency slots is free and returns the
// function that releases it.
func (g *Gate) Admit(ctx context.Context) (release func(), err error) {
	select {
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reserve blocks until estimatedTokens fit in the current window. When the
// budget would be exceeded it sleeps until the window rolls over, then starts
// a new window and admits. Reserve only fails when ctx is cancelled.
func (g *Gate) Reserve(ctx context.Context, estimatedTokens int) error {
	select {
	case g.window <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.window }()

	elapsed := g.now().Sub(g.windowStart)
	if elapsed >= window {
		g.used = 0
		g.windowStart = g.now()
		elapsed = 0
	}

	if g.used+estimatedTokens > g.tpmLimit {
		wait := window - elapsed
		g.log.Info().
			Int("used", g.used).
			Int("limit", g.tpmLimit).
			Dur("wait", wait).
			Msg("token budget exhausted, waiting for next window")
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
		g.used = 0
		g.windowStart = g.now()
	}

	g.used += estimatedTokens
	g.log.Debug().Int("reserved", estimatedTokens).Int("used", g.used).Msg("tokens reserved")
	return nil
}

// ReportActual reconciles the ledger with the provider's reported usage.
func (g *Gate) ReportActual(actualTokens, estimatedTokens int) {
	g.window <- struct{}{}
	defer func() { <-g.window }()

	diff := actualTokens - estimatedTokens
	g.used += diff
	if diff > 100 || diff < -100 {
		g.log.Debug().
			Int("estimated", estimatedTokens).
			Int("actual", actualTokens).
			Msg("token estimate drifted")
	}
}

// Used returns the tokens counted against the current window.
func (g *Gate) Used() int {
	g.window <- struct{}{}
	defer func() { <-g.window }()
	return g.used
}

// Call admits, reserves estimatedTokens and runs fn. fn returns the actual
// token usage reported by the provider; a positive value is reconciled.
func (g *Gate) Call(ctx context.Context, estimatedTokens int, fn func(ctx context.Context) (int, error)) error {
	release, err := g.Admit(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := g.Reserve(ctx, estimatedTokens); err != nil {
		return err
	}

	actual, err := fn(ctx)
	if actual > 0 {
		g.ReportActual(actual, estimatedTokens)
	}
	return err
}

// WithArticleLock runs body while holding the exclusive lock for articleID.
func (g *Gate) WithArticleLock(ctx context.Context, articleID int64, body func(ctx context.Context) error) error {
	l := g.locks.get(articleID)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l }()
	return body(ctx)
}

// EstimateTokens approximates the token count of text at four characters
// per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// EstimateRequest approximates the total tokens of a two-message request
// plus the reply allowance.
func EstimateRequest(system, user string, responseBuffer int) int {
	return EstimateTokens(system) + EstimateTokens(user) + messageOverhead + responseBuffer
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
