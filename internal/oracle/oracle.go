// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle talks to the external language and embedding models. It
// builds the scoring and explanation prompts, parses the scoring verdict and
// reports the token usage the rate gate reconciles against.
package oracle

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model answers without usable text.
var ErrEmptyResponse = errors.New("oracle returned no content")

// Prompt is one system/user message pair.
type Prompt struct {
	System string
	User   string

	// MaxTokens bounds the response; 0 selects the completer default.
	MaxTokens int
}

// Completion is a model answer plus the tokens it consumed.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Tokens returns the total reported usage, or 0 when the provider sent none.
func (c Completion) Tokens() int {
	return c.InputTokens + c.OutputTokens
}

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// Embedder maps text to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
