// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
)

// cohereBaseURL overrides the Cohere endpoint. Package-level var for test substitution.
var cohereBaseURL = ""

const defaultEmbeddingModel = "embed-english-v3.0"

// CohereEmbedder implements Embedder with the Cohere Embed API (v2).
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbedder builds an embedder. An empty model selects
// embed-english-v3.0.
func NewCohereEmbedder(apiKey, model string, httpClient *http.Client) *CohereEmbedder {
	if model == "" || !strings.HasPrefix(model, "embed-") {
		model = defaultEmbeddingModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	}
	if cohereBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cohereBaseURL))
	}
	return &CohereEmbedder{client: cohereclient.NewClient(opts...), model: model}
}

// Model returns the embedding model name.
func (c *CohereEmbedder) Model() string { return c.model }

// Embed returns the float embedding of text.
func (c *CohereEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}
	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          []string{text},
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeClustering,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || len(resp.Embeddings.Float) == 0 {
		return nil, fmt.Errorf("cohere embed: %w", ErrEmptyResponse)
	}
	vec := resp.Embeddings.Float[0]
	if len(vec) == 0 {
		return nil, fmt.Errorf("cohere embed: %w", ErrEmptyResponse)
	}
	return vec, nil
}
