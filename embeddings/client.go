// Package embeddings is the outbound Cohere-compatible embeddings client.
// It is a collaborator, not part of the indexing core: nothing under
// vectordb/ calls it, so callers pass already-computed vectors in and this
// client stays a standalone piece they can wire up themselves.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/doganarif/vectordb/errs"
)

const op = "embeddings"

const (
	defaultBaseURL = "https://api.cohere.ai/v1/embed"
	defaultModel   = "embed-english-v3.0"
	maxAttempts    = 3
)

// Client calls a Cohere-compatible embeddings endpoint with bounded retry.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New creates a Client. An empty apiKey is allowed at construction time —
// Embed reports errs.EmbeddingUnavailable at call time instead, so a
// missing credential surfaces as a normal request failure rather than a
// panic or a silent no-op.
func New(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithModel overrides the embedding model name.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

// WithBaseURL overrides the endpoint, for testing against a local server.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = url
	}
	return c
}

type embedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, in order. Retries transient failures
// (network errors, 429, 5xx) up to maxAttempts times with exponential
// backoff (base 500ms, factor 2, jitter ±20%); a 4xx other than 429 is not
// retried.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, errs.New(op, errs.EmbeddingUnavailable, "no embeddings credential configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(embedRequest{Model: c.model, Texts: texts, InputType: "search_document"})
	if err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0.2

	vectors, err := backoff.Retry(ctx, func() ([][]float32, error) {
		return c.doRequest(ctx, reqBody)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return nil, errs.Wrap(op, errs.EmbeddingUnavailable, err)
	}
	return vectors, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("embeddings: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embeddings: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("embeddings: upstream status %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("embeddings: upstream status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("embeddings: unmarshal response: %w", err))
	}
	return parsed.Embeddings, nil
}
