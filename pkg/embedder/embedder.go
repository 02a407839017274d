package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"umbra/pkg/ai"
	"umbra/pkg/metrics"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

type Client struct {
	endpoint, key, model string
	dims                 int

	httpc   *http.Client
	retry   ai.RetryConfig
	limiter *ai.Limiter
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option    { return func(c *Client) { c.httpc = h } }
func WithRetryConfig(r ai.RetryConfig) Option { return func(c *Client) { c.retry = r } }
func WithLimiter(l *ai.Limiter) Option        { return func(c *Client) { c.limiter = l } }
func WithLogger(l *slog.Logger) Option        { return func(c *Client) { c.log = l } }

func New(endpoint, key, model string, dims int, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		model:    model,
		dims:     dims,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		retry:    ai.DefaultRetryConfig(),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Dimensions() int { return c.dims }

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	tokens := 0
	for _, t := range texts {
		tokens += ai.EstimateTokens(t)
	}

	var raw [][]float32
	var throttled error
	err := ai.Retry(ctx, c.retry, c.log, func() error {
		if err := c.limiter.Wait(ctx, tokens); err != nil {
			throttled = err
			return ai.NewFatalError(err)
		}
		v, err := c.do(ctx, texts)
		if err == nil {
			raw = v
		}
		return err
	})
	if throttled != nil {
		metrics.Embeddings.WithLabelValues("throttled").Add(float64(len(texts)))
		return nil, throttled
	}
	if err != nil {
		metrics.Embeddings.WithLabelValues("error").Add(float64(len(texts)))
		return nil, err
	}

	out := make([][]float32, len(raw))
	for i, v := range raw {
		if c.dims > 0 && len(v) != c.dims {
			c.log.Warn("embedding dimension mismatch", "model", c.model, "got", len(v), "want", c.dims)
		}
		out[i] = Fit(v, c.dims)
	}
	metrics.Embeddings.WithLabelValues("ok").Add(float64(len(texts)))
	return out, nil
}

func (c *Client) do(ctx context.Context, texts []string) ([][]float32, error) {
	b, err := json.Marshal(map[string]any{"model": c.model, "input": texts})
	if err != nil {
		return nil, ai.NewFatalError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embeddings", bytes.NewReader(b))
	if err != nil {
		return nil, ai.NewFatalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ai.NewTransientError(fmt.Errorf("embeddings request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, ai.NewTransientError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ai.ClassifyHTTPError(resp.StatusCode, body)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, ai.NewFatalError(fmt.Errorf("decode embeddings: %w", err))
	}
	if len(out.Data) != len(texts) {
		return nil, ai.NewFatalError(fmt.Errorf("embeddings: got %d vectors for %d inputs", len(out.Data), len(texts)))
	}
	res := make([][]float32, len(texts))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(res) || res[idx] != nil {
			idx = i
		}
		res[idx] = d.Embedding
	}
	return res, nil
}

// Fit pads v with zeros or truncates it to dims. dims <= 0 returns v unchanged.
func Fit(v []float32, dims int) []float32 {
	if dims <= 0 || len(v) == dims {
		return v
	}
	out := make([]float32, dims)
	copy(out, v)
	return out
}
