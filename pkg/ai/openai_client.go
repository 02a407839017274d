// pkg/ai/openai_client.go

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"umbra/pkg/metrics"
)

const maxResponseSize = 10 * 1024 * 1024

type openAI struct {
	endpoint string
	key      string
	model    string

	httpc   *http.Client
	retry   RetryConfig
	limiter *Limiter
	log     *slog.Logger
}

type Option func(*openAI)

func WithHTTPClient(c *http.Client) Option { return func(o *openAI) { o.httpc = c } }
func WithRetryConfig(r RetryConfig) Option { return func(o *openAI) { o.retry = r } }
func WithLimiter(l *Limiter) Option        { return func(o *openAI) { o.limiter = l } }
func WithLogger(l *slog.Logger) Option     { return func(o *openAI) { o.log = l } }

// NewOpenAI talks to any OpenAI-compatible chat/completions endpoint; Gemini
// exposes one under /v1beta/openai.
func NewOpenAI(endpoint, key, model string, opts ...Option) Client {
	c := &openAI{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		model:    model,
		httpc:    &http.Client{Timeout: 120 * time.Second},
		retry:    DefaultRetryConfig(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *openAI) Model() string { return c.model }

func (c *openAI) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return "", NewFatalError(errors.New("user prompt is required"))
	}
	prompt := FullPrompt(req)
	log := c.log.With("call_id", uuid.NewString(), "model", c.model, "task", string(req.Task))

	tokens := EstimateTokens(prompt)

	start := time.Now()
	var out string
	var throttled error
	// every attempt is a provider request and is charged to the quota
	err := Retry(ctx, c.retry, log, func() error {
		if err := c.limiter.Wait(ctx, tokens); err != nil {
			throttled = err
			return NewFatalError(err)
		}
		s, err := c.complete(ctx, req, prompt)
		if err == nil {
			out = s
		}
		return err
	})
	if throttled != nil {
		metrics.LLMCalls.WithLabelValues(c.model, string(req.Task), "throttled").Inc()
		log.Warn("llm call refused by quota", "error", throttled)
		return "", throttled
	}
	metrics.LLMLatency.WithLabelValues(c.model, string(req.Task)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCalls.WithLabelValues(c.model, string(req.Task), "error").Inc()
		log.Error("llm call failed", "error", err, "elapsed", time.Since(start))
		return "", err
	}
	metrics.LLMCalls.WithLabelValues(c.model, string(req.Task), "ok").Inc()
	log.Debug("llm call done", "elapsed", time.Since(start), "chars", len(out))
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *openAI) complete(ctx context.Context, req GenerateRequest, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: req.temperature(),
		MaxTokens:   req.maxTokens(),
	})
	if err != nil {
		return "", NewFatalError(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewTransientError(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", ClassifyHTTPError(resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", NewFatalError(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", NewFatalError(errors.New("no choices in completion"))
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ClassifyHTTPError marks 429 and 5xx as transient, every other status as fatal.
func ClassifyHTTPError(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	err := fmt.Errorf("provider error (status %d): %s", status, msg)
	if status == http.StatusTooManyRequests || status >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}
