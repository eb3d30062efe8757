package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"dealflow/internal/apperr"
	"dealflow/internal/config"
)

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 4096
)

// Request is one completion call: a system persona plus the rendered stage prompt.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Backend is a provider SDK binding. Implementations make exactly one remote
// call per Generate and report failures as apperr upstream errors.
type Backend interface {
	Provider() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Completer is what stage executors depend on.
type Completer interface {
	Complete(ctx context.Context, prompt, roleHint string) (string, error)
	Model() string
}

type Client struct {
	Backend     Backend
	Logger      *zap.Logger
	Temperature float64
	MaxTokens   int
	// Timeout bounds one call when positive; otherwise the caller's context
	// and the provider's own limits apply.
	Timeout time.Duration
}

// New builds a client for cfg.Provider. An empty apiKey yields a client whose
// calls fail with ServiceUnavailable before any network traffic.
func New(ctx context.Context, cfg config.CompletionConfig, apiKey string, logger *zap.Logger) (*Client, error) {
	c := &Client{
		Logger:      logger,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return c, nil
	}
	httpClient := &http.Client{}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		c.Backend = NewOpenAI(apiKey, cfg.BaseURL, cfg.Model, httpClient)
	case "anthropic":
		c.Backend = NewAnthropic(apiKey, cfg.BaseURL, cfg.Model, httpClient)
	case "gemini":
		b, err := NewGemini(ctx, apiKey, cfg.BaseURL, cfg.Model, httpClient)
		if err != nil {
			return nil, err
		}
		c.Backend = b
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
	return c, nil
}

func (c *Client) Model() string {
	if c == nil || c.Backend == nil {
		return ""
	}
	return c.Backend.Model()
}

// Complete sends prompt with roleHint as the system persona and returns the raw
// completion text. There are no retries.
func (c *Client) Complete(ctx context.Context, prompt, roleHint string) (string, error) {
	if c == nil || c.Backend == nil {
		return "", apperr.ServiceUnavailable("completion service credential is not configured")
	}
	req := Request{
		System:      roleHint,
		Prompt:      prompt,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	if req.Temperature <= 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.Backend.Generate(ctx, req)
	fields := []zap.Field{
		zap.String("provider", c.Backend.Provider()),
		zap.String("model", c.Backend.Model()),
		zap.String("stage", StageFromContext(ctx)),
		zap.Duration("latency", time.Since(start)),
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err != nil {
		log.Warn("completion failed", append(fields, zap.Error(err))...)
		return "", err
	}
	log.Info("completion ok", append(fields, zap.Int("response_len", len(out)))...)
	return out, nil
}

type stageKey struct{}

// WithStage labels ctx so completion logs carry the stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

func StageFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(stageKey{}).(string)
	return v
}
