package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"dealflow/internal/apperr"
)

type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, baseURL, model string, httpClient *http.Client) (*GeminiBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if strings.TrimSpace(baseURL) != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) Provider() string { return "gemini" }
func (b *GeminiBackend) Model() string    { return b.model }

func (b *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxTokens),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", apperr.Upstream(apiErr.Code, apiErr.Message, err)
		}
		return "", apperr.Upstream(0, "", err)
	}
	text := resp.Text()
	if text == "" {
		return "", apperr.Upstream(http.StatusOK, "", errors.New("gemini: response has no text content"))
	}
	return text, nil
}
