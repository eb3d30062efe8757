package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"dealflow/internal/apperr"
)

type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(apiKey, baseURL, model string, httpClient *http.Client) *AnthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if strings.TrimSpace(model) == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicBackend{client: anthropic.NewClient(opts...), model: model}
}

func (b *AnthropicBackend) Provider() string { return "anthropic" }
func (b *AnthropicBackend) Model() string    { return b.model }

func (b *AnthropicBackend) Generate(ctx context.Context, req Request) (string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", apperr.Upstream(apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return "", apperr.Upstream(0, "", err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", apperr.Upstream(http.StatusOK, "", errors.New("anthropic: response has no text content"))
	}
	return text.String(), nil
}
