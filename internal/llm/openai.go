package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"dealflow/internal/apperr"
)

// OpenAIBackend talks to the OpenAI chat completions API or any compatible
// endpoint set through BaseURL.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIBackend {
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
		model = "gpt-4o"
	}
	return &OpenAIBackend{client: openai.NewClient(opts...), model: model}
}

func (b *OpenAIBackend) Provider() string { return "openai" }
func (b *OpenAIBackend) Model() string    { return b.model }

func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", apperr.Upstream(apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return "", apperr.Upstream(0, "", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Upstream(http.StatusOK, "", errors.New("openai: response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
