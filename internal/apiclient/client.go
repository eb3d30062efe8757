// Package apiclient talks to the dealflow HTTP API and unwraps its
// {code, message, data, meta} envelope. dealctl and dealmcp share it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dealflow/internal/models"
	"dealflow/internal/pipeline"
	"dealflow/internal/portfolio"
	"dealflow/internal/repository"
	"dealflow/internal/runstore"
)

const maxBody = 8 << 20

type Client struct {
	BaseURL string
	Token   string

	HTTP *http.Client
}

// Envelope mirrors the server response body.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta,omitempty"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Meta    map[string]any
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("http %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, errors.New("base url is empty")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := strings.TrimSpace(c.Token); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// Do sends req and decodes the envelope's data into out. It returns the
// envelope so callers can read meta.
func (c *Client) Do(req *http.Request, out any) (*Envelope, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message, Meta: env.Meta}
		if kind, ok := env.Meta["kind"].(string); ok {
			apiErr.Kind = kind
		}
		return &env, apiErr
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) (*Envelope, error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req, out)
}

type CreateDealRequest struct {
	Name       string  `json:"name"`
	SourceKind string  `json:"source_kind,omitempty"`
	SourceURL  *string `json:"source_url,omitempty"`
}

func (c *Client) CreateDeal(ctx context.Context, in CreateDealRequest) (*models.Deal, error) {
	var d models.Deal
	if _, err := c.call(ctx, http.MethodPost, "/api/deals", in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type ListDealsRequest struct {
	Status string
	Tenant string
	Market string
	Limit  int
	Offset int
}

func (r ListDealsRequest) query() string {
	q := url.Values{}
	if r.Status != "" {
		q.Set("status", r.Status)
	}
	if r.Tenant != "" {
		q.Set("tenant", r.Tenant)
	}
	if r.Market != "" {
		q.Set("market", r.Market)
	}
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Offset > 0 {
		q.Set("offset", strconv.Itoa(r.Offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListDeals returns one page and the total match count.
func (c *Client) ListDeals(ctx context.Context, in ListDealsRequest) ([]models.Deal, int64, error) {
	var items []models.Deal
	env, err := c.call(ctx, http.MethodGet, "/api/deals"+in.query(), nil, &items)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if v, ok := env.Meta["total"].(float64); ok {
		total = int64(v)
	}
	return items, total, nil
}

func (c *Client) GetDeal(ctx context.Context, id string) (*repository.CompleteDeal, error) {
	var d repository.CompleteDeal
	if _, err := c.call(ctx, http.MethodGet, "/api/deals/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/api/deals/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) ArchiveDeal(ctx context.Context, id string) (*models.Deal, error) {
	var d models.Deal
	if _, err := c.call(ctx, http.MethodPost, "/api/deals/"+url.PathEscape(id)+"/archive", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Memos(ctx context.Context, id string) ([]models.Memo, error) {
	var memos []models.Memo
	if _, err := c.call(ctx, http.MethodGet, "/api/deals/"+url.PathEscape(id)+"/memos", nil, &memos); err != nil {
		return nil, err
	}
	return memos, nil
}

// RunStage runs a single stage; in may be nil for stages without input.
func (c *Client) RunStage(ctx context.Context, id string, st pipeline.Stage, in *pipeline.StageInput) (*pipeline.StageOutput, error) {
	var body any
	if in != nil {
		body = in
	}
	var out pipeline.StageOutput
	if _, err := c.call(ctx, http.MethodPost, "/api/deals/"+url.PathEscape(id)+"/"+string(st), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunPipeline runs the full pipeline. On failure the partial result from
// the error meta is returned alongside the error.
func (c *Client) RunPipeline(ctx context.Context, id string, in pipeline.StageInput) (*pipeline.PipelineResult, string, error) {
	var res pipeline.PipelineResult
	env, err := c.call(ctx, http.MethodPost, "/api/deals/"+url.PathEscape(id)+"/pipeline", in, &res)
	runID := ""
	if env != nil {
		runID, _ = env.Meta["run_id"].(string)
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if raw, ok := apiErr.Meta["result"]; ok {
				if b, mErr := json.Marshal(raw); mErr == nil && json.Unmarshal(b, &res) == nil {
					return &res, runID, err
				}
			}
		}
		return nil, runID, err
	}
	return &res, runID, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (*runstore.Run, error) {
	var run runstore.Run
	if _, err := c.call(ctx, http.MethodGet, "/api/pipeline-runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) PortfolioInsights(ctx context.Context) (*portfolio.Insights, error) {
	var ins portfolio.Insights
	if _, err := c.call(ctx, http.MethodGet, "/api/portfolio/insights", nil, &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}
