// Package audit ships best-effort audit records to the platform log sink.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultAgent = "dealflow-service"

	authorizePath = "/api/v1/auth/login"
	recordsPath   = "/api/v1/logs"

	// refreshWindow is how long before expiry a session is renewed.
	refreshWindow = 2 * time.Minute
)

// StatusError is a non-2xx answer from the sink.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("audit %s: http %d: %s", e.Op, e.Status, e.Body)
}

// session is the bearer credential issued for the API key.
type session struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func (s *session) current(now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	if !s.expires.IsZero() && s.expires.Sub(now) < refreshWindow {
		return "", false
	}
	return s.token, true
}

func (s *session) set(token string, expires time.Time) {
	s.mu.Lock()
	s.token, s.expires = token, expires
	s.mu.Unlock()
}

func (s *session) drop(token string) {
	s.mu.Lock()
	if s.token == token {
		s.token = ""
	}
	s.mu.Unlock()
}

// Client sends audit records for one agent. A nil *Client is valid and
// discards everything.
type Client struct {
	BaseURL string
	APIKey  string
	Agent   string
	HTTP    *http.Client

	sess session
	now  func() time.Time
}

// NewClient returns nil when the sink is not configured.
func NewClient(baseURL, apiKey, agent string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil
	}
	if strings.TrimSpace(agent) == "" {
		agent = defaultAgent
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, Agent: agent}
}

// Authorize exchanges the API key for a fresh session token.
func (c *Client) Authorize(ctx context.Context) error {
	_, err := c.authorize(ctx)
	return err
}

func (c *Client) authorize(ctx context.Context) (string, error) {
	var out struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.post(ctx, "authorize", authorizePath, "", map[string]string{"api_key": c.APIKey}, &out); err != nil {
		return "", err
	}
	token := strings.TrimSpace(out.Token)
	if token == "" {
		return "", errors.New("audit authorize: empty token")
	}
	exp, _ := time.Parse(time.RFC3339, strings.TrimSpace(out.ExpiresAt))
	c.sess.set(token, exp)
	return token, nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if tok, ok := c.sess.current(c.clock()); ok {
		return tok, nil
	}
	return c.authorize(ctx)
}

// Record is one audit entry.
type Record struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Level      string         `json:"level"`
	Details    map[string]any `json:"details"`
	SessionKey string         `json:"session_key"`
	Metadata   map[string]any `json:"metadata"`
}

// Send delivers rec. A rejected session is renewed once before giving up.
func (c *Client) Send(ctx context.Context, rec Record) error {
	if c == nil {
		return nil
	}
	if rec.Agent == "" {
		rec.Agent = c.Agent
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	for attempt := 0; ; attempt++ {
		tok, err := c.bearer(ctx)
		if err != nil {
			return err
		}
		err = c.post(ctx, "send", recordsPath, tok, rec, nil)
		var se *StatusError
		if attempt == 0 && errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			c.sess.drop(tok)
			continue
		}
		return err
	}
}

// LogBestEffort sends a record with its own short timeout and drops any error.
func (c *Client) LogBestEffort(action, level string, details map[string]any) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Send(ctx, Record{Action: action, Level: level, Details: details})
}

func (c *Client) post(ctx context.Context, op, path, token string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("audit %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("audit %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("audit %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("audit %s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("audit %s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
