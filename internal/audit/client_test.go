package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type sink struct {
	mu      sync.Mutex
	logins  int
	records []Record
	auth    []string
	// reject401 answers the next n record posts with 401.
	reject401 int
	ttl       time.Duration
}

func (s *sink) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.URL.Path {
		case "/api/v1/auth/login":
			s.logins++
			ttl := s.ttl
			if ttl == 0 {
				ttl = time.Hour
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":      fmt.Sprintf("tok-%d", s.logins),
				"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
			})
		case "/api/v1/logs":
			if s.reject401 > 0 {
				s.reject401--
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var rec Record
			_ = json.NewDecoder(r.Body).Decode(&rec)
			s.records = append(s.records, rec)
			s.auth = append(s.auth, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestNewClient_Unconfigured(t *testing.T) {
	if c := NewClient("", "key", ""); c != nil {
		t.Fatalf("expected nil client")
	}
	var c *Client
	c.LogBestEffort("x", "info", nil)
}

func TestSend_ReusesSession(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	defer srv.Close()

	c := NewClient(srv.URL, "k", "")
	for i := 0; i < 2; i++ {
		c.LogBestEffort("digest", "info", map[string]any{"i": i})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logins != 1 {
		t.Fatalf("logins=%d", s.logins)
	}
	if len(s.records) != 2 || s.records[0].Agent != defaultAgent || s.auth[1] != "Bearer tok-1" {
		t.Fatalf("records=%+v auth=%v", s.records, s.auth)
	}
}

func TestSend_RenewsRejectedSessionOnce(t *testing.T) {
	s := &sink{reject401: 1}
	srv := s.server(t)
	defer srv.Close()

	c := NewClient(srv.URL, "k", "")
	if err := c.Send(context.Background(), Record{Action: "digest", Level: "info"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	s.mu.Lock()
	if s.logins != 2 || len(s.records) != 1 || s.auth[0] != "Bearer tok-2" {
		t.Fatalf("logins=%d records=%d auth=%v", s.logins, len(s.records), s.auth)
	}
	s.reject401 = 2
	s.mu.Unlock()

	err := c.Send(context.Background(), Record{Action: "digest", Level: "info"})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized || se.Op != "send" {
		t.Fatalf("err=%v want a single retry then 401", err)
	}
}

func TestSend_RefreshesNearExpiry(t *testing.T) {
	s := &sink{ttl: time.Minute}
	srv := s.server(t)
	defer srv.Close()

	c := NewClient(srv.URL, "k", "")
	for i := 0; i < 2; i++ {
		if err := c.Send(context.Background(), Record{Action: "digest"}); err != nil {
			t.Fatalf("err=%v", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logins != 2 {
		t.Fatalf("logins=%d want a renewal inside the refresh window", s.logins)
	}
}

func TestAuthorize_SurfacesSinkStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", "").Authorize(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusForbidden || se.Body != "bad key" {
		t.Fatalf("err=%v", err)
	}
}

func TestWriteMiddleware_OnlyWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &sink{}
	srv := s.server(t)
	defer srv.Close()

	r := gin.New()
	r.Use(WriteMiddleware(NewClient(srv.URL, "k", "dealflow-test"), nil))
	r.GET("/api/deals", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/deals/:id/archive", func(c *gin.Context) { c.Status(http.StatusConflict) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/deals", nil),
		httptest.NewRequest(http.MethodPost, "/api/deals/d-1/archive", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) != 1 {
		t.Fatalf("records=%d", len(s.records))
	}
	rec := s.records[0]
	if rec.Level != "warn" || rec.Agent != "dealflow-test" || rec.Details["deal_id"] != "d-1" {
		t.Fatalf("rec=%+v", rec)
	}
}
