package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"dealflow/docs"
	"dealflow/internal/apperr"
	"dealflow/internal/config"
	"dealflow/internal/llm/llmtest"
	"dealflow/internal/pipeline"
	"dealflow/internal/portfolio"
	"dealflow/internal/prompt"
	"dealflow/internal/repository/memory"
	"dealflow/internal/runstore"
	"dealflow/internal/service"
	"dealflow/internal/stage"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func scriptedFake() *llmtest.Fake {
	return llmtest.New().
		Reply(string(prompt.StageParse), `{"tenant_name":"Acme","base_rent_annual":500000,"purchase_price":8000000}`).
		Reply(string(prompt.StageEnrich), `{"submarket":"DFW","credit_tier":"investment_grade"}`).
		Reply(string(prompt.StageUnderwrite), `{"location_score":70,"tenant_credit_score":80,"downside_score":50,"market_depth_score":60,"risk_flags":[]}`).
		Reply(string(prompt.StageMemo), "## Recommendation\nDecline.").
		Reply(string(prompt.StagePortfolio), `{"systemic_risks":["single market"],"summary":"One deal."}`)
}

func newEngine(t *testing.T, fake *llmtest.Fake) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := memory.New()
	exec := &stage.Executors{LLM: fake}
	runs, err := runstore.New(config.RunStoreConfig{}, "")
	require.NoError(t, err)

	r := gin.New()
	(&HealthHandler{}).Register(r)
	(&DealHandler{Deals: &service.DealService{Repo: repo}}).Register(r)
	(&StageHandler{Pipeline: &pipeline.Controller{Repo: repo, Stages: exec}, Runs: runs}).Register(r)
	(&PortfolioHandler{Aggregator: &portfolio.Aggregator{Repo: repo, Stages: exec}}).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body=%s", w.Body.String())
	return w.Code, env
}

func createDeal(t *testing.T, r http.Handler) string {
	t.Helper()
	code, env := do(t, r, http.MethodPost, "/api/deals", map[string]any{"name": "Dallas DC"})
	require.Equal(t, http.StatusOK, code)
	var d struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d.ID
}

func TestDeals_CreateValidateList(t *testing.T) {
	r := newEngine(t, scriptedFake())
	code, env := do(t, r, http.MethodPost, "/api/deals", map[string]any{"name": "x", "source_kind": "link"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, string(apperr.KindValidation), env.Meta["kind"])

	createDeal(t, r)
	code, env = do(t, r, http.MethodGet, "/api/deals?limit=10", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, env.Meta["total"])

	code, _ = do(t, r, http.MethodGet, "/api/deals/missing", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestStages_ErrorMapping(t *testing.T) {
	fake := scriptedFake()
	r := newEngine(t, fake)
	id := createDeal(t, r)

	code, env := do(t, r, http.MethodPost, "/api/deals/"+id+"/underwrite", nil)
	require.Equal(t, http.StatusConflict, code, env.Message)

	code, _ = do(t, r, http.MethodPost, "/api/deals/missing/ingest", map[string]any{"document": "x"})
	require.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, http.MethodPost, "/api/deals/"+id+"/ingest", nil)
	require.Equal(t, http.StatusBadRequest, code)

	fake.Reply(string(prompt.StageParse), "no json here")
	code, env = do(t, r, http.MethodPost, "/api/deals/"+id+"/ingest", map[string]any{"document": "x"})
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, string(apperr.KindMalformedResponse), env.Meta["kind"])
}

func TestPipeline_RecordsRun(t *testing.T) {
	r := newEngine(t, scriptedFake())
	id := createDeal(t, r)

	code, env := do(t, r, http.MethodPost, "/api/deals/"+id+"/pipeline", map[string]any{"document": "OM"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var res pipeline.PipelineResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, "memo_generated", string(res.Status))
	require.Equal(t, "decline", string(res.Memo.Recommendation))
	runID, _ := env.Meta["run_id"].(string)
	require.NotEmpty(t, runID)

	code, env = do(t, r, http.MethodGet, "/api/pipeline-runs/"+runID, nil)
	require.Equal(t, http.StatusOK, code)
	var run runstore.Run
	require.NoError(t, json.Unmarshal(env.Data, &run))
	require.Equal(t, runstore.RunSucceeded, run.State)

	code, _ = do(t, r, http.MethodGet, "/api/pipeline-runs/nope", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, env = do(t, r, http.MethodGet, "/api/portfolio/insights", nil)
	require.Equal(t, http.StatusOK, code)
	var ins portfolio.Insights
	require.NoError(t, json.Unmarshal(env.Data, &ins))
	require.Equal(t, []string{"single market"}, ins.SystemicRisks)
}

func TestPipeline_FailureReturnsPartialResult(t *testing.T) {
	fake := scriptedFake().Fail(string(prompt.StageEnrich), apperr.Upstream(429, "slow down", errors.New("rate limited")))
	r := newEngine(t, fake)
	id := createDeal(t, r)

	code, env := do(t, r, http.MethodPost, "/api/deals/"+id+"/pipeline", map[string]any{"document": "OM"})
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, string(apperr.KindUpstream), env.Meta["kind"])
	result, _ := env.Meta["result"].(map[string]any)
	require.Equal(t, "enrich", result["failed_stage"])
	require.Equal(t, "ingested", result["status"])
}

func TestFail_UntypedErrorIsGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	fail(c, nil, errors.New("pq: connection refused to 10.0.0.5"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestStream_EmitsEventsThenResult(t *testing.T) {
	r := newEngine(t, scriptedFake())
	id := createDeal(t, r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/deals/" + id + "/pipeline/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, pipeline.StageInput{Document: "OM"}))

	events := 0
	for {
		var msg StreamMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == "event" {
			events++
			continue
		}
		require.Equal(t, "result", msg.Type)
		require.Empty(t, msg.Error)
		require.NotEmpty(t, msg.RunID)
		require.Equal(t, "memo_generated", string(msg.Result.Status))
		break
	}
	require.Equal(t, 8, events)
}

func TestStream_RejectsUntrustedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := memory.New()
	runs, err := runstore.New(config.RunStoreConfig{}, "")
	require.NoError(t, err)
	r := gin.New()
	(&DealHandler{Deals: &service.DealService{Repo: repo}}).Register(r)
	(&StageHandler{
		Pipeline:       &pipeline.Controller{Repo: repo, Stages: &stage.Executors{LLM: scriptedFake()}},
		Runs:           runs,
		AllowedOrigins: []string{"app.example.com"},
	}).Register(r)
	id := createDeal(t, r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/deals/" + id + "/pipeline/stream"

	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.test"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://app.example.com"}},
	})
	require.NoError(t, err)
	conn.CloseNow()
}

func TestCORS_OnlyTrustedOriginsGetCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"app.example.com", "*.dealflow.dev"}))
	r.GET("/api/deals", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name    string
		method  string
		origin  string
		allowed bool
		code    int
	}{
		{"exact host", http.MethodGet, "https://app.example.com", true, http.StatusOK},
		{"wildcard host", http.MethodGet, "https://staging.dealflow.dev", true, http.StatusOK},
		{"untrusted", http.MethodGet, "https://evil.test", false, http.StatusOK},
		{"no origin", http.MethodGet, "", false, http.StatusOK},
		{"preflight trusted", http.MethodOptions, "https://app.example.com", true, http.StatusNoContent},
		{"preflight untrusted", http.MethodOptions, "https://evil.test", false, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/deals", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.code, w.Code)
			if !tc.allowed {
				require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
				return
			}
			require.Equal(t, tc.origin, w.Header().Get("Access-Control-Allow-Origin"))
			require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			require.NotEqual(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSwaggerTemplate_DocumentsEveryRoute(t *testing.T) {
	r := newEngine(t, llmtest.New())
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	for _, route := range r.Routes() {
		p := strings.ReplaceAll(route.Path, ":id", "{id}")
		ops, ok := doc.Paths[p]
		require.True(t, ok, "swagger template is missing %s", p)
		_, ok = ops[strings.ToLower(route.Method)]
		require.True(t, ok, "swagger template is missing %s %s", route.Method, p)
	}
}
