package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"dealflow/internal/apiclient"
)

func newTools(t *testing.T, h http.HandlerFunc) *Tools {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Tools{API: apiclient.New(srv.URL, 0)}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	tc, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func writeEnvelope(w http.ResponseWriter, status int, data any, meta map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	msg := "ok"
	if status >= 300 {
		msg = "failed"
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"code": status, "message": msg, "data": data, "meta": meta})
}

func TestRunStage_SendsUnderwriteAssumptions(t *testing.T) {
	tools := newTools(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/deals/d1/underwrite", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assumptions, _ := body["assumptions"].(map[string]any)
		require.InDelta(t, 0.55, assumptions["ltv"], 1e-9)
		require.EqualValues(t, 10, assumptions["hold_period_years"])
		_, hasRate := assumptions["interest_rate"]
		require.False(t, hasRate)
		writeEnvelope(w, http.StatusOK, map[string]any{"stage": "underwrite", "deal_id": "d1", "status": "underwritten"}, nil)
	})

	res, err := tools.handleRunStage(context.Background(), callRequest(map[string]any{
		"deal_id":           "d1",
		"stage":             "underwrite",
		"ltv":               0.55,
		"hold_period_years": 10,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	require.Contains(t, resultText(t, res), `"underwritten"`)
}

func TestRunStage_RejectsUnknownStage(t *testing.T) {
	tools := newTools(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	res, err := tools.handleRunStage(context.Background(), callRequest(map[string]any{"deal_id": "d1", "stage": "appraise"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestGetDeal_SurfacesErrorKind(t *testing.T) {
	tools := newTools(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil, map[string]any{"kind": "not_found"})
	})
	res, err := tools.handleGetDeal(context.Background(), callRequest(map[string]any{"deal_id": "missing"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "not_found")
}

func TestGetMemo_SelectsVersion(t *testing.T) {
	tools := newTools(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/deals/d1/memos", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []map[string]any{
			{"deal_id": "d1", "version": 2, "body": "second", "recommendation": "approve"},
			{"deal_id": "d1", "version": 1, "body": "first", "recommendation": "decline"},
		}, nil)
	})

	res, err := tools.handleGetMemo(context.Background(), callRequest(map[string]any{"deal_id": "d1"}))
	require.NoError(t, err)
	require.Contains(t, resultText(t, res), "second")

	res, err = tools.handleGetMemo(context.Background(), callRequest(map[string]any{"deal_id": "d1", "version": 1}))
	require.NoError(t, err)
	require.Contains(t, resultText(t, res), "recommendation decline")

	res, err = tools.handleGetMemo(context.Background(), callRequest(map[string]any{"deal_id": "d1", "version": 7}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestRunPipeline_PartialResultIsToolError(t *testing.T) {
	tools := newTools(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadGateway, nil, map[string]any{
			"kind":   "upstream_error",
			"run_id": "run-9",
			"result": map[string]any{"deal_id": "d1", "status": "ingested", "failed_stage": "enrich"},
		})
	})
	res, err := tools.handleRunPipeline(context.Background(), callRequest(map[string]any{"deal_id": "d1", "document": "OM"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	text := resultText(t, res)
	require.Contains(t, text, "run-9")
	require.Contains(t, text, `"failed_stage": "enrich"`)
}
