package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"dealflow/internal/apiclient"
	"dealflow/internal/logger"
	"dealflow/internal/models"
	"dealflow/internal/pipeline"
)

// Tools holds the dependencies shared by every tool handler.
type Tools struct {
	API    *apiclient.Client
	Logger *zap.Logger
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding result: %v", err))
	}
	return textResult(string(b))
}

// apiError turns an API failure into a tool error; the tool call itself
// still succeeds so the model can read the reason.
func (t *Tools) apiError(tool string, err error) *mcp.CallToolResult {
	logger.OrNop(t.Logger).Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Kind != "" {
		return errorResult(fmt.Sprintf("Error (%s): %s", apiErr.Kind, apiErr.Message))
	}
	return errorResult(fmt.Sprintf("Error: %v", err))
}

func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}

func (t *Tools) handleListDeals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := t.API.ListDeals(ctx, apiclient.ListDealsRequest{
		Status: request.GetString("status", ""),
		Tenant: request.GetString("tenant", ""),
		Market: request.GetString("market", ""),
		Limit:  request.GetInt("limit", 20),
		Offset: request.GetInt("offset", 0),
	})
	if err != nil {
		return t.apiError("list_deals", err), nil
	}
	return jsonResult(map[string]any{"items": items, "total": total}), nil
}

func (t *Tools) handleGetDeal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deal_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return errorResult("Error: deal_id parameter is required"), nil
	}
	deal, err := t.API.GetDeal(ctx, id)
	if err != nil {
		return t.apiError("get_deal", err), nil
	}
	return jsonResult(deal), nil
}

func (t *Tools) handleCreateDeal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return errorResult("Error: name parameter is required"), nil
	}
	req := apiclient.CreateDealRequest{Name: name, SourceKind: request.GetString("source_kind", "")}
	if u := strings.TrimSpace(request.GetString("source_url", "")); u != "" {
		req.SourceURL = &u
	}
	deal, err := t.API.CreateDeal(ctx, req)
	if err != nil {
		return t.apiError("create_deal", err), nil
	}
	return jsonResult(deal), nil
}

func (t *Tools) handleArchiveDeal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deal_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return errorResult("Error: deal_id parameter is required"), nil
	}
	deal, err := t.API.ArchiveDeal(ctx, id)
	if err != nil {
		return t.apiError("archive_deal", err), nil
	}
	return jsonResult(deal), nil
}

func (t *Tools) handleRunStage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deal_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return errorResult("Error: deal_id parameter is required"), nil
	}
	st, ok := pipeline.ParseStage(request.GetString("stage", ""))
	if !ok {
		return errorResult("Error: stage must be one of ingest, enrich, underwrite, memo, explain"), nil
	}
	in := pipeline.StageInput{
		Document:      request.GetString("document", ""),
		PurchasePrice: optionalFloat(request, "purchase_price"),
	}
	in.Assumptions.LTV = optionalFloat(request, "ltv")
	in.Assumptions.InterestRate = optionalFloat(request, "interest_rate")
	in.Assumptions.ExitCapRate = optionalFloat(request, "exit_cap_rate")
	if _, ok := request.GetArguments()["hold_period_years"]; ok {
		hold := request.GetInt("hold_period_years", 0)
		in.Assumptions.HoldYears = &hold
	}

	out, err := t.API.RunStage(ctx, id, st, &in)
	if err != nil {
		return t.apiError("run_stage", err), nil
	}
	if out.Memo != nil {
		return textResult(memoMarkdown(out.Memo)), nil
	}
	return jsonResult(out), nil
}

func (t *Tools) handleRunPipeline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deal_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return errorResult("Error: deal_id parameter is required"), nil
	}
	in := pipeline.StageInput{
		Document:      request.GetString("document", ""),
		PurchasePrice: optionalFloat(request, "purchase_price"),
	}
	res, runID, err := t.API.RunPipeline(ctx, id, in)
	if err != nil {
		if res == nil {
			return t.apiError("run_pipeline", err), nil
		}
		logger.OrNop(t.Logger).Warn("pipeline stopped", zap.String("deal_id", id), zap.String("stage", string(res.FailedStage)), zap.Error(err))
		r := jsonResult(map[string]any{"run_id": runID, "result": res})
		r.IsError = true
		return r, nil
	}
	return jsonResult(map[string]any{"run_id": runID, "result": res}), nil
}

func (t *Tools) handleGetMemo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("deal_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return errorResult("Error: deal_id parameter is required"), nil
	}
	memos, err := t.API.Memos(ctx, id)
	if err != nil {
		return t.apiError("get_memo", err), nil
	}
	if len(memos) == 0 {
		return errorResult("Error: deal has no memo yet"), nil
	}
	version := request.GetInt("version", 0)
	if version <= 0 {
		return textResult(memoMarkdown(&memos[0])), nil
	}
	for i := range memos {
		if memos[i].Version == version {
			return textResult(memoMarkdown(&memos[i])), nil
		}
	}
	return errorResult(fmt.Sprintf("Error: memo version %d not found", version)), nil
}

func (t *Tools) handlePortfolioInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ins, err := t.API.PortfolioInsights(ctx)
	if err != nil {
		return t.apiError("portfolio_insights", err), nil
	}
	return jsonResult(ins), nil
}

func (t *Tools) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil || strings.TrimSpace(runID) == "" {
		return errorResult("Error: run_id parameter is required"), nil
	}
	run, err := t.API.GetRun(ctx, runID)
	if err != nil {
		return t.apiError("get_pipeline_run", err), nil
	}
	return jsonResult(run), nil
}

func memoMarkdown(m *models.Memo) string {
	return fmt.Sprintf("<!-- memo v%d, recommendation %s -->\n\n%s", m.Version, m.Recommendation, m.Body)
}
