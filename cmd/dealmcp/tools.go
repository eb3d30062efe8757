package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools wires every tool definition to its API-backed handler.
func registerTools(s *server.MCPServer, t *Tools) {
	s.AddTool(createListDealsTool(), t.handleListDeals)
	s.AddTool(createGetDealTool(), t.handleGetDeal)
	s.AddTool(createCreateDealTool(), t.handleCreateDeal)
	s.AddTool(createArchiveDealTool(), t.handleArchiveDeal)
	s.AddTool(createRunStageTool(), t.handleRunStage)
	s.AddTool(createRunPipelineTool(), t.handleRunPipeline)
	s.AddTool(createGetMemoTool(), t.handleGetMemo)
	s.AddTool(createPortfolioInsightsTool(), t.handlePortfolioInsights)
	s.AddTool(createGetRunTool(), t.handleGetRun)
}

func createListDealsTool() mcp.Tool {
	return mcp.NewTool("list_deals",
		mcp.WithDescription("List deals newest first with optional status, tenant and submarket filters."),
		mcp.WithString("status", mcp.Description("One of draft, ingested, enriched, underwritten, memo_generated, archived")),
		mcp.WithString("tenant", mcp.Description("Case-insensitive tenant name substring")),
		mcp.WithString("market", mcp.Description("Case-insensitive submarket substring")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	)
}

func createGetDealTool() mcp.Tool {
	return mcp.NewTool("get_deal",
		mcp.WithDescription("Get a deal with its property, lease, enrichment, scores, financials and latest memo."),
		mcp.WithString("deal_id", mcp.Required(), mcp.Description("Deal id")),
	)
}

func createCreateDealTool() mcp.Tool {
	return mcp.NewTool("create_deal",
		mcp.WithDescription("Create a draft deal. Link deals need a listing URL."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deal name")),
		mcp.WithString("source_kind", mcp.Description("document (default), link or manual")),
		mcp.WithString("source_url", mcp.Description("Listing URL for link deals")),
	)
}

func createArchiveDealTool() mcp.Tool {
	return mcp.NewTool("archive_deal",
		mcp.WithDescription("Archive a deal. Archived deals reject further stages and leave portfolio insights."),
		mcp.WithString("deal_id", mcp.Required(), mcp.Description("Deal id")),
	)
}

func createRunStageTool() mcp.Tool {
	return mcp.NewTool("run_stage",
		mcp.WithDescription("Run one pipeline stage on a deal: ingest, enrich, underwrite, memo or explain."),
		mcp.WithString("deal_id", mcp.Required(), mcp.Description("Deal id")),
		mcp.WithString("stage", mcp.Required(), mcp.Description("ingest, enrich, underwrite, memo or explain")),
		mcp.WithString("document", mcp.Description("Document text for ingest")),
		mcp.WithNumber("purchase_price", mcp.Description("Purchase price override for underwrite")),
		mcp.WithNumber("ltv", mcp.Description("Loan-to-value for underwrite, e.g. 0.6")),
		mcp.WithNumber("interest_rate", mcp.Description("Interest rate for underwrite, e.g. 0.065")),
		mcp.WithNumber("exit_cap_rate", mcp.Description("Exit cap rate for underwrite, e.g. 0.07")),
		mcp.WithNumber("hold_period_years", mcp.Description("Hold period in years for underwrite")),
	)
}

func createRunPipelineTool() mcp.Tool {
	return mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run ingest, enrich, underwrite and memo in order. Stops at the first failed stage and reports what completed."),
		mcp.WithString("deal_id", mcp.Required(), mcp.Description("Deal id")),
		mcp.WithString("document", mcp.Description("Document text for ingest")),
		mcp.WithNumber("purchase_price", mcp.Description("Purchase price override")),
	)
}

func createGetMemoTool() mcp.Tool {
	return mcp.NewTool("get_memo",
		mcp.WithDescription("Get the latest investment memo for a deal as markdown, or a specific version."),
		mcp.WithString("deal_id", mcp.Required(), mcp.Description("Deal id")),
		mcp.WithNumber("version", mcp.Description("Memo version (default latest)")),
	)
}

func createPortfolioInsightsTool() mcp.Tool {
	return mcp.NewTool("portfolio_insights",
		mcp.WithDescription("Rankings, concentration statistics and systemic risks across all non-archived deals."),
	)
}

func createGetRunTool() mcp.Tool {
	return mcp.NewTool("get_pipeline_run",
		mcp.WithDescription("Get a recorded pipeline run by id."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id returned by run_pipeline")),
	)
}
