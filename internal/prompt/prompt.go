// Package prompt renders the stage request sent to the completion service: a
// fixed instruction block per stage followed by the serialized payload.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Stage string

const (
	StageParse      Stage = "parse"
	StageEnrich     Stage = "enrich"
	StageUnderwrite Stage = "underwrite"
	StageMemo       Stage = "memo"
	StagePortfolio  Stage = "portfolio"
	StageExplain    Stage = "explain"
)

var stages = []Stage{StageParse, StageEnrich, StageUnderwrite, StageMemo, StagePortfolio, StageExplain}

func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// Render returns the instruction block for stage followed by payload. Strings
// are appended as-is; anything else is encoded as indented JSON. The payload
// is not validated.
func Render(stage Stage, payload any) (string, error) {
	tmpl, ok := templates[stage]
	if !ok {
		return "", fmt.Errorf("prompt: unknown stage %q", stage)
	}
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("prompt: encode %s payload: %w", stage, err)
		}
		data = string(raw)
	}
	var b strings.Builder
	b.Grow(len(tmpl) + len(data) + 2)
	b.WriteString(tmpl)
	b.WriteString("\n\n")
	b.WriteString(data)
	return b.String(), nil
}

// RoleHint is the system persona for stage.
func RoleHint(stage Stage) string {
	switch stage {
	case StageParse:
		return "You are a commercial real estate analyst who extracts facts from offering memoranda and lease abstracts. You answer with JSON only."
	case StageEnrich:
		return "You are a commercial real estate market researcher with knowledge of industrial submarkets and corporate credit. You answer with JSON only."
	case StageUnderwrite:
		return "You are a net-lease underwriter who scores acquisition risk. You answer with JSON only."
	case StageMemo:
		return "You are an investment committee analyst who writes concise, well-structured markdown memos."
	case StagePortfolio:
		return "You are a portfolio manager reviewing concentration and systemic risk across a pipeline of deals. You answer with JSON only."
	case StageExplain:
		return "You are an underwriter explaining risk scores to an investment committee. You answer with JSON only."
	default:
		return "You are a helpful commercial real estate analyst."
	}
}

var templates = map[Stage]string{
	StageParse: `PROPERTY EXTRACTION
Extract the property and lease facts from the document below.

Return a single JSON object with exactly these keys:
{
  "address": string|null,
  "tenant_name": string|null,
  "property_type": string|null,
  "building_sqft": number|null,
  "land_acres": number|null,
  "year_built": integer|null,
  "clear_height_ft": number|null,
  "dock_doors": integer|null,
  "drive_in_doors": integer|null,
  "lease_type": string|null,
  "lease_start": "YYYY-MM-DD"|null,
  "lease_end": "YYYY-MM-DD"|null,
  "base_rent_annual": number|null,
  "rent_per_sqft": number|null,
  "purchase_price": number|null,
  "escalations": [{"year": integer, "bump_percent": number}],
  "options": [{"type": string, "years": integer}]
}

Rules:
- Use null for any value you cannot extract with confidence. Never guess and never use 0 as a placeholder.
- Convert numbers to absolute units: "10,000 SF" is 10000, "$1.2M" is 1200000.
- Annualize rents quoted monthly. rent_per_sqft is annual rent per square foot.
- bump_percent is a percentage, so a 3% bump is 3.
- Dates use YYYY-MM-DD.
- Output JSON only, no commentary.

DOCUMENT:`,

	StageEnrich: `MARKET AND TENANT ENRICHMENT
Using the property facts below, estimate location, market and tenant context.

Return a single JSON object with exactly these keys:
{
  "latitude": number|null,
  "longitude": number|null,
  "submarket": string|null,
  "market_rank": integer|null,
  "tenant_industry": string|null,
  "tenant_size_bucket": "small"|"mid"|"large"|"enterprise"|null,
  "tenant_public": boolean|null,
  "credit_tier": "investment_grade"|"high_yield"|"unrated"|"distressed"|null
}

Rules:
- market_rank is 1 (strongest) to 100 (weakest) among US industrial markets.
- Geocode from the address when present. Use null when unsure.
- Output JSON only, no commentary.

PROPERTY:`,

	StageUnderwrite: `RISK SCORING
Score the acquisition risk of the deal below. Every score is 0 to 100 where higher is better.

Return a single JSON object with exactly these keys:
{
  "location_score": number,
  "tenant_credit_score": number,
  "downside_score": number,
  "market_depth_score": number,
  "risk_flags": [string]
}

Definitions:
- location_score: location criticality index (LCI). Access to labor, highways, ports and population.
- tenant_credit_score: tenant ability to pay through the lease term.
- downside_score: re-leasing prospects and residual value if the tenant leaves.
- market_depth_score: depth of buyer and tenant demand for this asset type in this submarket.
- risk_flags: short phrases naming concrete risks such as "lease expires within 3 years".

Do not compute financial returns. Output JSON only, no commentary.

DEAL:`,

	StageMemo: `INVESTMENT MEMO
Write an investment committee memo in markdown for the deal below. Use exactly these sections as level-two headings, in order:

## Overview
## Investment Thesis
## Key Metrics
(a markdown table with purchase price, NOI, cap rate, exit cap rate, levered IRR, unlevered IRR, minimum DSCR, cash-on-cash year 1 and equity multiple)
## Risk Summary
## Location Analysis
## Tenant Overview
## Property Overview
## Red Flags
## Recommendation

The Recommendation section must state exactly one of: "Approve", "Approve with conditions" or "Decline", followed by the reasoning. Use only facts from the data below. Write "n/a" for missing metrics.

DEAL:`,

	StagePortfolio: `PORTFOLIO REVIEW
Review the portfolio of deals below. Deterministic rankings and concentration statistics are already computed and included.

Analyze these dimensions explicitly:
- tenant concentration
- geographic concentration
- lease expiration clustering
- credit quality distribution

Return a single JSON object with exactly these keys:
{
  "systemic_risks": [string],
  "summary": string
}

Output JSON only, no commentary.

PORTFOLIO:`,

	StageExplain: `SCORE EXPLANATION
Explain the scores of the deal below to an investment committee. One or two sentences each, grounded in the deal data.

Return a single JSON object with exactly these keys:
{
  "overall": string,
  "location": string,
  "tenant_credit": string,
  "downside": string,
  "market_depth": string
}

Output JSON only, no commentary.

DEAL:`,
}
