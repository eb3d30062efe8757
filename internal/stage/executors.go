// Package stage holds the six stage executors. Each renders its prompt, makes
// at most one completion call and validates the reply into the stage's output
// shape. Executors keep no state between calls.
package stage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"dealflow/internal/apperr"
	"dealflow/internal/llm"
	"dealflow/internal/models"
	"dealflow/internal/prompt"
	"dealflow/internal/repository"
	"dealflow/internal/underwriting"
)

type Executors struct {
	LLM    llm.Completer
	Logger *zap.Logger
}

func (e *Executors) log() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Executors) complete(ctx context.Context, st prompt.Stage, payload any) (string, error) {
	if e == nil || e.LLM == nil {
		return "", apperr.ServiceUnavailable("completion service is not configured")
	}
	req, err := prompt.Render(st, payload)
	if err != nil {
		return "", err
	}
	return e.LLM.Complete(llm.WithStage(ctx, string(st)), req, prompt.RoleHint(st))
}

// Parse extracts facts from a document. Manual facts are validated and
// returned without a completion call.
func (e *Executors) Parse(ctx context.Context, in ParseInput) (ParsedFacts, error) {
	if in.Manual != nil {
		if err := validateParsed(*in.Manual); err != nil {
			return ParsedFacts{}, apperr.Validation("manual_data: %v", err)
		}
		e.log().Debug("parse: manual facts supplied, skipping completion")
		return *in.Manual, nil
	}
	doc := strings.TrimSpace(in.Document)
	if doc == "" {
		return ParsedFacts{}, apperr.Validation("document or manual_data is required")
	}
	raw, err := e.complete(ctx, prompt.StageParse, doc)
	if err != nil {
		return ParsedFacts{}, err
	}
	facts, err := llm.ParseStructured[ParsedFacts](raw)
	if err != nil {
		return ParsedFacts{}, err
	}
	if err := validateParsed(facts); err != nil {
		return ParsedFacts{}, apperr.Malformed(err, "parse stage returned invalid facts")
	}
	return facts, nil
}

func (e *Executors) Enrich(ctx context.Context, in EnrichInput) (EnrichmentFacts, error) {
	raw, err := e.complete(ctx, prompt.StageEnrich, in)
	if err != nil {
		return EnrichmentFacts{}, err
	}
	facts, err := llm.ParseStructured[EnrichmentFacts](raw)
	if err != nil {
		return EnrichmentFacts{}, err
	}
	if err := validateEnrichment(facts); err != nil {
		return EnrichmentFacts{}, apperr.Malformed(err, "enrich stage returned invalid facts")
	}
	return facts, nil
}

type scoreResponse struct {
	Location     *float64 `json:"location_score"`
	TenantCredit *float64 `json:"tenant_credit_score"`
	Downside     *float64 `json:"downside_score"`
	MarketDepth  *float64 `json:"market_depth_score"`
	RiskFlags    []string `json:"risk_flags"`
}

// Underwrite projects the financials locally and asks the completion service
// for the four component scores. The overall score is always recomputed here.
func (e *Executors) Underwrite(ctx context.Context, in UnderwriteInput) (UnderwritingResult, error) {
	if err := in.Assumptions.Validate(); err != nil {
		return UnderwritingResult{}, err
	}
	fin := underwriting.Project(projectionInputs(in))

	payload := struct {
		UnderwriteInput
		Financials models.Financials `json:"financials"`
	}{in, fin}
	raw, err := e.complete(ctx, prompt.StageUnderwrite, payload)
	if err != nil {
		return UnderwritingResult{}, err
	}
	resp, err := llm.ParseStructured[scoreResponse](raw)
	if err != nil {
		return UnderwritingResult{}, err
	}
	components := map[string]*float64{
		"location_score":      resp.Location,
		"tenant_credit_score": resp.TenantCredit,
		"downside_score":      resp.Downside,
		"market_depth_score":  resp.MarketDepth,
	}
	for name, v := range components {
		if v == nil {
			return UnderwritingResult{}, apperr.Malformed(nil, "underwrite stage omitted %s", name)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return UnderwritingResult{}, apperr.Malformed(nil, "underwrite stage returned non-finite %s", name)
		}
	}
	scores := models.Scores{
		Location:     underwriting.ClampScore(*resp.Location),
		TenantCredit: underwriting.ClampScore(*resp.TenantCredit),
		Downside:     underwriting.ClampScore(*resp.Downside),
		MarketDepth:  underwriting.ClampScore(*resp.MarketDepth),
		RiskFlags:    cleanFlags(resp.RiskFlags),
	}
	scores.Overall = underwriting.OverallScore(scores.Location, scores.TenantCredit, scores.Downside, scores.MarketDepth)
	return UnderwritingResult{Scores: scores, Financials: fin}, nil
}

func projectionInputs(in UnderwriteInput) underwriting.Inputs {
	out := underwriting.Inputs{PurchasePrice: in.PurchasePrice, Assumptions: in.Assumptions}
	if out.PurchasePrice == nil && in.Property != nil {
		out.PurchasePrice = in.Property.PurchasePrice
	}
	if in.Lease != nil {
		out.BaseRentAnnual = in.Lease.BaseRentAnnual
		out.Escalations = in.Lease.Escalations
	}
	return out
}

// Memo returns the markdown memo unparsed.
func (e *Executors) Memo(ctx context.Context, deal *repository.CompleteDeal) (MemoResult, error) {
	raw, err := e.complete(ctx, prompt.StageMemo, deal)
	if err != nil {
		return MemoResult{}, err
	}
	body := strings.TrimSpace(raw)
	if body == "" {
		return MemoResult{}, apperr.Malformed(nil, "memo stage returned an empty body")
	}
	return MemoResult{Body: body, Model: e.LLM.Model()}, nil
}

func (e *Executors) Explain(ctx context.Context, deal *repository.CompleteDeal) (Explanations, error) {
	if deal == nil || deal.Scores == nil {
		return Explanations{}, apperr.PreconditionFailed("explain requires scores")
	}
	raw, err := e.complete(ctx, prompt.StageExplain, deal)
	if err != nil {
		return Explanations{}, err
	}
	out, err := llm.ParseStructured[Explanations](raw)
	if err != nil {
		return Explanations{}, err
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"overall", &out.Overall},
		{"location", &out.Location},
		{"tenant_credit", &out.TenantCredit},
		{"downside", &out.Downside},
		{"market_depth", &out.MarketDepth},
	} {
		*f.v = strings.TrimSpace(*f.v)
		if *f.v == "" {
			return Explanations{}, apperr.Malformed(nil, "explain stage omitted the %s explanation", f.name)
		}
	}
	return out, nil
}

func (e *Executors) PortfolioAnalyze(ctx context.Context, req PortfolioRequest) (PortfolioAnalysis, error) {
	raw, err := e.complete(ctx, prompt.StagePortfolio, req)
	if err != nil {
		return PortfolioAnalysis{}, err
	}
	out, err := llm.ParseStructured[PortfolioAnalysis](raw)
	if err != nil {
		return PortfolioAnalysis{}, err
	}
	out.SystemicRisks = cleanFlags(out.SystemicRisks)
	return out, nil
}

func validateParsed(p ParsedFacts) error {
	for name, v := range map[string]*float64{
		"building_sqft":    p.BuildingSqft,
		"land_acres":       p.LandAcres,
		"clear_height_ft":  p.ClearHeightFt,
		"base_rent_annual": p.BaseRentAnnual,
		"rent_per_sqft":    p.RentPerSqft,
		"purchase_price":   p.PurchasePrice,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s is not a finite number", name)
		}
	}
	for name, v := range map[string]*string{"lease_start": p.LeaseStart, "lease_end": p.LeaseEnd} {
		if v == nil {
			continue
		}
		if _, err := time.Parse("2006-01-02", *v); err != nil {
			return fmt.Errorf("%s %q is not YYYY-MM-DD", name, *v)
		}
	}
	for _, esc := range p.Escalations {
		if math.IsNaN(esc.BumpPercent) || math.IsInf(esc.BumpPercent, 0) {
			return fmt.Errorf("escalation year %d bump is not a finite number", esc.Year)
		}
	}
	return nil
}

func validateEnrichment(e EnrichmentFacts) error {
	if e.MarketRank != nil && (*e.MarketRank < 1 || *e.MarketRank > 100) {
		return fmt.Errorf("market_rank %d outside 1-100", *e.MarketRank)
	}
	if e.Latitude != nil && (*e.Latitude < -90 || *e.Latitude > 90) {
		return fmt.Errorf("latitude %v out of range", *e.Latitude)
	}
	if e.Longitude != nil && (*e.Longitude < -180 || *e.Longitude > 180) {
		return fmt.Errorf("longitude %v out of range", *e.Longitude)
	}
	return nil
}

func cleanFlags(items []string) []string {
	out := make([]string, 0, len(items))
	for _, raw := range items {
		if v := strings.TrimSpace(raw); v != "" {
			out = append(out, v)
		}
	}
	return out
}
