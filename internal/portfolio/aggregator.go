// Package portfolio builds cross-deal insights: deterministic rankings and
// concentration statistics, plus a narrative review from the completion
// service.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dealflow/internal/repository"
	"dealflow/internal/stage"
)

const (
	defaultTopN = 5
	pageSize    = 500
)

type Insights struct {
	TopOverall    []stage.DealSummary `json:"top_overall"`
	TopLeveredIRR []stage.DealSummary `json:"top_levered_irr"`
	TopLocation   []stage.DealSummary `json:"top_location"`
	SystemicRisks []string            `json:"systemic_risks"`
	Summary       string              `json:"summary"`
	Concentration stage.Concentration `json:"concentration"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// Aggregator is stateless; every Compute call reloads the deals.
type Aggregator struct {
	Repo   repository.DealRepository
	Stages *stage.Executors
	Logger *zap.Logger
	TopN   int
}

func (a *Aggregator) Compute(ctx context.Context) (*Insights, error) {
	if a == nil || a.Repo == nil {
		return nil, fmt.Errorf("portfolio aggregator is not configured")
	}
	summaries, err := a.loadSummaries(ctx)
	if err != nil {
		return nil, err
	}
	topN := a.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	out := &Insights{
		TopOverall:    Rank(summaries, func(d stage.DealSummary) *float64 { return d.OverallScore }, topN),
		TopLeveredIRR: Rank(summaries, func(d stage.DealSummary) *float64 { return d.LeveredIRR }, topN),
		TopLocation:   Rank(summaries, func(d stage.DealSummary) *float64 { return d.LocationScore }, topN),
		SystemicRisks: []string{},
		Concentration: Concentrate(summaries),
		GeneratedAt:   time.Now().UTC(),
	}
	if len(summaries) == 0 {
		return out, nil
	}

	analysis, err := a.Stages.PortfolioAnalyze(ctx, stage.PortfolioRequest{
		Deals:         summaries,
		Concentration: out.Concentration,
	})
	if err != nil {
		return nil, err
	}
	out.SystemicRisks = analysis.SystemicRisks
	out.Summary = analysis.Summary
	if a.Logger != nil {
		a.Logger.Info("portfolio insights computed",
			zap.Int("deals", len(summaries)),
			zap.Int("systemic_risks", len(out.SystemicRisks)),
		)
	}
	return out, nil
}

func (a *Aggregator) loadSummaries(ctx context.Context) ([]stage.DealSummary, error) {
	asc := true
	params := repository.ListDealsParams{Limit: pageSize, ExcludeArchived: true, OrderBy: "created_at", Asc: &asc}
	out := make([]stage.DealSummary, 0)
	for {
		deals, err := a.Repo.ListDeals(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list deals: %w", err)
		}
		for _, d := range deals {
			full, err := a.Repo.GetCompleteDeal(ctx, d.ID)
			if err != nil {
				return nil, fmt.Errorf("load deal %s: %w", d.ID, err)
			}
			if full == nil {
				continue
			}
			out = append(out, Summarize(full))
		}
		if len(deals) < params.Limit {
			return out, nil
		}
		params.Offset += len(deals)
	}
}

// Summarize flattens a complete deal into the view the portfolio review uses.
func Summarize(full *repository.CompleteDeal) stage.DealSummary {
	s := stage.DealSummary{
		DealID: full.Deal.ID,
		Name:   full.Deal.Name,
		Status: string(full.Deal.Status),
	}
	if p := full.Property; p != nil {
		s.Address = p.Address
		s.PurchasePrice = p.PurchasePrice
	}
	if l := full.Lease; l != nil {
		s.TenantName = l.TenantName
		s.LeaseEnd = l.LeaseEnd
	}
	if e := full.Enrichment; e != nil {
		s.Submarket = e.Submarket
		s.CreditTier = e.CreditTier
	}
	if sc := full.Scores; sc != nil {
		overall, location := sc.Overall, sc.Location
		s.OverallScore = &overall
		s.LocationScore = &location
	}
	if f := full.Financials; f != nil {
		s.CapRate = f.CapRate
		s.LeveredIRR = f.LeveredIRR
		if f.PurchasePrice != nil {
			s.PurchasePrice = f.PurchasePrice
		}
	}
	return s
}

// Rank returns up to n deals ordered by metric descending. Deals without the
// metric are left out; ties break on name then id.
func Rank(deals []stage.DealSummary, metric func(stage.DealSummary) *float64, n int) []stage.DealSummary {
	ranked := make([]stage.DealSummary, 0, len(deals))
	for _, d := range deals {
		if metric(d) != nil {
			ranked = append(ranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := *metric(ranked[i]), *metric(ranked[j])
		if vi != vj {
			return vi > vj
		}
		if ranked[i].Name != ranked[j].Name {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].DealID < ranked[j].DealID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Concentrate computes the four concentration dimensions. Shares are
// fractions of all deals, so a dimension's shares can sum to less than one
// when some deals lack the field.
func Concentrate(deals []stage.DealSummary) stage.Concentration {
	total := len(deals)
	tenants := map[string]int{}
	submarkets := map[string]int{}
	tiers := map[string]int{}
	years := map[int]int{}
	for _, d := range deals {
		countKey(tenants, d.TenantName)
		countKey(submarkets, d.Submarket)
		countKey(tiers, d.CreditTier)
		if y, ok := leaseYear(d.LeaseEnd); ok {
			years[y]++
		}
	}
	out := stage.Concentration{
		TotalDeals:       total,
		Tenants:          shares(tenants, total),
		Submarkets:       shares(submarkets, total),
		CreditTiers:      shares(tiers, total),
		LeaseExpirations: make([]stage.YearCount, 0, len(years)),
	}
	for y, n := range years {
		out.LeaseExpirations = append(out.LeaseExpirations, stage.YearCount{Year: y, Count: n})
	}
	sort.Slice(out.LeaseExpirations, func(i, j int) bool {
		return out.LeaseExpirations[i].Year < out.LeaseExpirations[j].Year
	})
	return out
}

func countKey(m map[string]int, v *string) {
	if v == nil {
		return
	}
	if key := strings.TrimSpace(*v); key != "" {
		m[key]++
	}
}

func leaseYear(v *string) (int, bool) {
	if v == nil || len(*v) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi((*v)[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

func shares(counts map[string]int, total int) []stage.Share {
	out := make([]stage.Share, 0, len(counts))
	if total == 0 {
		return out
	}
	denom := decimal.NewFromInt(int64(total))
	for key, n := range counts {
		out = append(out, stage.Share{
			Key:   key,
			Count: n,
			Share: decimal.NewFromInt(int64(n)).DivRound(denom, 4).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
