package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dealflow/internal/audit"
	"dealflow/internal/portfolio"
	"dealflow/internal/stage"
)

// InsightsSource is satisfied by *portfolio.Aggregator.
type InsightsSource interface {
	Compute(ctx context.Context) (*portfolio.Insights, error)
}

// DigestService computes portfolio insights on a schedule and ships a compact
// digest to the audit sink.
type DigestService struct {
	Insights InsightsSource
	Sink     *audit.Client
	Logger   *zap.Logger
	TopN     int
}

func (s *DigestService) RunOnce(ctx context.Context) error {
	if s == nil || s.Insights == nil {
		return nil
	}
	ins, err := s.Insights.Compute(ctx)
	if err != nil {
		return fmt.Errorf("compute insights: %w", err)
	}
	details := Digest(ins, s.TopN)
	if s.Sink != nil {
		if err := s.Sink.Send(ctx, audit.Record{Action: "dealflow_portfolio_digest", Level: "info", Details: details}); err != nil {
			return fmt.Errorf("ship digest: %w", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("portfolio digest",
			zap.Int("deals", ins.Concentration.TotalDeals),
			zap.Int("systemic_risks", len(ins.SystemicRisks)),
		)
	}
	return nil
}

// Job adapts RunOnce to the cron runner; failures are logged.
func (s *DigestService) Job(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
		s.Logger.Warn("portfolio digest failed", zap.Error(err))
	}
}

// Digest flattens insights into audit record details.
func Digest(ins *portfolio.Insights, topN int) map[string]any {
	if topN <= 0 {
		topN = 3
	}
	names := func(ds []stage.DealSummary) []string {
		out := make([]string, 0, topN)
		for i, d := range ds {
			if i >= topN {
				break
			}
			out = append(out, d.Name)
		}
		return out
	}
	return map[string]any{
		"total_deals":     ins.Concentration.TotalDeals,
		"top_overall":     names(ins.TopOverall),
		"top_levered_irr": names(ins.TopLeveredIRR),
		"systemic_risks":  ins.SystemicRisks,
		"summary":         ins.Summary,
		"generated_at":    ins.GeneratedAt,
	}
}
