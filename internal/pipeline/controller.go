// Package pipeline sequences the stage executors for one deal, persists each
// stage's output with merge semantics and moves the deal status forward.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dealflow/internal/apperr"
	"dealflow/internal/models"
	"dealflow/internal/recommend"
	"dealflow/internal/repository"
	"dealflow/internal/stage"
)

// Fetcher turns a link deal's source URL into document text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Controller has no cross-run locking: two concurrent runs on one deal can
// interleave their writes.
type Controller struct {
	Repo    repository.DealRepository
	Stages  *stage.Executors
	Fetcher Fetcher
	Logger  *zap.Logger
}

func (c *Controller) log() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// RunStage runs one stage for dealID and persists its output.
func (c *Controller) RunStage(ctx context.Context, dealID string, st Stage, in StageInput) (*StageOutput, error) {
	return c.RunStageObserved(ctx, dealID, st, in, nil)
}

// RunStageObserved is RunStage with progress events delivered to obs.
func (c *Controller) RunStageObserved(ctx context.Context, dealID string, st Stage, in StageInput, obs Observer) (*StageOutput, error) {
	start := time.Now()
	emit(obs, Event{Type: EventStageStarted, DealID: dealID, Stage: st, At: start.UTC()})
	out, err := c.runStage(ctx, dealID, st, in)
	elapsed := time.Since(start)
	if err != nil {
		emit(obs, Event{
			Type: EventStageFailed, DealID: dealID, Stage: st, At: time.Now().UTC(),
			ElapsedMS: elapsed.Milliseconds(), ErrorKind: apperr.KindOf(err), Error: err.Error(),
		})
		c.log().Warn("stage failed",
			zap.String("deal_id", dealID),
			zap.String("stage", string(st)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}
	emit(obs, Event{
		Type: EventStageCompleted, DealID: dealID, Stage: st, At: time.Now().UTC(),
		ElapsedMS: elapsed.Milliseconds(), Output: out,
	})
	c.log().Info("stage completed",
		zap.String("deal_id", dealID),
		zap.String("stage", string(st)),
		zap.String("status", string(out.Status)),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

// RunFullPipeline runs ingest, enrich, underwrite and memo in order. It stops
// at the first failure; stages that already succeeded keep their writes and
// status. The result is returned on failure too.
func (c *Controller) RunFullPipeline(ctx context.Context, dealID string, in StageInput, obs Observer) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{DealID: dealID, Stages: make([]StageTiming, 0, len(FullPipeline))}
	defer func() {
		result.TotalElapsedMS = time.Since(start).Milliseconds()
	}()

	for _, st := range FullPipeline {
		stageStart := time.Now()
		out, err := c.RunStageObserved(ctx, dealID, st, in, obs)
		timing := StageTiming{Stage: st, ElapsedMS: time.Since(stageStart).Milliseconds(), Succeeded: err == nil}
		if err != nil {
			timing.Error = err.Error()
			result.Stages = append(result.Stages, timing)
			result.FailedStage = st
			result.ErrorKind = apperr.KindOf(err)
			result.Error = err.Error()
			if result.Status == "" {
				if deal, gerr := c.Repo.GetDeal(ctx, dealID); gerr == nil && deal != nil {
					result.Status = deal.Status
				}
			}
			return result, err
		}
		result.Stages = append(result.Stages, timing)
		result.absorb(out)
	}
	return result, nil
}

func (c *Controller) runStage(ctx context.Context, dealID string, st Stage, in StageInput) (*StageOutput, error) {
	if c == nil || c.Repo == nil {
		return nil, apperr.ServiceUnavailable("deal store is not configured")
	}
	deal, err := c.Repo.GetDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("load deal: %w", err)
	}
	if deal == nil {
		return nil, apperr.NotFound("deal %s not found", dealID)
	}
	if deal.Status == models.DealStatusArchived {
		return nil, apperr.PreconditionFailed("deal %s is archived", dealID)
	}

	out := &StageOutput{Stage: st, DealID: deal.ID}
	switch st {
	case StageIngest:
		err = c.ingest(ctx, deal, in, out)
	case StageEnrich:
		err = c.enrich(ctx, deal, out)
	case StageUnderwrite:
		err = c.underwrite(ctx, deal, in, out)
	case StageMemo:
		err = c.memo(ctx, deal, out)
	case StageExplain:
		err = c.explain(ctx, deal, out)
	default:
		err = apperr.Validation("unknown stage %q", st)
	}
	if err != nil {
		return nil, err
	}

	out.Status = deal.Status
	if target, ok := st.target(); ok && deal.Status.CanAdvanceTo(target) {
		if err := c.Repo.UpdateDealStatus(ctx, deal.ID, target); err != nil {
			return nil, fmt.Errorf("advance status to %s: %w", target, err)
		}
		out.Status = target
	}
	return out, nil
}

func (c *Controller) ingest(ctx context.Context, deal *models.Deal, in StageInput, out *StageOutput) error {
	parseIn := stage.ParseInput{Document: in.Document, Manual: in.Manual}
	if parseIn.Manual == nil && strings.TrimSpace(parseIn.Document) == "" &&
		deal.SourceKind == models.SourceLink && deal.SourceURL != nil {
		if c.Fetcher == nil {
			return apperr.ServiceUnavailable("link fetching is not configured")
		}
		text, err := c.Fetcher.Fetch(ctx, *deal.SourceURL)
		if err != nil {
			return err
		}
		parseIn.Document = text
	}
	facts, err := c.Stages.Parse(ctx, parseIn)
	if err != nil {
		return err
	}
	if err := c.writeConcurrently(ctx,
		func(ctx context.Context) error { return c.Repo.UpsertPropertyAttributes(ctx, facts.Property(deal.ID)) },
		func(ctx context.Context) error { return c.Repo.UpsertLeaseTerms(ctx, facts.Lease(deal.ID)) },
	); err != nil {
		return fmt.Errorf("persist parsed facts: %w", err)
	}
	out.Parsed = &facts
	return nil
}

func (c *Controller) enrich(ctx context.Context, deal *models.Deal, out *StageOutput) error {
	prop, err := c.Repo.GetPropertyAttributes(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load property: %w", err)
	}
	lease, err := c.Repo.GetLeaseTerms(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load lease: %w", err)
	}
	if prop == nil && lease == nil {
		return apperr.PreconditionFailed("enrich requires property attributes or lease terms; run ingest first")
	}
	facts, err := c.Stages.Enrich(ctx, stage.EnrichInputFrom(prop, lease))
	if err != nil {
		return err
	}
	writes := []func(context.Context) error{
		func(ctx context.Context) error { return c.Repo.UpsertEnrichment(ctx, facts.Model(deal.ID)) },
	}
	if geo := facts.Geocode(deal.ID); geo != nil {
		writes = append(writes, func(ctx context.Context) error { return c.Repo.UpsertPropertyAttributes(ctx, geo) })
	}
	if err := c.writeConcurrently(ctx, writes...); err != nil {
		return fmt.Errorf("persist enrichment: %w", err)
	}
	out.Enrichment = &facts
	return nil
}

func (c *Controller) underwrite(ctx context.Context, deal *models.Deal, in StageInput, out *StageOutput) error {
	prop, err := c.Repo.GetPropertyAttributes(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load property: %w", err)
	}
	lease, err := c.Repo.GetLeaseTerms(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load lease: %w", err)
	}
	enr, err := c.Repo.GetEnrichment(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load enrichment: %w", err)
	}
	if prop == nil && lease == nil {
		return apperr.PreconditionFailed("underwrite requires property attributes or lease terms; run ingest first")
	}
	if enr == nil {
		return apperr.PreconditionFailed("underwrite requires enrichment; run enrich first")
	}
	res, err := c.Stages.Underwrite(ctx, stage.UnderwriteInput{
		Property:      prop,
		Lease:         lease,
		Enrichment:    enr,
		PurchasePrice: in.PurchasePrice,
		Assumptions:   in.Assumptions,
	})
	if err != nil {
		return err
	}
	scores := res.Scores
	scores.DealID = deal.ID
	scores.ResetExplanations = true
	fin := res.Financials
	fin.DealID = deal.ID
	if err := c.writeConcurrently(ctx,
		func(ctx context.Context) error { return c.Repo.UpsertScores(ctx, &scores) },
		func(ctx context.Context) error { return c.Repo.UpsertFinancials(ctx, &fin) },
	); err != nil {
		return fmt.Errorf("persist underwriting: %w", err)
	}
	out.Underwriting = &res
	return nil
}

func (c *Controller) memo(ctx context.Context, deal *models.Deal, out *StageOutput) error {
	full, err := c.Repo.GetCompleteDeal(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load deal record: %w", err)
	}
	if full == nil {
		return apperr.NotFound("deal %s not found", deal.ID)
	}
	if full.Scores == nil || full.Financials == nil {
		return apperr.PreconditionFailed("memo requires scores and financials; run underwrite first")
	}
	res, err := c.Stages.Memo(ctx, full)
	if err != nil {
		return err
	}
	memo := &models.Memo{
		DealID:         deal.ID,
		Body:           res.Body,
		Recommendation: recommend.Extract(res.Body),
		Model:          res.Model,
	}
	if err := c.Repo.CreateMemo(ctx, memo); err != nil {
		return fmt.Errorf("persist memo: %w", err)
	}
	out.Memo = memo
	return nil
}

func (c *Controller) explain(ctx context.Context, deal *models.Deal, out *StageOutput) error {
	full, err := c.Repo.GetCompleteDeal(ctx, deal.ID)
	if err != nil {
		return fmt.Errorf("load deal record: %w", err)
	}
	if full == nil {
		return apperr.NotFound("deal %s not found", deal.ID)
	}
	if full.Scores == nil {
		return apperr.PreconditionFailed("explain requires scores; run underwrite first")
	}
	res, err := c.Stages.Explain(ctx, full)
	if err != nil {
		return err
	}
	scores := *full.Scores
	scores.Explanations = res.Model()
	if err := c.Repo.UpsertScores(ctx, &scores); err != nil {
		return fmt.Errorf("persist explanations: %w", err)
	}
	out.Explanations = &res
	return nil
}

// writeConcurrently issues the writes of one stage in parallel and waits for
// all of them. Any failure fails the stage; writes that succeeded are kept.
func (c *Controller) writeConcurrently(ctx context.Context, writes ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range writes {
		g.Go(func() error { return w(gctx) })
	}
	return g.Wait()
}

func emit(obs Observer, ev Event) {
	if obs != nil {
		obs(ev)
	}
}
