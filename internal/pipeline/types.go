package pipeline

import (
	"time"

	"dealflow/internal/apperr"
	"dealflow/internal/models"
	"dealflow/internal/stage"
	"dealflow/internal/underwriting"
)

// Stage names a controller step. Ingest runs the parse executor.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageEnrich     Stage = "enrich"
	StageUnderwrite Stage = "underwrite"
	StageMemo       Stage = "memo"
	StageExplain    Stage = "explain"
)

// FullPipeline is the fixed order RunFullPipeline executes.
var FullPipeline = []Stage{StageIngest, StageEnrich, StageUnderwrite, StageMemo}

func ParseStage(raw string) (Stage, bool) {
	switch s := Stage(raw); s {
	case StageIngest, StageEnrich, StageUnderwrite, StageMemo, StageExplain:
		return s, true
	}
	return "", false
}

// target is the status a successful stage moves the deal to. Explain does not
// move the deal.
func (s Stage) target() (models.DealStatus, bool) {
	switch s {
	case StageIngest:
		return models.DealStatusIngested, true
	case StageEnrich:
		return models.DealStatusEnriched, true
	case StageUnderwrite:
		return models.DealStatusUnderwritten, true
	case StageMemo:
		return models.DealStatusMemoGenerated, true
	}
	return "", false
}

// StageInput carries the caller-supplied data a stage may use. Each stage
// reads only its own fields.
type StageInput struct {
	Document      string                   `json:"document,omitempty"`
	Manual        *stage.ParsedFacts       `json:"manual_data,omitempty"`
	PurchasePrice *float64                 `json:"purchase_price,omitempty"`
	Assumptions   underwriting.Assumptions `json:"assumptions"`
}

type StageOutput struct {
	Stage        Stage                     `json:"stage"`
	DealID       string                    `json:"deal_id"`
	Status       models.DealStatus         `json:"status"`
	Parsed       *stage.ParsedFacts        `json:"parsed,omitempty"`
	Enrichment   *stage.EnrichmentFacts    `json:"enrichment,omitempty"`
	Underwriting *stage.UnderwritingResult `json:"underwriting,omitempty"`
	Memo         *models.Memo              `json:"memo,omitempty"`
	Explanations *stage.Explanations       `json:"explanations,omitempty"`
}

type StageTiming struct {
	Stage     Stage  `json:"stage"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// PipelineResult is returned for both successful and aborted runs. On abort it
// holds everything up to the failing stage.
type PipelineResult struct {
	DealID         string                    `json:"deal_id"`
	Status         models.DealStatus         `json:"status"`
	Parsed         *stage.ParsedFacts        `json:"parsed,omitempty"`
	Enrichment     *stage.EnrichmentFacts    `json:"enrichment,omitempty"`
	Underwriting   *stage.UnderwritingResult `json:"underwriting,omitempty"`
	Memo           *models.Memo              `json:"memo,omitempty"`
	Stages         []StageTiming             `json:"stages"`
	TotalElapsedMS int64                     `json:"total_elapsed_ms"`
	FailedStage    Stage                     `json:"failed_stage,omitempty"`
	ErrorKind      apperr.Kind               `json:"error_kind,omitempty"`
	Error          string                    `json:"error,omitempty"`
}

func (r *PipelineResult) absorb(out *StageOutput) {
	if out == nil {
		return
	}
	r.Status = out.Status
	switch {
	case out.Parsed != nil:
		r.Parsed = out.Parsed
	case out.Enrichment != nil:
		r.Enrichment = out.Enrichment
	case out.Underwriting != nil:
		r.Underwriting = out.Underwriting
	case out.Memo != nil:
		r.Memo = out.Memo
	}
}

type EventType string

const (
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageFailed    EventType = "stage_failed"
)

type Event struct {
	Type      EventType    `json:"type"`
	DealID    string       `json:"deal_id"`
	Stage     Stage        `json:"stage"`
	At        time.Time    `json:"at"`
	ElapsedMS int64        `json:"elapsed_ms,omitempty"`
	ErrorKind apperr.Kind  `json:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty"`
	Output    *StageOutput `json:"output,omitempty"`
}

// Observer receives stage progress events synchronously on the calling
// goroutine. It must not block for long.
type Observer func(Event)
