package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dealflow/internal/apperr"
	"dealflow/internal/audit"
	"dealflow/internal/pipeline"
	"dealflow/internal/runstore"
)

type StageHandler struct {
	Pipeline *pipeline.Controller
	Runs     *runstore.Runs
	Audit    *audit.Client
	Logger   *zap.Logger
	// AllowedOrigins are host patterns accepted on the websocket handshake
	// besides the server's own host.
	AllowedOrigins []string
}

func (h *StageHandler) Register(r *gin.Engine) {
	g := r.Group("/api/deals/:id")
	g.POST("/ingest", h.stage(pipeline.StageIngest))
	g.POST("/enrich", h.stage(pipeline.StageEnrich))
	g.POST("/underwrite", h.stage(pipeline.StageUnderwrite))
	g.POST("/memo", h.stage(pipeline.StageMemo))
	g.POST("/explain", h.stage(pipeline.StageExplain))
	g.POST("/pipeline", h.runPipeline)
	g.GET("/pipeline/stream", h.stream)
	r.GET("/api/pipeline-runs/:id", h.getRun)
}

// bindInput decodes an optional JSON body; an empty body is a zero input.
func bindInput(c *gin.Context) (pipeline.StageInput, error) {
	var in pipeline.StageInput
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return in, nil
	}
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		return in, apperr.Validation("invalid body: %v", err)
	}
	return in, nil
}

// @Summary Run one pipeline stage
// @Description ingest takes document or manual_data; underwrite takes purchase_price and assumptions.
// @Tags stages
// @Accept json
// @Param id path string true "deal id"
// @Param body body pipeline.StageInput false "stage input"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/deals/{id}/ingest [post]
// @Router /api/deals/{id}/enrich [post]
// @Router /api/deals/{id}/underwrite [post]
// @Router /api/deals/{id}/memo [post]
// @Router /api/deals/{id}/explain [post]
func (h *StageHandler) stage(st pipeline.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := bindInput(c)
		if err != nil {
			fail(c, h.Logger, err)
			return
		}
		out, err := h.Pipeline.RunStage(c.Request.Context(), c.Param("id"), st, in)
		if err != nil {
			fail(c, h.Logger, err)
			return
		}
		Ok(c, out, nil)
	}
}

// @Summary Run the full pipeline
// @Description Runs ingest, enrich, underwrite and memo. On failure the partial result is returned in meta.
// @Tags stages
// @Accept json
// @Param id path string true "deal id"
// @Param body body pipeline.StageInput false "pipeline input"
// @Success 200 {object} apiResponse
// @Router /api/deals/{id}/pipeline [post]
func (h *StageHandler) runPipeline(c *gin.Context) {
	in, err := bindInput(c)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	ctx := c.Request.Context()
	dealID := c.Param("id")
	run, res, err := h.execute(ctx, dealID, in, nil)
	if err != nil {
		kind := apperr.KindOf(err)
		meta := map[string]any{"kind": kind, "result": res}
		if run != nil {
			meta["run_id"] = run.ID
		}
		if kind == apperr.KindUnknown {
			if h.Logger != nil {
				h.Logger.Error("pipeline failed", zap.String("deal_id", dealID), zap.Error(err))
			}
			Error(c, http.StatusInternalServerError, "internal error", meta)
			return
		}
		Error(c, StatusFor(kind), err.Error(), meta)
		return
	}
	meta := map[string]any{}
	if run != nil {
		meta["run_id"] = run.ID
	}
	Ok(c, res, meta)
}

// execute runs the pipeline and records the run. Run store failures are
// logged and never fail the request.
func (h *StageHandler) execute(ctx context.Context, dealID string, in pipeline.StageInput, obs pipeline.Observer) (*runstore.Run, *pipeline.PipelineResult, error) {
	var run *runstore.Run
	if h.Runs != nil {
		r, err := h.Runs.Start(ctx, dealID)
		if err != nil && h.Logger != nil {
			h.Logger.Warn("run record start failed", zap.Error(err))
		}
		run = r
	}
	res, runErr := h.Pipeline.RunFullPipeline(ctx, dealID, in, obs)
	if run != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if err := h.Runs.Finish(saveCtx, run, res, runErr); err != nil && h.Logger != nil {
			h.Logger.Warn("run record finish failed", zap.Error(err))
		}
		cancel()
	}
	details := map[string]any{"deal_id": dealID}
	if res != nil {
		details["status"] = res.Status
		details["total_elapsed_ms"] = res.TotalElapsedMS
		if res.FailedStage != "" {
			details["failed_stage"] = res.FailedStage
			details["error_kind"] = res.ErrorKind
		}
	}
	if runErr != nil {
		h.Audit.LogBestEffort("dealflow_pipeline_failed", "warn", details)
	} else {
		h.Audit.LogBestEffort("dealflow_pipeline_ok", "info", details)
	}
	return run, res, runErr
}

// @Summary Get a stored pipeline run
// @Tags stages
// @Param id path string true "run id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/pipeline-runs/{id} [get]
func (h *StageHandler) getRun(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusServiceUnavailable, "run store unavailable", nil)
		return
	}
	run, err := h.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	if run == nil {
		Error(c, http.StatusNotFound, "run not found", map[string]any{"kind": apperr.KindNotFound})
		return
	}
	Ok(c, run, nil)
}
