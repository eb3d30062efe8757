package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"dealflow/internal/apperr"
	"dealflow/internal/pipeline"
)

const streamInputTimeout = 30 * time.Second

// StreamMessage is one frame on the pipeline stream. Type is "event" for
// stage progress and "result" for the final frame.
type StreamMessage struct {
	Type   string                   `json:"type"`
	Event  *pipeline.Event          `json:"event,omitempty"`
	Result *pipeline.PipelineResult `json:"result,omitempty"`
	RunID  string                   `json:"run_id,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Kind   apperr.Kind              `json:"kind,omitempty"`
}

// @Summary Stream a full pipeline run over websocket
// @Description The client sends one pipeline.StageInput JSON frame; the server answers with event frames and a final result frame.
// @Tags stages
// @Param id path string true "deal id"
// @Router /api/deals/{id}/pipeline/stream [get]
func (h *StageHandler) stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.AllowedOrigins})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()
	dealID := c.Param("id")

	readCtx, cancel := context.WithTimeout(ctx, streamInputTimeout)
	var in pipeline.StageInput
	err = wsjson.Read(readCtx, conn, &in)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusUnsupportedData, "expected one json pipeline input frame")
		return
	}

	send := func(msg StreamMessage) {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := wsjson.Write(wctx, conn, msg); err != nil && h.Logger != nil {
			h.Logger.Debug("websocket write failed", zap.String("deal_id", dealID), zap.Error(err))
		}
	}

	run, res, runErr := h.execute(ctx, dealID, in, func(ev pipeline.Event) {
		send(StreamMessage{Type: "event", Event: &ev})
	})
	final := StreamMessage{Type: "result", Result: res}
	if run != nil {
		final.RunID = run.ID
	}
	if runErr != nil {
		final.Kind = apperr.KindOf(runErr)
		final.Error = runErr.Error()
		if final.Kind == apperr.KindUnknown {
			final.Error = "internal error"
		}
	}
	send(final)
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}
