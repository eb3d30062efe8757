package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dealflow/internal/portfolio"
)

type PortfolioHandler struct {
	Aggregator *portfolio.Aggregator
	Logger     *zap.Logger
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	r.GET("/api/portfolio/insights", h.insights)
}

// @Summary Portfolio insights across non-archived deals
// @Tags portfolio
// @Success 200 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/portfolio/insights [get]
func (h *PortfolioHandler) insights(c *gin.Context) {
	out, err := h.Aggregator.Compute(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}
