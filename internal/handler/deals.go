package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dealflow/internal/service"
)

type DealHandler struct {
	Deals  *service.DealService
	Logger *zap.Logger
}

func (h *DealHandler) Register(r *gin.Engine) {
	g := r.Group("/api/deals")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
	g.POST("/:id/archive", h.archive)
	g.GET("/:id/memos", h.memos)
}

// @Summary Create deal
// @Tags deals
// @Accept json
// @Param body body service.CreateDealInput true "deal"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/deals [post]
func (h *DealHandler) create(c *gin.Context) {
	var req service.CreateDealInput
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	deal, err := h.Deals.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, deal, nil)
}

// @Summary List deals
// @Tags deals
// @Param status query string false "draft|ingested|enriched|underwritten|memo_generated|archived"
// @Param tenant query string false "tenant name contains"
// @Param market query string false "submarket contains"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param order_by query string false "created_at|updated_at|name|status"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/deals [get]
func (h *DealHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Deals.List(c.Request.Context(), service.ListDealsInput{
		Limit:  limit,
		Offset: offset,
		Status: strQueryPtr(c, "status"),
		Tenant: strQueryPtr(c, "tenant"),
		Market: strQueryPtr(c, "market"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at": "created_at",
			"updated_at": "updated_at",
			"name":       "name",
			"status":     "status",
		}),
		Asc: boolQueryPtr(c, "asc"),
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get complete deal
// @Tags deals
// @Param id path string true "deal id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/deals/{id} [get]
func (h *DealHandler) get(c *gin.Context) {
	full, err := h.Deals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, full, nil)
}

// @Summary Delete deal and its artifacts
// @Tags deals
// @Param id path string true "deal id"
// @Success 200 {object} apiResponse
// @Router /api/deals/{id} [delete]
func (h *DealHandler) remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.Deals.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

// @Summary Archive deal
// @Tags deals
// @Param id path string true "deal id"
// @Success 200 {object} apiResponse
// @Router /api/deals/{id}/archive [post]
func (h *DealHandler) archive(c *gin.Context) {
	deal, err := h.Deals.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, deal, nil)
}

// @Summary List memo versions, newest first
// @Tags deals
// @Param id path string true "deal id"
// @Success 200 {object} apiResponse
// @Router /api/deals/{id}/memos [get]
func (h *DealHandler) memos(c *gin.Context) {
	items, err := h.Deals.Memos(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, nil)
}
