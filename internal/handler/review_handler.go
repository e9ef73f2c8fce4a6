package handler

import (
	"github.com/gin-gonic/gin"

	"labot-admin-go/internal/service"
)

// ReviewHandler 返回待审核列表。
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler 创建一个新的 ReviewHandler 实例。
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// List 支持 ?showing=all|cached|non-cached、?page=、?legislative=true、?type=。
func (h *ReviewHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		badRequest(c, "Página no válida")
		return
	}
	items, err := h.reviewService.List(c.Request.Context(), service.ReviewFilter{
		Showing:         c.Query("showing"),
		Page:            page,
		OnlyLegislative: c.Query("legislative") == "true",
		APIType:         c.Query("type"),
		Search:          c.Query("search"),
	})
	if err != nil {
		failure(c, err, "No se pudieron obtener las preguntas", nil)
		return
	}
	success(c, "success", items)
}
