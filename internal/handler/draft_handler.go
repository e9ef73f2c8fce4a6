package handler

import (
	"github.com/gin-gonic/gin"

	"labot-admin-go/internal/model"
	"labot-admin-go/internal/service"
	"labot-admin-go/pkg/log"
)

// DraftHandler 负责处理答案起草请求。
type DraftHandler struct {
	draftService service.DraftService
}

// NewDraftHandler 创建一个新的 DraftHandler 实例。
func NewDraftHandler(draftService service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// DraftRequest 定义了起草答案的请求体结构。
type DraftRequest struct {
	Question string              `json:"question" binding:"required"`
	Chunks   map[string][]string `json:"chunks" binding:"required,min=1,dive,keys,region,endkeys,min=1"`
	Topics   []string            `json:"topics"`
}

// Draft 为每个区域起草答案，返回 区域 -> 答案。
func (h *DraftHandler) Draft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[DraftHandler] 无效的请求负载, error: %v", err)
		badRequest(c, "Selecciona una pregunta y al menos un fragmento por región")
		return
	}

	answers, err := h.draftService.Draft(c.Request.Context(), service.DraftInput{
		Question: req.Question,
		Chunks:   model.ChunksByRegion(req.Chunks),
		Topics:   req.Topics,
	})
	if err != nil {
		failure(c, err, "No se pudo generar la respuesta", nil)
		return
	}
	success(c, "success", answers)
}
