package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"labot-admin-go/internal/middleware"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/service"
	"labot-admin-go/pkg/log"
)

// CacheGroupHandler 负责处理缓存组相关的 API 请求。
type CacheGroupHandler struct {
	cacheGroupService service.CacheGroupService
}

// NewCacheGroupHandler 创建一个新的 CacheGroupHandler 实例。
func NewCacheGroupHandler(cacheGroupService service.CacheGroupService) *CacheGroupHandler {
	return &CacheGroupHandler{cacheGroupService: cacheGroupService}
}

// SaveCacheGroupRequest 定义了创建与编辑缓存组的请求体结构。
type SaveCacheGroupRequest struct {
	Question         string              `json:"question" binding:"required"`
	Answers          map[string]string   `json:"answers" binding:"required,min=1,dive,keys,region,endkeys"`
	Chunks           map[string][]string `json:"chunks" binding:"omitempty,dive,keys,region,endkeys"`
	Topics           []string            `json:"topics"`
	ExamTrack        string              `json:"oposicion"`
	RelatedQuestions []uint              `json:"relatedQuestions"`
}

// EditCacheGroupRequest 与 SaveCacheGroupRequest 字段相同，但编辑时 answers 可以为空。
type EditCacheGroupRequest struct {
	Question         string              `json:"question" binding:"required"`
	Answers          map[string]string   `json:"answers" binding:"omitempty,dive,keys,region,endkeys"`
	Chunks           map[string][]string `json:"chunks" binding:"omitempty,dive,keys,region,endkeys"`
	Topics           []string            `json:"topics"`
	ExamTrack        string              `json:"oposicion"`
	RelatedQuestions []uint              `json:"relatedQuestions"`
}

func (r *SaveCacheGroupRequest) input(actor string) service.SaveCacheGroupInput {
	return service.SaveCacheGroupInput{
		Question:         r.Question,
		Answers:          model.AnswerByRegion(r.Answers),
		Chunks:           model.ChunksByRegion(r.Chunks),
		Topics:           r.Topics,
		ExamTrack:        r.ExamTrack,
		RelatedQuestions: r.RelatedQuestions,
		ActorMail:        actor,
	}
}

func actorEmail(c *gin.Context) string {
	if claims := middleware.CurrentClaims(c); claims != nil {
		return claims.Email
	}
	return ""
}

// Create 处理创建（或按问题文本合并）缓存组的请求。
func (h *CacheGroupHandler) Create(c *gin.Context) {
	var req SaveCacheGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[CacheGroupHandler] Create: 无效的请求负载, error: %v", err)
		badRequest(c, "Datos de la pregunta no válidos")
		return
	}

	result, err := h.cacheGroupService.Create(c.Request.Context(), req.input(actorEmail(c)))
	if err != nil {
		failure(c, err, "No se pudo guardar la pregunta", result)
		return
	}
	success(c, service.MsgCreated, result)
}

// Edit 处理编辑缓存组的请求。
func (h *CacheGroupHandler) Edit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "ID no válido")
		return
	}
	var req EditCacheGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[CacheGroupHandler] Edit: 无效的请求负载, error: %v", err)
		badRequest(c, "Datos de la pregunta no válidos")
		return
	}

	result, err := h.cacheGroupService.Edit(c.Request.Context(), uint(id), (*SaveCacheGroupRequest)(&req).input(actorEmail(c)))
	if err != nil {
		failure(c, err, "No se pudo editar la pregunta", result)
		return
	}
	success(c, service.MsgEdited, result)
}

// Get 返回单个缓存组。
func (h *CacheGroupHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "ID no válido")
		return
	}
	group, err := h.cacheGroupService.Get(c.Request.Context(), uint(id))
	if err != nil {
		failure(c, err, "No se pudo obtener la pregunta", nil)
		return
	}
	success(c, "success", group)
}

// List 分页返回缓存组，支持 ?search= 与 ?page=（从 1 开始）。
func (h *CacheGroupHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		badRequest(c, "Página no válida")
		return
	}
	groups, err := h.cacheGroupService.List(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		failure(c, err, "No se pudieron obtener las preguntas", nil)
		return
	}
	success(c, "success", groups)
}

// Similar 返回与 ?q= 语义相近的缓存组，?k= 控制数量。
func (h *CacheGroupHandler) Similar(c *gin.Context) {
	k, ok := queryInt(c, "k", 0)
	if !ok {
		badRequest(c, "Parámetro k no válido")
		return
	}
	results, err := h.cacheGroupService.SimilarQuestions(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		failure(c, err, "La búsqueda de preguntas similares ha fallado", nil)
		return
	}
	success(c, "success", results)
}
