package handler

import (
	"github.com/gin-gonic/gin"

	"labot-admin-go/internal/service"
)

// CatalogHandler 提供主题、备考方向、消息类型与切片目录。
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler 创建一个新的 CatalogHandler 实例。
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) Topics(c *gin.Context) {
	topics, err := h.catalogService.Topics(c.Request.Context())
	if err != nil {
		failure(c, err, "No se pudieron obtener los temas", nil)
		return
	}
	success(c, "success", topics)
}

func (h *CatalogHandler) ExamTracks(c *gin.Context) {
	tracks, err := h.catalogService.ExamTracks(c.Request.Context())
	if err != nil {
		failure(c, err, "No se pudieron obtener las oposiciones", nil)
		return
	}
	success(c, "success", tracks)
}

func (h *CatalogHandler) MessageTypes(c *gin.Context) {
	types, err := h.catalogService.MessageTypes(c.Request.Context())
	if err != nil {
		failure(c, err, "No se pudieron obtener los tipos de mensaje", nil)
		return
	}
	success(c, "success", types)
}

// ChunkCatalog 返回 区域 -> 文档 -> 标题 -> 小节 的切片目录。
func (h *CatalogHandler) ChunkCatalog(c *gin.Context) {
	catalog, err := h.catalogService.ChunkCatalog(c.Request.Context())
	if err != nil {
		failure(c, err, "No se pudieron obtener los fragmentos", nil)
		return
	}
	success(c, "success", catalog)
}
