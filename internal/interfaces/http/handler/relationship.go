package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/interfaces/http/dto"
)

// RelationshipHandler 关系处理器
type RelationshipHandler struct {
	svc *lore.Service
}

// NewRelationshipHandler 创建关系处理器
func NewRelationshipHandler(svc *lore.Service) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// ListRelationships 获取关系列表
// @Summary 获取关系列表
// @Tags Relationships
// @Produce json
// @Success 200 {object} dto.Response[dto.RelationshipListResponse]
// @Router /v1/relationships [get]
func (h *RelationshipHandler) ListRelationships(c *gin.Context) {
	dto.Success(c, dto.ToRelationshipListResponse(h.svc.ListRelationships(c.Request.Context())))
}

// CreateRelationship 创建关系
// @Summary 创建关系
// @Description 两端实体必须存在，强度会被截断到 1..10
// @Tags Relationships
// @Accept json
// @Produce json
// @Param body body dto.CreateRelationshipRequest true "关系信息"
// @Success 201 {object} dto.Response[dto.RelationshipResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/relationships [post]
func (h *RelationshipHandler) CreateRelationship(c *gin.Context) {
	var req dto.CreateRelationshipRequest
	if !bindJSON(c, &req) {
		return
	}

	rel, err := h.svc.AddRelationship(c.Request.Context(), req.ToInput())
	if err != nil {
		fail(c, "create relationship", err)
		return
	}
	dto.Created(c, dto.ToRelationshipResponse(rel))
}

// GetRelationship 获取关系详情
// @Summary 获取关系详情
// @Tags Relationships
// @Produce json
// @Param id path string true "关系 ID"
// @Success 200 {object} dto.Response[dto.RelationshipResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/relationships/{id} [get]
func (h *RelationshipHandler) GetRelationship(c *gin.Context) {
	rel, err := h.svc.GetRelationship(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "get relationship", err)
		return
	}
	dto.Success(c, dto.ToRelationshipResponse(rel))
}

// DeleteRelationship 删除关系
// @Summary 删除关系
// @Tags Relationships
// @Param id path string true "关系 ID"
// @Success 204
// @Router /v1/relationships/{id} [delete]
func (h *RelationshipHandler) DeleteRelationship(c *gin.Context) {
	if err := h.svc.RemoveRelationship(c.Request.Context(), dto.BindID(c)); err != nil {
		fail(c, "delete relationship", err)
		return
	}
	dto.NoContent(c)
}

// Between 两个实体之间的关系（任意方向）
// @Summary 实体间关系
// @Tags Relationships
// @Produce json
// @Param a query string true "实体 A"
// @Param b query string true "实体 B"
// @Success 200 {object} dto.Response[dto.RelationshipListResponse]
// @Router /v1/relationships/between [get]
func (h *RelationshipHandler) Between(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		dto.BadRequest(c, "query parameters a and b are required")
		return
	}
	dto.Success(c, dto.ToRelationshipListResponse(h.svc.RelationshipsBetween(c.Request.Context(), a, b)))
}

// ImportRelationships 批量导入关系
// @Summary 导入关系
// @Tags Relationships
// @Accept json
// @Produce json
// @Param body body dto.ImportRelationshipsRequest true "关系列表"
// @Success 200 {object} dto.Response[dto.ImportResponse]
// @Router /v1/relationships/import [post]
func (h *RelationshipHandler) ImportRelationships(c *gin.Context) {
	var req dto.ImportRelationshipsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.ImportRelationships(c.Request.Context(), req.Relationships, req.ReplaceExisting)
	if err != nil {
		fail(c, "import relationships", err)
		return
	}
	dto.Success(c, dto.ToImportResponse(result))
}
