package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/internal/domain/repository"
	"z-novel-lore-api/internal/interfaces/http/dto"
)

// EntityHandler 实体处理器
type EntityHandler struct {
	svc *lore.Service
}

// NewEntityHandler 创建实体处理器
func NewEntityHandler(svc *lore.Service) *EntityHandler {
	return &EntityHandler{svc: svc}
}

// ListEntities 获取实体列表
// @Summary 获取实体列表
// @Description 按类型、标签、名称过滤，多个条件取交集
// @Tags Entities
// @Produce json
// @Param type query string false "实体类型"
// @Param tag query string false "标签"
// @Param name query string false "名称（大小写不敏感的子串）"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.EntityListResponse]
// @Router /v1/entities [get]
func (h *EntityHandler) ListEntities(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	all := h.svc.ListEntities(ctx, lore.EntityQuery{
		Type: entity.EntityType(c.Query("type")),
		Tag:  c.Query("tag"),
		Name: c.Query("name"),
	})

	page := repository.Paginate(all, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	dto.SuccessWithPage(c, dto.ToEntityListResponse(page.Items), dto.NewPageMeta(page.Page, page.PageSize, int(page.Total)))
}

// CreateEntity 创建实体
// @Summary 创建实体
// @Tags Entities
// @Accept json
// @Produce json
// @Param body body dto.CreateEntityRequest true "实体信息"
// @Success 201 {object} dto.Response[dto.EntityResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/entities [post]
func (h *EntityHandler) CreateEntity(c *gin.Context) {
	var req dto.CreateEntityRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.svc.AddEntity(c.Request.Context(), req.ToEntity())
	if err != nil {
		fail(c, "create entity", err)
		return
	}
	dto.Created(c, dto.ToEntityResponse(created))
}

// GetEntity 获取实体详情
// @Summary 获取实体详情
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Success 200 {object} dto.Response[dto.EntityResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/entities/{id} [get]
func (h *EntityHandler) GetEntity(c *gin.Context) {
	e, err := h.svc.GetEntity(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "get entity", err)
		return
	}
	dto.Success(c, dto.ToEntityResponse(e))
}

// UpdateEntity 更新实体
// @Summary 更新实体
// @Tags Entities
// @Accept json
// @Produce json
// @Param id path string true "实体 ID"
// @Param body body dto.UpdateEntityRequest true "更新字段"
// @Success 200 {object} dto.Response[dto.EntityResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/entities/{id} [patch]
func (h *EntityHandler) UpdateEntity(c *gin.Context) {
	var req dto.UpdateEntityRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.svc.UpdateEntity(c.Request.Context(), dto.BindID(c), req.ToPatch())
	if err != nil {
		fail(c, "update entity", err)
		return
	}
	dto.Success(c, dto.ToEntityResponse(updated))
}

// DeleteEntity 删除实体，同时删除其关系并从事件中移除引用
// @Summary 删除实体
// @Tags Entities
// @Param id path string true "实体 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/entities/{id} [delete]
func (h *EntityHandler) DeleteEntity(c *gin.Context) {
	if err := h.svc.RemoveEntity(c.Request.Context(), dto.BindID(c)); err != nil {
		fail(c, "delete entity", err)
		return
	}
	dto.NoContent(c)
}

// MergeEntities 合并实体
// @Summary 合并实体
// @Description source 的标签、元数据与关系并入 target，随后删除 source
// @Tags Entities
// @Accept json
// @Produce json
// @Param body body dto.MergeRequest true "合并参数"
// @Success 200 {object} dto.Response[dto.EntityResponse]
// @Router /v1/entities/merge [post]
func (h *EntityHandler) MergeEntities(c *gin.Context) {
	var req dto.MergeRequest
	if !bindJSON(c, &req) {
		return
	}

	merged, err := h.svc.MergeEntities(c.Request.Context(), req.SourceID, req.TargetID)
	if err != nil {
		fail(c, "merge entities", err)
		return
	}
	dto.Success(c, dto.ToEntityResponse(merged))
}

// FindSimilar 查找相似实体
// @Summary 相似实体
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} dto.Response[[]dto.ScoredEntityResponse]
// @Router /v1/entities/{id}/similar [get]
func (h *EntityHandler) FindSimilar(c *gin.Context) {
	list, err := h.svc.FindSimilar(c.Request.Context(), dto.BindID(c), dto.BindLimit(c, 10, 100))
	if err != nil {
		fail(c, "find similar entities", err)
		return
	}
	dto.Success(c, dto.ToScoredEntityResponses(list))
}

// FindDuplicates 查找疑似重复的实体
// @Summary 疑似重复实体
// @Tags Entities
// @Produce json
// @Success 200 {object} dto.Response[dto.DuplicateGroupsResponse]
// @Router /v1/entities/duplicates [get]
func (h *EntityHandler) FindDuplicates(c *gin.Context) {
	dto.Success(c, dto.ToDuplicateGroupsResponse(h.svc.FindDuplicates(c.Request.Context())))
}

// ValidateEntity 按类型适配器校验实体
// @Summary 校验实体
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Success 200 {object} dto.Response[dto.ValidationResponse]
// @Router /v1/entities/{id}/validate [get]
func (h *EntityHandler) ValidateEntity(c *gin.Context) {
	result, err := h.svc.ValidateEntity(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "validate entity", err)
		return
	}
	dto.Success(c, dto.ToValidationResponse(result))
}

// ExportEntities 导出实体
// @Summary 导出实体
// @Tags Entities
// @Produce json
// @Param types query []string false "类型（逗号分隔）"
// @Param tags query []string false "标签（逗号分隔）"
// @Success 200 {object} dto.Response[dto.EntityListResponse]
// @Router /v1/entities/export [get]
func (h *EntityHandler) ExportEntities(c *gin.Context) {
	var filter *registry.EntityFilter
	types, tags := dto.BindList(c, "types"), dto.BindList(c, "tags")
	if len(types) > 0 || len(tags) > 0 {
		filter = &registry.EntityFilter{Tags: tags}
		for _, t := range types {
			filter.Types = append(filter.Types, entity.EntityType(t))
		}
	}
	dto.Success(c, dto.ToEntityListResponse(h.svc.ExportEntities(c.Request.Context(), filter)))
}

// ImportEntities 批量导入实体
// @Summary 导入实体
// @Description 任一实体校验失败时整批拒绝
// @Tags Entities
// @Accept json
// @Produce json
// @Param body body dto.ImportEntitiesRequest true "实体列表"
// @Success 200 {object} dto.Response[dto.ImportResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/entities/import [post]
func (h *EntityHandler) ImportEntities(c *gin.Context) {
	var req dto.ImportEntitiesRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.ImportEntities(c.Request.Context(), req.Entities, req.ReplaceExisting)
	if err != nil {
		fail(c, "import entities", err)
		return
	}
	dto.Success(c, dto.ToImportResponse(result))
}

// ListRelationships 实体参与的所有关系
// @Summary 实体关系
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Success 200 {object} dto.Response[dto.RelationshipListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/entities/{id}/relationships [get]
func (h *EntityHandler) ListRelationships(c *gin.Context) {
	list, err := h.svc.RelationshipsFor(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "list entity relationships", err)
		return
	}
	dto.Success(c, dto.ToRelationshipListResponse(list))
}

// CrossReferences 引用该实体的其他实体
// @Summary 交叉引用
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Success 200 {object} dto.Response[dto.CrossReferenceListResponse]
// @Router /v1/entities/{id}/cross-references [get]
func (h *EntityHandler) CrossReferences(c *gin.Context) {
	id := dto.BindID(c)
	refs, err := h.svc.CrossReferences(c.Request.Context(), id)
	if err != nil {
		fail(c, "cross references", err)
		return
	}
	dto.Success(c, dto.ToCrossReferenceListResponse(id, refs))
}

// ListEvents 涉及该实体的时间线事件
// @Summary 实体事件
// @Tags Entities
// @Produce json
// @Param id path string true "实体 ID"
// @Success 200 {object} dto.Response[dto.EventListResponse]
// @Router /v1/entities/{id}/events [get]
func (h *EntityHandler) ListEvents(c *gin.Context) {
	ctx := c.Request.Context()
	id := dto.BindID(c)
	if _, err := h.svc.GetEntity(ctx, id); err != nil {
		fail(c, "list entity events", err)
		return
	}
	view := &entity.TimelineView{EntityIDs: []string{id}}
	dto.Success(c, dto.ToEventListResponse(h.svc.ExportTimeline(ctx, view)))
}
