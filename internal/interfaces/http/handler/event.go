package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/interfaces/http/dto"
)

// EventHandler 时间线事件处理器
type EventHandler struct {
	svc *lore.Service
}

// NewEventHandler 创建事件处理器
func NewEventHandler(svc *lore.Service) *EventHandler {
	return &EventHandler{svc: svc}
}

// ListEvents 按时间顺序列出事件
// @Summary 获取事件列表
// @Tags Events
// @Produce json
// @Success 200 {object} dto.Response[dto.EventListResponse]
// @Router /v1/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	dto.Success(c, dto.ToEventListResponse(h.svc.ListEvents(c.Request.Context())))
}

// CreateEvent 创建事件
// @Summary 创建事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body dto.CreateEventRequest true "事件信息"
// @Success 201 {object} dto.Response[entity.TimelineEvent]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	ev, err := h.svc.AddEvent(c.Request.Context(), req.ToEvent())
	if err != nil {
		fail(c, "create event", err)
		return
	}
	dto.Created(c, ev)
}

// GetEvent 获取事件详情
// @Summary 获取事件详情
// @Tags Events
// @Produce json
// @Param id path string true "事件 ID"
// @Success 200 {object} dto.Response[entity.TimelineEvent]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	ev, err := h.svc.GetEvent(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "get event", err)
		return
	}
	dto.Success(c, ev)
}

// UpdateEvent 更新事件
// @Summary 更新事件
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "事件 ID"
// @Param body body entity.EventPatch true "更新字段"
// @Success 200 {object} dto.Response[entity.TimelineEvent]
// @Router /v1/events/{id} [patch]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var patch entity.EventPatch
	if !bindJSON(c, &patch) {
		return
	}

	ev, err := h.svc.UpdateEvent(c.Request.Context(), dto.BindID(c), patch)
	if err != nil {
		fail(c, "update event", err)
		return
	}
	dto.Success(c, ev)
}

// DeleteEvent 删除事件，同时清理指向它的依赖
// @Summary 删除事件
// @Tags Events
// @Param id path string true "事件 ID"
// @Success 204
// @Router /v1/events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.svc.RemoveEvent(c.Request.Context(), dto.BindID(c)); err != nil {
		fail(c, "delete event", err)
		return
	}
	dto.NoContent(c)
}

// MoveEvent 修改事件时间
// @Summary 移动事件
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "事件 ID"
// @Param body body dto.MoveEventRequest true "新时间"
// @Success 200 {object} dto.Response[entity.TimelineEvent]
// @Router /v1/events/{id}/move [post]
func (h *EventHandler) MoveEvent(c *gin.Context) {
	var req dto.MoveEventRequest
	if !bindJSON(c, &req) {
		return
	}

	ev, err := h.svc.MoveEvent(c.Request.Context(), dto.BindID(c), req.Timestamp)
	if err != nil {
		fail(c, "move event", err)
		return
	}
	dto.Success(c, ev)
}

// DuplicateEvent 复制事件
// @Summary 复制事件
// @Tags Events
// @Produce json
// @Param id path string true "事件 ID"
// @Success 201 {object} dto.Response[entity.TimelineEvent]
// @Router /v1/events/{id}/duplicate [post]
func (h *EventHandler) DuplicateEvent(c *gin.Context) {
	ev, err := h.svc.DuplicateEvent(c.Request.Context(), dto.BindID(c))
	if err != nil {
		fail(c, "duplicate event", err)
		return
	}
	dto.Created(c, ev)
}

// MergeEvents 合并事件
// @Summary 合并事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body dto.MergeRequest true "合并参数"
// @Success 200 {object} dto.Response[entity.TimelineEvent]
// @Router /v1/events/merge [post]
func (h *EventHandler) MergeEvents(c *gin.Context) {
	var req dto.MergeRequest
	if !bindJSON(c, &req) {
		return
	}

	ev, err := h.svc.MergeEvents(c.Request.Context(), req.SourceID, req.TargetID)
	if err != nil {
		fail(c, "merge events", err)
		return
	}
	dto.Success(c, ev)
}

// AddDependency 添加事件依赖
// @Summary 添加依赖
// @Description 会形成环的依赖被拒绝
// @Tags Events
// @Accept json
// @Param id path string true "事件 ID"
// @Param body body dto.DependencyRequest true "依赖"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/events/{id}/dependencies [post]
func (h *EventHandler) AddDependency(c *gin.Context) {
	var req dto.DependencyRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.svc.AddDependency(c.Request.Context(), dto.BindID(c), req.TargetEventID, entity.DependencyType(req.Type), req.Description)
	if err != nil {
		fail(c, "add dependency", err)
		return
	}
	dto.NoContent(c)
}

// RemoveDependency 删除事件依赖
// @Summary 删除依赖
// @Tags Events
// @Param id path string true "事件 ID"
// @Param target path string true "被依赖事件 ID"
// @Success 204
// @Router /v1/events/{id}/dependencies/{target} [delete]
func (h *EventHandler) RemoveDependency(c *gin.Context) {
	if err := h.svc.RemoveDependency(c.Request.Context(), dto.BindID(c), c.Param("target")); err != nil {
		fail(c, "remove dependency", err)
		return
	}
	dto.NoContent(c)
}

// FindSimilar 查找相似事件
// @Summary 相似事件
// @Tags Events
// @Produce json
// @Param id path string true "事件 ID"
// @Param limit query int false "返回数量" default(10)
// @Router /v1/events/{id}/similar [get]
func (h *EventHandler) FindSimilar(c *gin.Context) {
	list, err := h.svc.FindSimilarEvents(c.Request.Context(), dto.BindID(c), dto.BindLimit(c, 10, 100))
	if err != nil {
		fail(c, "find similar events", err)
		return
	}
	dto.Success(c, dto.ToScoredEvents(list))
}

// Query 按视图过滤、排序、分组
// @Summary 视图查询
// @Tags Events
// @Accept json
// @Produce json
// @Param body body entity.TimelineView false "视图"
// @Success 200 {object} dto.Response[dto.EventGroupsResponse]
// @Router /v1/events/query [post]
func (h *EventHandler) Query(c *gin.Context) {
	var view entity.TimelineView
	if !bindOptionalJSON(c, &view) {
		return
	}
	dto.Success(c, dto.ToEventGroupsResponse(h.svc.QueryEvents(c.Request.Context(), &view)))
}

// Analyze 时间线统计
// @Summary 时间线统计
// @Tags Events
// @Accept json
// @Produce json
// @Param body body entity.TimelineView false "视图"
// @Success 200 {object} dto.Response[entity.TimelineAnalysis]
// @Router /v1/events/analyze [post]
func (h *EventHandler) Analyze(c *gin.Context) {
	var view entity.TimelineView
	if !bindOptionalJSON(c, &view) {
		return
	}
	dto.Success(c, h.svc.AnalyzeTimeline(c.Request.Context(), &view))
}

// Export 导出视图内的事件
// @Summary 导出事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body entity.TimelineView false "视图"
// @Success 200 {object} dto.Response[dto.EventListResponse]
// @Router /v1/events/export [post]
func (h *EventHandler) Export(c *gin.Context) {
	var view entity.TimelineView
	if !bindOptionalJSON(c, &view) {
		return
	}
	dto.Success(c, dto.ToEventListResponse(h.svc.ExportTimeline(c.Request.Context(), &view)))
}

// Import 批量导入事件
// @Summary 导入事件
// @Description 依赖可以指向同批事件
// @Tags Events
// @Accept json
// @Produce json
// @Param body body dto.ImportEventsRequest true "事件列表"
// @Success 200 {object} dto.Response[dto.ImportResponse]
// @Router /v1/events/import [post]
func (h *EventHandler) Import(c *gin.Context) {
	var req dto.ImportEventsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.ImportEvents(c.Request.Context(), req.Events, req.ReplaceExisting)
	if err != nil {
		fail(c, "import events", err)
		return
	}
	dto.Success(c, dto.ToImportResponse(result))
}
