package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/repository"
	"z-novel-lore-api/internal/interfaces/http/dto"
)

// SnapshotHandler 快照处理器
type SnapshotHandler struct {
	svc *lore.Service
}

// NewSnapshotHandler 创建快照处理器
func NewSnapshotHandler(svc *lore.Service) *SnapshotHandler {
	return &SnapshotHandler{svc: svc}
}

// Stats 注册表统计
// @Summary 注册表统计
// @Tags Snapshot
// @Produce json
// @Success 200 {object} dto.Response[dto.StatsResponse]
// @Router /v1/stats [get]
func (h *SnapshotHandler) Stats(c *gin.Context) {
	dto.Success(c, dto.StatsResponse{
		WorldID: h.svc.WorldID(),
		Stats:   h.svc.Stats(),
		Dirty:   h.svc.Dirty(),
	})
}

// Export 导出当前注册表的完整快照
// @Summary 导出快照
// @Tags Snapshot
// @Produce json
// @Success 200 {object} dto.Response[entity.Snapshot]
// @Router /v1/snapshot [get]
func (h *SnapshotHandler) Export(c *gin.Context) {
	dto.Success(c, h.svc.ExportSnapshot(c.Request.Context()))
}

// Save 持久化当前注册表
// @Summary 保存快照
// @Tags Snapshot
// @Produce json
// @Success 200 {object} dto.Response[dto.SnapshotResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/snapshot/save [post]
func (h *SnapshotHandler) Save(c *gin.Context) {
	snap, err := h.svc.SaveSnapshot(c.Request.Context())
	if err != nil {
		fail(c, "save snapshot", err)
		return
	}
	dto.Success(c, dto.ToSnapshotResponse(snap))
}

// Load 从存储恢复最新快照
// @Summary 加载快照
// @Tags Snapshot
// @Produce json
// @Success 200 {object} dto.Response[dto.SnapshotResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/snapshot/load [post]
func (h *SnapshotHandler) Load(c *gin.Context) {
	snap, err := h.svc.LoadSnapshot(c.Request.Context())
	if err != nil {
		fail(c, "load snapshot", err)
		return
	}
	dto.Success(c, dto.ToSnapshotResponse(snap))
}

// Restore 用请求体中的快照替换注册表，失败时注册表保持不变
// @Summary 恢复快照
// @Tags Snapshot
// @Accept json
// @Produce json
// @Param body body entity.Snapshot true "快照"
// @Success 200 {object} dto.Response[dto.SnapshotResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/snapshot/restore [post]
func (h *SnapshotHandler) Restore(c *gin.Context) {
	var snap entity.Snapshot
	if !bindJSON(c, &snap) {
		return
	}

	if err := h.svc.RestoreSnapshot(c.Request.Context(), &snap); err != nil {
		fail(c, "restore snapshot", err)
		return
	}
	dto.Success(c, dto.ToSnapshotResponse(&snap))
}

// ListRevisions 历史版本
// @Summary 历史版本
// @Tags Snapshot
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]repository.SnapshotSummary]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/snapshot/revisions [get]
func (h *SnapshotHandler) ListRevisions(c *gin.Context) {
	pageReq := dto.BindPage(c)
	result, err := h.svc.ListRevisions(c.Request.Context(), repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		fail(c, "list revisions", err)
		return
	}
	dto.SuccessWithPage(c, result.Items, dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetRevision 读取指定版本（不恢复）
// @Summary 读取历史版本
// @Tags Snapshot
// @Produce json
// @Param revision path int true "版本号"
// @Success 200 {object} dto.Response[entity.Snapshot]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/snapshot/revisions/{revision} [get]
func (h *SnapshotHandler) GetRevision(c *gin.Context) {
	revision, ok := dto.BindRevision(c)
	if !ok {
		dto.BadRequest(c, "invalid revision")
		return
	}

	snap, err := h.svc.LoadRevision(c.Request.Context(), revision)
	if err != nil {
		fail(c, "load revision", err)
		return
	}
	dto.Success(c, snap)
}
