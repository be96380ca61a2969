package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/interfaces/http/dto"
	apperrors "z-novel-lore-api/pkg/errors"
)

// ConsistencyHandler 检索、一致性分析与世界规则
type ConsistencyHandler struct {
	svc *lore.Service
}

// NewConsistencyHandler 创建处理器
func NewConsistencyHandler(svc *lore.Service) *ConsistencyHandler {
	return &ConsistencyHandler{svc: svc}
}

// Search 全文检索实体与事件
// @Summary 检索
// @Description 空查询返回空结果
// @Tags Search
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索条件"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Router /v1/search [post]
func (h *ConsistencyHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	h.search(c, req)
}

// SearchQuery GET 形式的检索
// @Summary 检索
// @Tags Search
// @Produce json
// @Param q query string true "关键词"
// @Param kinds query []string false "entity / event"
// @Param limit query int false "返回数量" default(20)
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Router /v1/search [get]
func (h *ConsistencyHandler) SearchQuery(c *gin.Context) {
	h.search(c, dto.SearchRequest{
		Query:       c.Query("q"),
		Kinds:       dto.BindList(c, "kinds"),
		EntityTypes: dto.BindList(c, "entity_types"),
		Scopes:      dto.BindList(c, "scopes"),
		Tags:        dto.BindList(c, "tags"),
		Limit:       dto.BindLimit(c, 20, 500),
	})
}

func (h *ConsistencyHandler) search(c *gin.Context, req dto.SearchRequest) {
	results := h.svc.Search(c.Request.Context(), req.Query, req.ToOptions())
	dto.Success(c, dto.ToSearchResponse(req.Query, results))
}

// Analyze 运行一致性规则
// @Summary 一致性分析
// @Description 结果按注册表版本缓存，no_cache 可强制重算
// @Tags Consistency
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeRequest false "分析参数"
// @Success 200 {object} dto.Response[consistency.Report]
// @Router /v1/consistency/analyze [post]
func (h *ConsistencyHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	report, err := h.svc.Analyze(c.Request.Context(), req.ToAnalysisRequest())
	if err != nil {
		fail(c, "consistency analysis", err)
		return
	}
	dto.Success(c, report)
}

// Rules 列出启用的规则
// @Summary 规则列表
// @Tags Consistency
// @Produce json
// @Success 200 {object} dto.Response[dto.RuleListResponse]
// @Router /v1/consistency/rules [get]
func (h *ConsistencyHandler) Rules(c *gin.Context) {
	dto.Success(c, dto.RuleListResponse{Rules: h.svc.Engine().RuleIDs()})
}

// ListWorldRules 世界规则
// @Summary 世界规则
// @Tags WorldRules
// @Produce json
// @Success 200 {object} dto.Response[dto.WorldRulesResponse]
// @Router /v1/world-rules [get]
func (h *ConsistencyHandler) ListWorldRules(c *gin.Context) {
	dto.Success(c, dto.ToWorldRulesResponse(h.svc.WorldRules(c.Request.Context())))
}

// ReplaceWorldRules 整体替换世界规则
// @Summary 替换世界规则
// @Tags WorldRules
// @Accept json
// @Produce json
// @Param body body dto.WorldRulesRequest true "规则列表"
// @Success 200 {object} dto.Response[dto.WorldRulesResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/world-rules [put]
func (h *ConsistencyHandler) ReplaceWorldRules(c *gin.Context) {
	var req dto.WorldRulesRequest
	if !bindJSON(c, &req) {
		return
	}

	rules, err := h.svc.SetWorldRules(c.Request.Context(), req.Rules)
	if err != nil {
		fail(c, "replace world rules", err)
		return
	}
	dto.Success(c, dto.ToWorldRulesResponse(rules))
}

// PutWorldRule 新增或覆盖单条世界规则，id 取自路径
// @Summary 写入世界规则
// @Tags WorldRules
// @Accept json
// @Produce json
// @Param id path string true "规则 ID"
// @Param body body entity.WorldRule true "规则"
// @Success 200 {object} dto.Response[dto.WorldRulesResponse]
// @Router /v1/world-rules/{id} [put]
func (h *ConsistencyHandler) PutWorldRule(c *gin.Context) {
	var rule entity.WorldRule
	if !bindJSON(c, &rule) {
		return
	}
	rule.ID = dto.BindID(c)

	rules, err := h.svc.PutWorldRule(c.Request.Context(), rule)
	if err != nil {
		fail(c, "put world rule", err)
		return
	}
	dto.Success(c, dto.ToWorldRulesResponse(rules))
}

// DeleteWorldRule 删除世界规则
// @Summary 删除世界规则
// @Tags WorldRules
// @Param id path string true "规则 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/world-rules/{id} [delete]
func (h *ConsistencyHandler) DeleteWorldRule(c *gin.Context) {
	id := dto.BindID(c)
	removed, err := h.svc.RemoveWorldRule(c.Request.Context(), id)
	if err != nil {
		fail(c, "delete world rule", err)
		return
	}
	if !removed {
		dto.Fail(c, apperrors.ErrNotFound.WithDetail("world rule "+id))
		return
	}
	dto.NoContent(c)
}
