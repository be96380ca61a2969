package dto

import (
	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
)

// SearchRequest 全文检索请求
type SearchRequest struct {
	Query       string   `json:"query"`
	Kinds       []string `json:"kinds,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Limit       int      `json:"limit,omitempty" binding:"omitempty,min=0,max=500"`
}

// ToOptions 转换为检索选项
func (r *SearchRequest) ToOptions() registry.SearchOptions {
	opts := registry.SearchOptions{Tags: r.Tags, Limit: r.Limit}
	for _, k := range r.Kinds {
		opts.Kinds = append(opts.Kinds, registry.ResultKind(k))
	}
	for _, t := range r.EntityTypes {
		opts.EntityTypes = append(opts.EntityTypes, entity.EntityType(t))
	}
	for _, s := range r.Scopes {
		opts.Scopes = append(opts.Scopes, entity.Scope(s))
	}
	return opts
}

// SearchResponse 检索结果
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []registry.SearchResult `json:"results"`
}

// ToSearchResponse 转换检索结果
func ToSearchResponse(query string, results []registry.SearchResult) *SearchResponse {
	if results == nil {
		results = []registry.SearchResult{}
	}
	return &SearchResponse{Query: query, Results: results}
}

// AnalyzeRequest 一致性分析请求
type AnalyzeRequest struct {
	RuleIDs       []string `json:"rule_ids,omitempty"`
	EntityIDs     []string `json:"entity_ids,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty" binding:"omitempty,min=0,max=1"`
	NoCache       bool     `json:"no_cache"`
}

// ToAnalysisRequest 转换为引擎请求
func (r *AnalyzeRequest) ToAnalysisRequest() consistency.AnalysisRequest {
	return consistency.AnalysisRequest{
		RuleIDs:       r.RuleIDs,
		EntityIDs:     r.EntityIDs,
		MinConfidence: r.MinConfidence,
		NoCache:       r.NoCache,
	}
}

// RuleListResponse 可用规则
type RuleListResponse struct {
	Rules []string `json:"rules"`
}

// WorldRulesRequest 整体替换世界规则
type WorldRulesRequest struct {
	Rules []entity.WorldRule `json:"rules" binding:"required"`
}

// WorldRulesResponse 世界规则列表
type WorldRulesResponse struct {
	Rules []entity.WorldRule `json:"rules"`
}

// ToWorldRulesResponse 转换世界规则列表
func ToWorldRulesResponse(rules []entity.WorldRule) *WorldRulesResponse {
	if rules == nil {
		rules = []entity.WorldRule{}
	}
	return &WorldRulesResponse{Rules: rules}
}

// SnapshotResponse 快照摘要
type SnapshotResponse struct {
	WorldID       string `json:"world_id"`
	Revision      uint64 `json:"revision"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
	Events        int    `json:"events"`
	WorldRules    int    `json:"world_rules"`
	SavedAt       string `json:"saved_at,omitempty"`
}

// ToSnapshotResponse 转换快照摘要
func ToSnapshotResponse(snap *entity.Snapshot) *SnapshotResponse {
	if snap == nil {
		return nil
	}
	return &SnapshotResponse{
		WorldID:       snap.WorldID,
		Revision:      snap.Revision,
		Entities:      len(snap.Entities),
		Relationships: len(snap.Relationships),
		Events:        len(snap.Events),
		WorldRules:    len(snap.WorldRules),
		SavedAt:       formatTime(snap.SavedAt),
	}
}

// StatsResponse 注册表统计
type StatsResponse struct {
	WorldID string         `json:"world_id"`
	Stats   registry.Stats `json:"stats"`
	Dirty   bool           `json:"dirty"`
}
