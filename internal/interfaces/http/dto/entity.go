// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-lore-api/internal/application/adapter"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
)

// CreateEntityRequest 创建实体请求
type CreateEntityRequest struct {
	ID          string         `json:"id,omitempty" binding:"omitempty,max=128"`
	Type        string         `json:"type" binding:"required"`
	Name        string         `json:"name" binding:"required,max=255"`
	Description string         `json:"description" binding:"max=10000"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToEntity 转换为领域实体
func (r *CreateEntityRequest) ToEntity() *entity.Entity {
	e := entity.NewEntity(entity.EntityType(r.Type), r.Name, r.Tags...)
	e.ID = r.ID
	e.Description = r.Description
	for k, v := range r.Metadata {
		e.Metadata[k] = v
	}
	return e
}

// UpdateEntityRequest 更新实体请求；metadata 中值为 null 的键会被删除
type UpdateEntityRequest struct {
	Type        *string        `json:"type,omitempty"`
	Name        *string        `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string        `json:"description,omitempty" binding:"omitempty,max=10000"`
	Tags        *[]string      `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToPatch 转换为实体补丁
func (r *UpdateEntityRequest) ToPatch() entity.EntityPatch {
	patch := entity.EntityPatch{
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		Metadata:    r.Metadata,
	}
	if r.Type != nil {
		t := entity.EntityType(*r.Type)
		patch.Type = &t
	}
	return patch
}

// MergeRequest 合并请求，source 并入 target
type MergeRequest struct {
	SourceID string `json:"source_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
}

// ImportEntitiesRequest 批量导入实体请求
type ImportEntitiesRequest struct {
	Entities        []*entity.Entity `json:"entities" binding:"required"`
	ReplaceExisting bool             `json:"replace_existing"`
}

// EntityResponse 实体响应
type EntityResponse struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// EntityListResponse 实体列表响应
type EntityListResponse struct {
	Entities []*EntityResponse `json:"entities"`
}

// ScoredEntityResponse 相似实体
type ScoredEntityResponse struct {
	Entity *EntityResponse `json:"entity"`
	Score  int             `json:"score"`
}

// DuplicateGroupsResponse 疑似重复实体分组
type DuplicateGroupsResponse struct {
	Groups [][]*EntityResponse `json:"groups"`
}

// ImportResponse 导入结果
type ImportResponse struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// ValidationResponse 实体校验结果
type ValidationResponse struct {
	IsValid  bool                 `json:"is_valid"`
	Errors   []adapter.FieldIssue `json:"errors"`
	Warnings []adapter.FieldIssue `json:"warnings"`
}

// ToEntityResponse 转换为实体响应
func ToEntityResponse(e *entity.Entity) *EntityResponse {
	if e == nil {
		return nil
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return &EntityResponse{
		ID:          e.ID,
		Type:        string(e.Type),
		Name:        e.Name,
		Description: e.Description,
		Tags:        tags,
		Metadata:    e.Metadata,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

// ToEntityListResponse 转换为实体列表响应
func ToEntityListResponse(entities []*entity.Entity) *EntityListResponse {
	out := make([]*EntityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, ToEntityResponse(e))
	}
	return &EntityListResponse{Entities: out}
}

// ToScoredEntityResponses 转换相似实体列表
func ToScoredEntityResponses(list []registry.ScoredEntity) []*ScoredEntityResponse {
	out := make([]*ScoredEntityResponse, 0, len(list))
	for _, s := range list {
		out = append(out, &ScoredEntityResponse{Entity: ToEntityResponse(s.Entity), Score: s.Score})
	}
	return out
}

// ToDuplicateGroupsResponse 转换重复分组
func ToDuplicateGroupsResponse(groups [][]*entity.Entity) *DuplicateGroupsResponse {
	out := make([][]*EntityResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, ToEntityListResponse(g).Entities)
	}
	return &DuplicateGroupsResponse{Groups: out}
}

// ToImportResponse 转换导入结果
func ToImportResponse(r registry.ImportResult) *ImportResponse {
	return &ImportResponse{Added: r.Added, Replaced: r.Replaced, Skipped: r.Skipped}
}

// ToValidationResponse 转换校验结果
func ToValidationResponse(r adapter.ValidationResult) *ValidationResponse {
	resp := &ValidationResponse{IsValid: r.IsValid, Errors: r.Errors, Warnings: r.Warnings}
	if resp.Errors == nil {
		resp.Errors = []adapter.FieldIssue{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []adapter.FieldIssue{}
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
