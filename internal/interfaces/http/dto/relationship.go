package dto

import (
	"z-novel-lore-api/internal/domain/entity"
)

// CreateRelationshipRequest 创建关系请求
type CreateRelationshipRequest struct {
	ID            string `json:"id,omitempty" binding:"omitempty,max=128"`
	FromID        string `json:"from_id" binding:"required"`
	ToID          string `json:"to_id" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Strength      int    `json:"strength,omitempty"`
	Bidirectional bool   `json:"bidirectional"`
	Description   string `json:"description,omitempty" binding:"max=2000"`
}

// ToInput 转换为关系输入
func (r *CreateRelationshipRequest) ToInput() entity.RelationshipInput {
	return entity.RelationshipInput{
		ID:            r.ID,
		FromID:        r.FromID,
		ToID:          r.ToID,
		Type:          entity.RelationshipType(r.Type),
		Strength:      r.Strength,
		Bidirectional: r.Bidirectional,
		Description:   r.Description,
	}
}

// ImportRelationshipsRequest 批量导入关系请求
type ImportRelationshipsRequest struct {
	Relationships   []*entity.Relationship `json:"relationships" binding:"required"`
	ReplaceExisting bool                   `json:"replace_existing"`
}

// RelationshipResponse 关系响应
type RelationshipResponse struct {
	ID            string           `json:"id"`
	From          entity.EntityRef `json:"from"`
	To            entity.EntityRef `json:"to"`
	Type          string           `json:"type"`
	Strength      int              `json:"strength"`
	Bidirectional bool             `json:"bidirectional"`
	Description   string           `json:"description,omitempty"`
	CreatedAt     string           `json:"created_at"`
}

// RelationshipListResponse 关系列表响应
type RelationshipListResponse struct {
	Relationships []*RelationshipResponse `json:"relationships"`
}

// CrossReferenceListResponse 交叉引用列表
type CrossReferenceListResponse struct {
	EntityID   string                  `json:"entity_id"`
	References []entity.CrossReference `json:"references"`
}

// ToRelationshipResponse 转换为关系响应
func ToRelationshipResponse(r *entity.Relationship) *RelationshipResponse {
	if r == nil {
		return nil
	}
	return &RelationshipResponse{
		ID:            r.ID,
		From:          r.From,
		To:            r.To,
		Type:          string(r.Type),
		Strength:      r.Strength,
		Bidirectional: r.Bidirectional,
		Description:   r.Description,
		CreatedAt:     formatTime(r.CreatedAt),
	}
}

// ToRelationshipListResponse 转换为关系列表响应
func ToRelationshipListResponse(list []*entity.Relationship) *RelationshipListResponse {
	out := make([]*RelationshipResponse, 0, len(list))
	for _, r := range list {
		out = append(out, ToRelationshipResponse(r))
	}
	return &RelationshipListResponse{Relationships: out}
}

// ToCrossReferenceListResponse 转换交叉引用
func ToCrossReferenceListResponse(entityID string, refs []entity.CrossReference) *CrossReferenceListResponse {
	if refs == nil {
		refs = []entity.CrossReference{}
	}
	return &CrossReferenceListResponse{EntityID: entityID, References: refs}
}
