package entity

import (
	"time"
)

// RelationshipType 关系类型
type RelationshipType string

const (
	RelationshipContains     RelationshipType = "contains"
	RelationshipOwns         RelationshipType = "owns"
	RelationshipKnows        RelationshipType = "knows"
	RelationshipParticipates RelationshipType = "participates"
	RelationshipLocatedIn    RelationshipType = "located_in"
	RelationshipPrerequisite RelationshipType = "prerequisite"
	RelationshipEnemyOf      RelationshipType = "enemy_of"
	RelationshipAllyOf       RelationshipType = "ally_of"
	RelationshipMemberOf     RelationshipType = "member_of"
	RelationshipLeads        RelationshipType = "leads"
	RelationshipPartOf       RelationshipType = "part_of"
	RelationshipReferences   RelationshipType = "references"
	RelationshipInspiredBy   RelationshipType = "inspired_by"
	RelationshipParentOf     RelationshipType = "parent_of"
	RelationshipChildOf      RelationshipType = "child_of"
	RelationshipProduces     RelationshipType = "produces"
	RelationshipCustom       RelationshipType = "custom"
)

var relationshipTypes = map[RelationshipType]struct{}{
	RelationshipContains: {}, RelationshipOwns: {}, RelationshipKnows: {}, RelationshipParticipates: {},
	RelationshipLocatedIn: {}, RelationshipPrerequisite: {}, RelationshipEnemyOf: {}, RelationshipAllyOf: {},
	RelationshipMemberOf: {}, RelationshipLeads: {}, RelationshipPartOf: {}, RelationshipReferences: {},
	RelationshipInspiredBy: {}, RelationshipParentOf: {}, RelationshipChildOf: {}, RelationshipProduces: {},
	RelationshipCustom: {},
}

// Valid 是否为已知关系类型
func (t RelationshipType) Valid() bool {
	_, ok := relationshipTypes[t]
	return ok
}

const (
	MinStrength     = 1
	MaxStrength     = 10
	DefaultStrength = 5
)

// Relationship 两个实体间的有类型边
type Relationship struct {
	ID            string           `json:"id"`
	From          EntityRef        `json:"from"`
	To            EntityRef        `json:"to"`
	Type          RelationshipType `json:"type"`
	Strength      int              `json:"strength"`
	Bidirectional bool             `json:"bidirectional"`
	Description   string           `json:"description,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// RelationshipInput 新建关系参数
type RelationshipInput struct {
	ID            string           `json:"id,omitempty"`
	FromID        string           `json:"from_id"`
	ToID          string           `json:"to_id"`
	Type          RelationshipType `json:"type"`
	Strength      int              `json:"strength,omitempty"`
	Bidirectional bool             `json:"bidirectional"`
	Description   string           `json:"description,omitempty"`
}

// ClampStrength 强度限制在 1-10，0 表示默认值
func ClampStrength(strength int) int {
	switch {
	case strength == 0:
		return DefaultStrength
	case strength < MinStrength:
		return MinStrength
	case strength > MaxStrength:
		return MaxStrength
	}
	return strength
}

// Touches 关系是否以该实体为端点
func (r *Relationship) Touches(entityID string) bool {
	return r.From.ID == entityID || r.To.ID == entityID
}

// Other 返回另一端实体 id
func (r *Relationship) Other(entityID string) string {
	if r.From.ID == entityID {
		return r.To.ID
	}
	return r.From.ID
}

// Clone 拷贝
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// CrossReference 实体的交叉引用
type CrossReference struct {
	SourceID       string `json:"source_id"`
	RelationshipID string `json:"relationship_id"`
	Context        string `json:"context"`
}
