package entity

import (
	"strings"
	"time"
)

// EntityType 实体类型
type EntityType string

const (
	EntityTypeCharacter      EntityType = "character"
	EntityTypeLocation       EntityType = "location"
	EntityTypeItem           EntityType = "item"
	EntityTypeSkill          EntityType = "skill"
	EntityTypeEvent          EntityType = "event"
	EntityTypeQuest          EntityType = "quest"
	EntityTypeFaction        EntityType = "faction"
	EntityTypeStory          EntityType = "story"
	EntityTypeChapter        EntityType = "chapter"
	EntityTypeSeries         EntityType = "series"
	EntityTypeLootTable      EntityType = "loot_table"
	EntityTypeResearchSource EntityType = "research_source"
)

// EntityTypes 全部实体类型
var EntityTypes = []EntityType{
	EntityTypeCharacter, EntityTypeLocation, EntityTypeItem, EntityTypeSkill,
	EntityTypeEvent, EntityTypeQuest, EntityTypeFaction, EntityTypeStory,
	EntityTypeChapter, EntityTypeSeries, EntityTypeLootTable, EntityTypeResearchSource,
}

// Valid 是否为已知类型
func (t EntityType) Valid() bool {
	for _, v := range EntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Entity 世界设定中的命名实体
type Entity struct {
	ID          string         `json:"id"`
	Type        EntityType     `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewEntity 创建新实体
func NewEntity(entityType EntityType, name string, tags ...string) *Entity {
	now := time.Now().UTC()
	return &Entity{
		Type:      entityType,
		Name:      name,
		Tags:      NormalizeTags(tags),
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ref 返回实体引用快照
func (e *Entity) Ref() EntityRef {
	return EntityRef{ID: e.ID, Type: e.Type, Name: e.Name}
}

// HasTag 是否包含标签
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := *e
	out.Tags = append([]string{}, e.Tags...)
	out.Metadata = CloneMetadata(e.Metadata)
	return &out
}

// EntityRef 实体引用（id + 类型 + 名称快照）
type EntityRef struct {
	ID   string     `json:"id"`
	Type EntityType `json:"type"`
	Name string     `json:"name"`
}

// EntityPatch 实体部分更新，nil 字段保持不变
type EntityPatch struct {
	Name        *string        `json:"name,omitempty"`
	Type        *EntityType    `json:"type,omitempty"`
	Description *string        `json:"description,omitempty"`
	Tags        *[]string      `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Apply 将补丁应用到实体副本上，Metadata 按键合并，值为 nil 的键被删除
func (p EntityPatch) Apply(e *Entity) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Tags != nil {
		e.Tags = NormalizeTags(*p.Tags)
	}
	if len(p.Metadata) > 0 {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			if v == nil {
				delete(e.Metadata, k)
				continue
			}
			e.Metadata[k] = CloneValue(v)
		}
	}
}

// NormalizeTags 去空白、去重，保留首次出现顺序
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UnionTags 合并两组标签，a 的顺序在前
func UnionTags(a, b []string) []string {
	return NormalizeTags(append(append([]string{}, a...), b...))
}

// CloneMetadata 深拷贝元数据
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue 深拷贝 JSON 形态的值（map / slice），其他值原样返回
func CloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneMetadata(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, x...)
	default:
		return v
	}
}
