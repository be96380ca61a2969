package postgres

import (
	"time"

	"github.com/lib/pq"

	"z-novel-lore-api/internal/domain/entity"
)

// snapshotModel 快照头记录
type snapshotModel struct {
	WorldID           string             `gorm:"primaryKey;size:128"`
	Revision          uint64             `gorm:"primaryKey"`
	Version           int                `gorm:"not null"`
	EntityCount       int                `gorm:"not null"`
	RelationshipCount int                `gorm:"not null"`
	EventCount        int                `gorm:"not null"`
	WorldRules        []entity.WorldRule `gorm:"type:jsonb;serializer:json"`
	SavedAt           time.Time          `gorm:"not null;index"`
}

func (snapshotModel) TableName() string { return "lore_snapshots" }

// entityModel 实体明细，Position 保存注册表插入顺序
type entityModel struct {
	WorldID     string         `gorm:"primaryKey;size:128"`
	Revision    uint64         `gorm:"primaryKey"`
	ID          string         `gorm:"primaryKey;size:128"`
	Position    int            `gorm:"not null"`
	Type        string         `gorm:"size:32;index"`
	Name        string         `gorm:"not null"`
	Description string         `gorm:"type:text"`
	Tags        pq.StringArray `gorm:"type:text[]"`
	Metadata    map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (entityModel) TableName() string { return "lore_entities" }

type relationshipModel struct {
	WorldID       string `gorm:"primaryKey;size:128"`
	Revision      uint64 `gorm:"primaryKey"`
	ID            string `gorm:"primaryKey;size:128"`
	Position      int    `gorm:"not null"`
	FromID        string `gorm:"size:128;index"`
	ToID          string `gorm:"size:128;index"`
	Type          string `gorm:"size:32"`
	Strength      int
	Bidirectional bool
	Description   string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (relationshipModel) TableName() string { return "lore_relationships" }

// eventModel 事件明细；完整事件以 JSON 保存在 Payload，其余列用于查询
type eventModel struct {
	WorldID   string                `gorm:"primaryKey;size:128"`
	Revision  uint64                `gorm:"primaryKey"`
	ID        string                `gorm:"primaryKey;size:128"`
	Position  int                   `gorm:"not null"`
	Name      string                `gorm:"not null"`
	Type      string                `gorm:"size:32;index"`
	Status    string                `gorm:"size:32"`
	IsCanon   bool                  `gorm:"not null"`
	StoryDay  *float64              `gorm:"index"`
	EntityIDs pq.StringArray        `gorm:"type:text[]"`
	Tags      pq.StringArray        `gorm:"type:text[]"`
	Payload   *entity.TimelineEvent `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (eventModel) TableName() string { return "lore_events" }

func toEntityModel(worldID string, revision uint64, pos int, e *entity.Entity) *entityModel {
	return &entityModel{
		WorldID:     worldID,
		Revision:    revision,
		ID:          e.ID,
		Position:    pos,
		Type:        string(e.Type),
		Name:        e.Name,
		Description: e.Description,
		Tags:        pq.StringArray(e.Tags),
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (m *entityModel) toEntity() *entity.Entity {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &entity.Entity{
		ID:          m.ID,
		Type:        entity.EntityType(m.Type),
		Name:        m.Name,
		Description: m.Description,
		Tags:        tags,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toRelationshipModel(worldID string, revision uint64, pos int, r *entity.Relationship) *relationshipModel {
	return &relationshipModel{
		WorldID:       worldID,
		Revision:      revision,
		ID:            r.ID,
		Position:      pos,
		FromID:        r.From.ID,
		ToID:          r.To.ID,
		Type:          string(r.Type),
		Strength:      r.Strength,
		Bidirectional: r.Bidirectional,
		Description:   r.Description,
		CreatedAt:     r.CreatedAt,
	}
}

// toRelationship 端点的名称和类型从同一版本的实体行恢复
func (m *relationshipModel) toRelationship(refs map[string]entity.EntityRef) *entity.Relationship {
	ref := func(id string) entity.EntityRef {
		if r, ok := refs[id]; ok {
			return r
		}
		return entity.EntityRef{ID: id}
	}
	return &entity.Relationship{
		ID:            m.ID,
		From:          ref(m.FromID),
		To:            ref(m.ToID),
		Type:          entity.RelationshipType(m.Type),
		Strength:      m.Strength,
		Bidirectional: m.Bidirectional,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
	}
}

func toEventModel(worldID string, revision uint64, pos int, ev *entity.TimelineEvent) *eventModel {
	ids := make([]string, 0, len(ev.InvolvedEntities))
	for _, ref := range ev.InvolvedEntities {
		ids = append(ids, ref.ID)
	}
	return &eventModel{
		WorldID:   worldID,
		Revision:  revision,
		ID:        ev.ID,
		Position:  pos,
		Name:      ev.Name,
		Type:      string(ev.Type),
		Status:    string(ev.Status),
		IsCanon:   ev.IsCanon,
		StoryDay:  ev.Timestamp.StoryDay,
		EntityIDs: pq.StringArray(ids),
		Tags:      pq.StringArray(ev.Tags),
		Payload:   ev,
		CreatedAt: ev.CreatedAt,
		UpdatedAt: ev.UpdatedAt,
	}
}
