package dto

import (
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
)

// CreateEventRequest 创建时间线事件请求；涉及实体只传 id，名称与类型由注册表补全
type CreateEventRequest struct {
	ID                string                   `json:"id,omitempty" binding:"omitempty,max=128"`
	Name              string                   `json:"name" binding:"required,max=255"`
	Description       string                   `json:"description" binding:"max=10000"`
	Type              string                   `json:"type,omitempty"`
	Scope             string                   `json:"scope,omitempty"`
	Timestamp         entity.Timestamp         `json:"timestamp"`
	Duration          *entity.Duration         `json:"duration,omitempty"`
	InvolvedEntityIDs []string                 `json:"involved_entity_ids,omitempty"`
	PrimaryEntityID   string                   `json:"primary_entity_id,omitempty"`
	StoryContext      *entity.StoryContext     `json:"story_context,omitempty"`
	CharacterContext  *entity.CharacterContext `json:"character_context,omitempty"`
	WorldContext      *entity.WorldContextInfo `json:"world_context,omitempty"`
	PlotImpact        *entity.PlotImpact       `json:"plot_impact,omitempty"`
	Tags              []string                 `json:"tags,omitempty"`
	Status            string                   `json:"status,omitempty"`
	IsCanon           *bool                    `json:"is_canon,omitempty"`
	Dependencies      []entity.Dependency      `json:"dependencies,omitempty"`
}

// ToEvent 转换为领域事件
func (r *CreateEventRequest) ToEvent() *entity.TimelineEvent {
	ev := entity.NewTimelineEvent(r.Name, entity.EventType(r.Type), r.Timestamp)
	ev.ID = r.ID
	ev.Description = r.Description
	if r.Scope != "" {
		ev.Scope = entity.Scope(r.Scope)
	}
	if r.Status != "" {
		ev.Status = entity.EventStatus(r.Status)
	}
	if r.IsCanon != nil {
		ev.IsCanon = *r.IsCanon
	}
	ev.Duration = r.Duration
	ev.InvolvedEntities = refsOf(r.InvolvedEntityIDs)
	if r.PrimaryEntityID != "" {
		ev.PrimaryEntity = &entity.EntityRef{ID: r.PrimaryEntityID}
	}
	ev.StoryContext = r.StoryContext
	ev.CharacterContext = r.CharacterContext
	ev.WorldContext = r.WorldContext
	ev.PlotImpact = r.PlotImpact
	ev.Tags = entity.NormalizeTags(r.Tags)
	if r.Dependencies != nil {
		ev.Dependencies = r.Dependencies
	}
	return ev
}

func refsOf(ids []string) []entity.EntityRef {
	out := make([]entity.EntityRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.EntityRef{ID: id})
	}
	return out
}

// MoveEventRequest 移动事件请求
type MoveEventRequest struct {
	Timestamp entity.Timestamp `json:"timestamp"`
}

// DependencyRequest 添加依赖请求
type DependencyRequest struct {
	TargetEventID string `json:"target_event_id" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Description   string `json:"description,omitempty" binding:"max=2000"`
}

// ImportEventsRequest 批量导入事件请求
type ImportEventsRequest struct {
	Events          []*entity.TimelineEvent `json:"events" binding:"required"`
	ReplaceExisting bool                    `json:"replace_existing"`
}

// EventListResponse 事件列表响应
type EventListResponse struct {
	Events []*entity.TimelineEvent `json:"events"`
}

// EventGroupsResponse 视图查询结果
type EventGroupsResponse struct {
	Groups []entity.EventGroup `json:"groups"`
}

// ToEventListResponse 转换为事件列表响应
func ToEventListResponse(events []*entity.TimelineEvent) *EventListResponse {
	if events == nil {
		events = []*entity.TimelineEvent{}
	}
	return &EventListResponse{Events: events}
}

// ToEventGroupsResponse 转换视图查询结果
func ToEventGroupsResponse(groups []entity.EventGroup) *EventGroupsResponse {
	if groups == nil {
		groups = []entity.EventGroup{}
	}
	return &EventGroupsResponse{Groups: groups}
}

// ToScoredEvents 保证相似事件列表非 nil
func ToScoredEvents(list []registry.ScoredEvent) []registry.ScoredEvent {
	if list == nil {
		return []registry.ScoredEvent{}
	}
	return list
}
