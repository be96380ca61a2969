package entity

import (
	"strings"
	"time"
)

// EventType 时间线事件类型
type EventType string

const (
	EventTypeStoryEvent       EventType = "story_event"
	EventTypeCharacterArc     EventType = "character_arc"
	EventTypeWorldChange      EventType = "world_change"
	EventTypeSeriesEvent      EventType = "series_event"
	EventTypeWritingMilestone EventType = "writing_milestone"
	EventTypePlotPoint        EventType = "plot_point"
	EventTypeChapterBoundary  EventType = "chapter_boundary"
	EventTypeFlashback        EventType = "flashback"
	EventTypeForeshadowing    EventType = "foreshadowing"
	EventTypeCustom           EventType = "custom"
)

// Valid 是否为已知事件类型
func (t EventType) Valid() bool {
	switch t {
	case EventTypeStoryEvent, EventTypeCharacterArc, EventTypeWorldChange, EventTypeSeriesEvent,
		EventTypeWritingMilestone, EventTypePlotPoint, EventTypeChapterBoundary, EventTypeFlashback,
		EventTypeForeshadowing, EventTypeCustom:
		return true
	}
	return false
}

// Scope 事件作用域
type Scope string

const (
	ScopeStory     Scope = "story"
	ScopeSeries    Scope = "series"
	ScopeCharacter Scope = "character"
	ScopeWorld     Scope = "world"
	ScopeWriting   Scope = "writing"
	ScopeGlobal    Scope = "global"
)

// Valid 是否为已知作用域
func (s Scope) Valid() bool {
	switch s {
	case ScopeStory, ScopeSeries, ScopeCharacter, ScopeWorld, ScopeWriting, ScopeGlobal:
		return true
	}
	return false
}

// EventStatus 事件状态
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusPublished EventStatus = "published"
	EventStatusArchived  EventStatus = "archived"
)

// DependencyType 事件依赖类型
type DependencyType string

const (
	// DependencyMustHappenBefore 目标事件必须先于本事件发生
	DependencyMustHappenBefore DependencyType = "must_happen_before"
	// DependencyMustHappenAfter 目标事件必须晚于本事件发生
	DependencyMustHappenAfter DependencyType = "must_happen_after"
	// DependencyMustHappenDuring 两事件时间段必须重叠
	DependencyMustHappenDuring DependencyType = "must_happen_during"
	// DependencyCannotHappenWith 两事件不能同时发生
	DependencyCannotHappenWith DependencyType = "cannot_happen_with"
)

// Valid 是否为已知依赖类型
func (t DependencyType) Valid() bool {
	switch t {
	case DependencyMustHappenBefore, DependencyMustHappenAfter, DependencyMustHappenDuring, DependencyCannotHappenWith:
		return true
	}
	return false
}

// Dependency 事件之间的时序约束
type Dependency struct {
	TargetEventID string         `json:"target_event_id"`
	Type          DependencyType `json:"type"`
	Description   string         `json:"description,omitempty"`
}

// StoryContext 事件所在的故事位置
type StoryContext struct {
	StoryID    string `json:"story_id,omitempty"`
	ChapterID  string `json:"chapter_id,omitempty"`
	SceneID    string `json:"scene_id,omitempty"`
	Location   string `json:"location,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

// CharacterContext 角色视角信息
type CharacterContext struct {
	CharacterID     string   `json:"character_id,omitempty"`
	EmotionalState  string   `json:"emotional_state,omitempty"`
	KnowledgeGained []string `json:"knowledge_gained,omitempty"`
	AgeAtEvent      *int     `json:"age_at_event,omitempty"`
}

// WorldContextInfo 事件发生时的世界状态
type WorldContextInfo struct {
	Region           string `json:"region,omitempty"`
	Season           string `json:"season,omitempty"`
	Weather          string `json:"weather,omitempty"`
	PoliticalClimate string `json:"political_climate,omitempty"`
}

// PlotImpact 剧情影响
type PlotImpact struct {
	Importance       int      `json:"importance"`
	AffectedThreads  []string `json:"affected_threads,omitempty"`
	Consequences     []string `json:"consequences,omitempty"`
	ForeshadowingIDs []string `json:"foreshadowing_ids,omitempty"`
	CallbackIDs      []string `json:"callback_ids,omitempty"`
}

// TimelineEvent 时间线事件
type TimelineEvent struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Type             EventType         `json:"type"`
	Scope            Scope             `json:"scope"`
	Timestamp        Timestamp         `json:"timestamp"`
	Duration         *Duration         `json:"duration,omitempty"`
	InvolvedEntities []EntityRef       `json:"involved_entities"`
	PrimaryEntity    *EntityRef        `json:"primary_entity,omitempty"`
	StoryContext     *StoryContext     `json:"story_context,omitempty"`
	CharacterContext *CharacterContext `json:"character_context,omitempty"`
	WorldContext     *WorldContextInfo `json:"world_context,omitempty"`
	PlotImpact       *PlotImpact       `json:"plot_impact,omitempty"`
	Tags             []string          `json:"tags"`
	Status           EventStatus       `json:"status"`
	IsCanon          bool              `json:"is_canon"`
	Dependencies     []Dependency      `json:"dependencies"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewTimelineEvent 创建新事件
func NewTimelineEvent(name string, eventType EventType, ts Timestamp) *TimelineEvent {
	now := time.Now().UTC()
	return &TimelineEvent{
		Name:             name,
		Type:             eventType,
		Scope:            ScopeStory,
		Timestamp:        ts,
		InvolvedEntities: []EntityRef{},
		Tags:             []string{},
		Status:           EventStatusDraft,
		IsCanon:          true,
		Dependencies:     []Dependency{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Involves 事件是否涉及某实体（参与者或主实体）
func (e *TimelineEvent) Involves(entityID string) bool {
	if e.PrimaryEntity != nil && e.PrimaryEntity.ID == entityID {
		return true
	}
	for _, ref := range e.InvolvedEntities {
		if ref.ID == entityID {
			return true
		}
	}
	return false
}

// EntityIDs 涉及的实体 id（主实体在前，去重）
func (e *TimelineEvent) EntityIDs() []string {
	ids := make([]string, 0, len(e.InvolvedEntities)+1)
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if e.PrimaryEntity != nil {
		add(e.PrimaryEntity.ID)
	}
	for _, ref := range e.InvolvedEntities {
		add(ref.ID)
	}
	return ids
}

// Importance 剧情重要性，未设置为 0
func (e *TimelineEvent) Importance() int {
	if e.PlotImpact == nil {
		return 0
	}
	return e.PlotImpact.Importance
}

// Text 事件名称、描述、标签拼接后的小写文本
func (e *TimelineEvent) Text() string {
	parts := []string{e.Name, e.Description}
	parts = append(parts, e.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// HasTag 是否包含标签
func (e *TimelineEvent) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DependsOn 是否存在指向目标事件的依赖
func (e *TimelineEvent) DependsOn(targetID string) bool {
	for _, d := range e.Dependencies {
		if d.TargetEventID == targetID {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (e *TimelineEvent) Clone() *TimelineEvent {
	if e == nil {
		return nil
	}
	out := *e
	out.Timestamp = e.Timestamp.Clone()
	out.Duration = clonePtr(e.Duration)
	out.InvolvedEntities = append([]EntityRef{}, e.InvolvedEntities...)
	out.PrimaryEntity = clonePtr(e.PrimaryEntity)
	out.StoryContext = clonePtr(e.StoryContext)
	if e.CharacterContext != nil {
		cc := *e.CharacterContext
		cc.KnowledgeGained = append([]string(nil), e.CharacterContext.KnowledgeGained...)
		cc.AgeAtEvent = clonePtr(e.CharacterContext.AgeAtEvent)
		out.CharacterContext = &cc
	}
	out.WorldContext = clonePtr(e.WorldContext)
	if e.PlotImpact != nil {
		pi := *e.PlotImpact
		pi.AffectedThreads = append([]string(nil), e.PlotImpact.AffectedThreads...)
		pi.Consequences = append([]string(nil), e.PlotImpact.Consequences...)
		pi.ForeshadowingIDs = append([]string(nil), e.PlotImpact.ForeshadowingIDs...)
		pi.CallbackIDs = append([]string(nil), e.PlotImpact.CallbackIDs...)
		out.PlotImpact = &pi
	}
	out.Tags = append([]string{}, e.Tags...)
	out.Dependencies = append([]Dependency{}, e.Dependencies...)
	return &out
}

// EventPatch 事件部分更新，nil 字段保持不变
type EventPatch struct {
	Name              *string           `json:"name,omitempty"`
	Description       *string           `json:"description,omitempty"`
	Type              *EventType        `json:"type,omitempty"`
	Scope             *Scope            `json:"scope,omitempty"`
	Timestamp         *Timestamp        `json:"timestamp,omitempty"`
	Duration          *Duration         `json:"duration,omitempty"`
	InvolvedEntityIDs *[]string         `json:"involved_entity_ids,omitempty"`
	PrimaryEntityID   *string           `json:"primary_entity_id,omitempty"`
	StoryContext      *StoryContext     `json:"story_context,omitempty"`
	CharacterContext  *CharacterContext `json:"character_context,omitempty"`
	WorldContext      *WorldContextInfo `json:"world_context,omitempty"`
	PlotImpact        *PlotImpact       `json:"plot_impact,omitempty"`
	Tags              *[]string         `json:"tags,omitempty"`
	Status            *EventStatus      `json:"status,omitempty"`
	IsCanon           *bool             `json:"is_canon,omitempty"`
}

// ApplyScalars 应用不涉及实体引用的字段，引用字段由注册表解析
func (p EventPatch) ApplyScalars(e *TimelineEvent) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Scope != nil {
		e.Scope = *p.Scope
	}
	if p.Timestamp != nil {
		e.Timestamp = p.Timestamp.Clone()
	}
	if p.Duration != nil {
		d := *p.Duration
		e.Duration = &d
	}
	if p.StoryContext != nil {
		sc := *p.StoryContext
		e.StoryContext = &sc
	}
	if p.CharacterContext != nil {
		tmp := TimelineEvent{CharacterContext: p.CharacterContext}
		e.CharacterContext = tmp.Clone().CharacterContext
	}
	if p.WorldContext != nil {
		wc := *p.WorldContext
		e.WorldContext = &wc
	}
	if p.PlotImpact != nil {
		tmp := TimelineEvent{PlotImpact: p.PlotImpact}
		e.PlotImpact = tmp.Clone().PlotImpact
	}
	if p.Tags != nil {
		e.Tags = NormalizeTags(*p.Tags)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.IsCanon != nil {
		e.IsCanon = *p.IsCanon
	}
}
