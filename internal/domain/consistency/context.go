package consistency

import (
	"strconv"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
)

// WorldContext 一次分析所用的只读世界状态
type WorldContext struct {
	Revision      uint64
	Entities      map[string]*entity.Entity
	Relationships []*entity.Relationship
	Events        []*entity.TimelineEvent
	WorldRules    []entity.WorldRule

	position  map[string]int
	timelines map[string][]*entity.TimelineEvent
	memo      map[string]any
}

// NewWorldContext 基于注册表状态构建上下文，state.Events 须已按规范时间顺序排列
func NewWorldContext(state *registry.State, rules []entity.WorldRule) *WorldContext {
	wc := &WorldContext{
		Revision:      state.Revision,
		Entities:      make(map[string]*entity.Entity, len(state.Entities)),
		Relationships: state.Relationships,
		Events:        state.Events,
		WorldRules:    rules,
		position:      make(map[string]int, len(state.Events)),
		timelines:     make(map[string][]*entity.TimelineEvent),
		memo:          make(map[string]any),
	}
	for _, e := range state.Entities {
		wc.Entities[e.ID] = e
	}
	for i, ev := range state.Events {
		wc.position[ev.ID] = i
		for _, c := range wc.Characters(ev) {
			wc.timelines[c.ID] = append(wc.timelines[c.ID], ev)
		}
	}
	return wc
}

// Entity 按 id 查询实体
func (wc *WorldContext) Entity(id string) (*entity.Entity, bool) {
	e, ok := wc.Entities[id]
	return e, ok
}

// Position 事件在规范顺序中的位置，不存在返回 -1
func (wc *WorldContext) Position(eventID string) int {
	if p, ok := wc.position[eventID]; ok {
		return p
	}
	return -1
}

// Event 按 id 查询事件
func (wc *WorldContext) Event(id string) (*entity.TimelineEvent, bool) {
	p, ok := wc.position[id]
	if !ok {
		return nil, false
	}
	return wc.Events[p], true
}

// Characters 事件涉及的角色实体（主实体在前）
func (wc *WorldContext) Characters(ev *entity.TimelineEvent) []*entity.Entity {
	var out []*entity.Entity
	for _, id := range ev.EntityIDs() {
		if e, ok := wc.Entities[id]; ok && e.Type == entity.EntityTypeCharacter {
			out = append(out, e)
		}
	}
	return out
}

// Timeline 角色按规范顺序排列的事件
func (wc *WorldContext) Timeline(characterID string) []*entity.TimelineEvent {
	return wc.timelines[characterID]
}

// Location 事件发生地点：StoryContext 的地点 id / 名称，其次第一个涉及的地点实体。
// 返回用于比较的小写键与展示名称。
func (wc *WorldContext) Location(ev *entity.TimelineEvent) (key, name string) {
	if sc := ev.StoryContext; sc != nil {
		if sc.LocationID != "" {
			if e, ok := wc.Entities[sc.LocationID]; ok {
				return strings.ToLower(strings.TrimSpace(e.Name)), e.Name
			}
		}
		if strings.TrimSpace(sc.Location) != "" {
			return strings.ToLower(strings.TrimSpace(sc.Location)), sc.Location
		}
	}
	for _, ref := range ev.InvolvedEntities {
		if e, ok := wc.Entities[ref.ID]; ok && e.Type == entity.EntityTypeLocation {
			return strings.ToLower(strings.TrimSpace(e.Name)), e.Name
		}
	}
	return "", ""
}

// memoize 在单次分析内缓存规则的派生数据
func (wc *WorldContext) memoize(key string, build func() any) any {
	if v, ok := wc.memo[key]; ok {
		return v
	}
	v := build()
	wc.memo[key] = v
	return v
}

// describeTime 时间戳的可读描述
func describeTime(ts entity.Timestamp) string {
	var parts []string
	if ts.AbsoluteDate != nil {
		parts = append(parts, ts.AbsoluteDate.Format("2006-01-02"))
	}
	if ts.SeriesBook != nil {
		parts = append(parts, "book "+strconv.Itoa(*ts.SeriesBook))
	}
	if ts.SeriesDay != nil {
		parts = append(parts, "series day "+formatDay(*ts.SeriesDay))
	}
	if ts.StoryDay != nil {
		parts = append(parts, "day "+formatDay(*ts.StoryDay))
	}
	if ts.StoryChapter != nil {
		parts = append(parts, "chapter "+strconv.Itoa(*ts.StoryChapter))
	}
	if ts.StoryScene != nil {
		parts = append(parts, "scene "+strconv.Itoa(*ts.StoryScene))
	}
	if ts.World != nil {
		w := strconv.Itoa(ts.World.Year)
		if ts.World.Era != "" {
			w += " " + ts.World.Era
		}
		parts = append(parts, "year "+w)
	}
	if len(parts) == 0 {
		if ts.Description != "" {
			return ts.Description
		}
		return "undated"
	}
	return strings.Join(parts, ", ")
}

func formatDay(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
