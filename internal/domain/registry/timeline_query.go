package registry

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
)

func (r *Registry) filterEvents(keep func(*entity.TimelineEvent) bool) []*entity.TimelineEvent {
	all := r.SortedEvents()
	out := make([]*entity.TimelineEvent, 0, len(all))
	for _, ev := range all {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsByScope 按作用域查询，结果按时间顺序
func (r *Registry) EventsByScope(scope entity.Scope) []*entity.TimelineEvent {
	return r.filterEvents(func(ev *entity.TimelineEvent) bool { return ev.Scope == scope })
}

// EventsByType 按事件类型查询
func (r *Registry) EventsByType(t entity.EventType) []*entity.TimelineEvent {
	return r.filterEvents(func(ev *entity.TimelineEvent) bool { return ev.Type == t })
}

// EventsByEntity 查询涉及某实体的事件
func (r *Registry) EventsByEntity(entityID string) []*entity.TimelineEvent {
	return r.filterEvents(func(ev *entity.TimelineEvent) bool { return ev.Involves(entityID) })
}

// EventsInRange 按时间范围查询，与边界不可比较的事件按 rng.IncludeIncomparable 处理
func (r *Registry) EventsInRange(rng entity.TimeRange) []*entity.TimelineEvent {
	return r.filterEvents(func(ev *entity.TimelineEvent) bool { return rng.Contains(ev.Timestamp) })
}

// QueryEvents 按视图过滤、排序并分组
func (r *Registry) QueryEvents(view *entity.TimelineView) []entity.EventGroup {
	events := r.filterEvents(view.Matches)

	var sortBy entity.ViewSortKey
	var desc bool
	groupBy := entity.GroupNone
	if view != nil {
		sortBy, desc = view.SortBy, view.SortDesc
		if view.GroupBy != "" {
			groupBy = view.GroupBy
		}
	}
	sortView(events, sortBy)
	if desc {
		slices.Reverse(events)
	}
	return groupEvents(events, groupBy)
}

func sortView(events []*entity.TimelineEvent, key entity.ViewSortKey) {
	switch key {
	case entity.SortCreated:
		sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	case entity.SortName:
		sort.SliceStable(events, func(i, j int) bool {
			return strings.ToLower(events[i].Name) < strings.ToLower(events[j].Name)
		})
	case entity.SortImportance:
		sort.SliceStable(events, func(i, j int) bool { return events[i].Importance() > events[j].Importance() })
	}
}

func groupEvents(events []*entity.TimelineEvent, by entity.ViewGroupKey) []entity.EventGroup {
	if by == entity.GroupNone {
		return []entity.EventGroup{{Key: "all", Events: events}}
	}
	index := make(map[string]int)
	var groups []entity.EventGroup
	add := func(key string, ev *entity.TimelineEvent) {
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, entity.EventGroup{Key: key})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	for _, ev := range events {
		switch by {
		case entity.GroupScope:
			add(string(ev.Scope), ev)
		case entity.GroupType:
			add(string(ev.Type), ev)
		case entity.GroupEntity:
			ids := ev.EntityIDs()
			if len(ids) == 0 {
				add("unassigned", ev)
			}
			for _, id := range ids {
				add(id, ev)
			}
		case entity.GroupChapter:
			add(chapterKey(ev), ev)
		default:
			add("all", ev)
		}
	}
	return groups
}

func chapterKey(ev *entity.TimelineEvent) string {
	if ev.StoryContext != nil && ev.StoryContext.ChapterID != "" {
		return ev.StoryContext.ChapterID
	}
	if ev.Timestamp.StoryChapter != nil {
		return "chapter-" + strconv.Itoa(*ev.Timestamp.StoryChapter)
	}
	return "unassigned"
}

// Analyze 汇总（可选视图过滤后的）事件统计，只读
func (r *Registry) Analyze(view *entity.TimelineView) entity.TimelineAnalysis {
	events := r.filterEvents(view.Matches)
	out := entity.TimelineAnalysis{
		TotalEvents:  len(events),
		ByType:       make(map[entity.EventType]int),
		ByScope:      make(map[entity.Scope]int),
		ByImportance: make(map[int]int),
		ByStatus:     make(map[entity.EventStatus]int),
	}
	for _, ev := range events {
		out.ByType[ev.Type]++
		out.ByScope[ev.Scope]++
		out.ByImportance[ev.Importance()]++
		out.ByStatus[ev.Status]++
		if ev.IsCanon {
			out.CanonCount++
		}
		if ev.Timestamp.IsZero() {
			out.UndatedCount++
		}
		out.DependencyEdge += len(ev.Dependencies)
		if d := ev.Timestamp.StoryDay; d != nil {
			if out.FirstStoryDay == nil || *d < *out.FirstStoryDay {
				v := *d
				out.FirstStoryDay = &v
			}
			if out.LastStoryDay == nil || *d > *out.LastStoryDay {
				v := *d
				out.LastStoryDay = &v
			}
		}
	}
	return out
}
