package entity

// ViewSortKey 视图排序方式
type ViewSortKey string

const (
	SortChronological ViewSortKey = "chronological"
	SortCreated       ViewSortKey = "created"
	SortName          ViewSortKey = "name"
	SortImportance    ViewSortKey = "importance"
)

// ViewGroupKey 视图分组方式
type ViewGroupKey string

const (
	GroupNone    ViewGroupKey = "none"
	GroupScope   ViewGroupKey = "scope"
	GroupType    ViewGroupKey = "type"
	GroupEntity  ViewGroupKey = "entity"
	GroupChapter ViewGroupKey = "chapter"
)

// TimeRange 时间范围，Start/End 为空表示不限
type TimeRange struct {
	Start *Timestamp `json:"start,omitempty"`
	End   *Timestamp `json:"end,omitempty"`
	// IncludeIncomparable 与边界不可比较的事件是否保留
	IncludeIncomparable bool `json:"include_incomparable"`
}

// Contains 判断时间戳是否落在范围内（闭区间）
func (r TimeRange) Contains(ts Timestamp) bool {
	if r.Start != nil {
		c, ok := CompareTimestamps(ts, *r.Start)
		if !ok {
			if !r.IncludeIncomparable {
				return false
			}
		} else if c < 0 {
			return false
		}
	}
	if r.End != nil {
		c, ok := CompareTimestamps(ts, *r.End)
		if !ok {
			if !r.IncludeIncomparable {
				return false
			}
		} else if c > 0 {
			return false
		}
	}
	return true
}

// TimelineView 保存的事件过滤/排序/分组配置，不拥有事件
type TimelineView struct {
	Name      string        `json:"name,omitempty"`
	Scopes    []Scope       `json:"scopes,omitempty"`
	EntityIDs []string      `json:"entity_ids,omitempty"`
	Types     []EventType   `json:"types,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	Statuses  []EventStatus `json:"statuses,omitempty"`
	CanonOnly bool          `json:"canon_only"`
	Range     *TimeRange    `json:"range,omitempty"`
	SortBy    ViewSortKey   `json:"sort_by,omitempty"`
	SortDesc  bool          `json:"sort_desc"`
	GroupBy   ViewGroupKey  `json:"group_by,omitempty"`
}

// Matches 事件是否满足视图过滤条件
func (v *TimelineView) Matches(e *TimelineEvent) bool {
	if v == nil {
		return true
	}
	if v.CanonOnly && !e.IsCanon {
		return false
	}
	if len(v.Scopes) > 0 && !contains(v.Scopes, e.Scope) {
		return false
	}
	if len(v.Types) > 0 && !contains(v.Types, e.Type) {
		return false
	}
	if len(v.Statuses) > 0 && !contains(v.Statuses, e.Status) {
		return false
	}
	if len(v.EntityIDs) > 0 {
		hit := false
		for _, id := range v.EntityIDs {
			if e.Involves(id) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(v.Tags) > 0 {
		hit := false
		for _, t := range v.Tags {
			if e.HasTag(t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if v.Range != nil && !v.Range.Contains(e.Timestamp) {
		return false
	}
	return true
}

// EventGroup 视图查询的分组结果
type EventGroup struct {
	Key    string           `json:"key"`
	Events []*TimelineEvent `json:"events"`
}

// TimelineAnalysis 时间线统计
type TimelineAnalysis struct {
	TotalEvents    int                 `json:"total_events"`
	ByType         map[EventType]int   `json:"by_type"`
	ByScope        map[Scope]int       `json:"by_scope"`
	ByImportance   map[int]int         `json:"by_importance"`
	ByStatus       map[EventStatus]int `json:"by_status"`
	CanonCount     int                 `json:"canon_count"`
	UndatedCount   int                 `json:"undated_count"`
	DependencyEdge int                 `json:"dependency_edges"`
	FirstStoryDay  *float64            `json:"first_story_day,omitempty"`
	LastStoryDay   *float64            `json:"last_story_day,omitempty"`
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
