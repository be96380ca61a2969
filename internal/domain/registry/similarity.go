package registry

import (
	"sort"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

const defaultSimilarLimit = 10

// ScoredEntity 相似实体
type ScoredEntity struct {
	Entity *entity.Entity `json:"entity"`
	Score  int            `json:"score"`
}

// ScoredEvent 相似事件
type ScoredEvent struct {
	Event *entity.TimelineEvent `json:"event"`
	Score int                   `json:"score"`
}

// FindSimilar 相同类型 +5，每个共同标签 +2，名称重叠 +3；只返回得分大于 0 的，同分按插入顺序
func (r *Registry) FindSimilar(id string, limit int) ([]ScoredEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base, ok := r.entities[id]
	if !ok {
		return nil, apperrors.ErrEntityNotFound.WithDetail(id)
	}
	var out []ScoredEntity
	for _, other := range r.entitiesLocked() {
		if other.ID == id {
			continue
		}
		if s := entitySimilarity(base, other); s > 0 {
			out = append(out, ScoredEntity{Entity: other, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, limit), nil
}

func entitySimilarity(a, b *entity.Entity) int {
	score := 0
	if a.Type == b.Type {
		score += 5
	}
	for _, t := range a.Tags {
		if b.HasTag(t) {
			score += 2
		}
	}
	if namesOverlap(a.Name, b.Name) {
		score += 3
	}
	return score
}

// namesOverlap 一方名称包含另一方，或共享长度不小于 3 的词
func namesOverlap(a, b string) bool {
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	words := make(map[string]struct{})
	for _, w := range tokenize(la) {
		if len([]rune(w)) >= 3 {
			words[w] = struct{}{}
		}
	}
	for _, w := range tokenize(lb) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

// FindSimilarEvents 类型 +3，作用域 +2，每个共同实体 +2，每个共同标签 +1，重要性相差不超过 1 +1
func (r *Registry) FindSimilarEvents(id string, limit int) ([]ScoredEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound.WithDetail(id)
	}
	var out []ScoredEvent
	for _, other := range r.eventsLocked() {
		if other.ID == id {
			continue
		}
		if s := eventSimilarity(base, other); s > 0 {
			out = append(out, ScoredEvent{Event: other, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, limit), nil
}

func eventSimilarity(a, b *entity.TimelineEvent) int {
	score := 0
	if a.Type == b.Type {
		score += 3
	}
	if a.Scope == b.Scope {
		score += 2
	}
	for _, id := range a.EntityIDs() {
		if b.Involves(id) {
			score += 2
		}
	}
	for _, t := range a.Tags {
		if b.HasTag(t) {
			score++
		}
	}
	if a.PlotImpact != nil && b.PlotImpact != nil {
		d := a.PlotImpact.Importance - b.PlotImpact.Importance
		if d >= -1 && d <= 1 {
			score++
		}
	}
	return score
}

func truncate[T any](list []T, limit int) []T {
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	if len(list) > limit {
		list = list[:limit]
	}
	if list == nil {
		list = []T{}
	}
	return list
}
