package registry

import (
	"sort"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// CompareEvents 规范时间顺序比较：先比较时间戳（见 entity.CompareTimestamps），
// 时间戳不可比较或相等时按声明的依赖顺序，仍无法区分时返回 0 交给插入顺序
func CompareEvents(a, b *entity.TimelineEvent) int {
	c, _ := compareEvents(a, b)
	return c
}

// compareEvents 额外报告两事件之间是否存在任何可比较的依据
func compareEvents(a, b *entity.TimelineEvent) (int, bool) {
	c, ok := entity.CompareTimestamps(a.Timestamp, b.Timestamp)
	if ok && c != 0 {
		return c, true
	}
	if d := dependencyOrder(a, b); d != 0 {
		return d, true
	}
	return 0, ok
}

// dependencyOrder 依据 a、b 之间的直接依赖给出先后
func dependencyOrder(a, b *entity.TimelineEvent) int {
	for _, d := range a.Dependencies {
		if d.TargetEventID != b.ID {
			continue
		}
		switch d.Type {
		case entity.DependencyMustHappenBefore:
			return 1
		case entity.DependencyMustHappenAfter:
			return -1
		}
	}
	for _, d := range b.Dependencies {
		if d.TargetEventID != a.ID {
			continue
		}
		switch d.Type {
		case entity.DependencyMustHappenBefore:
			return -1
		case entity.DependencyMustHappenAfter:
			return 1
		}
	}
	return 0
}

// SortChronologically 原地排序，输入须已按插入顺序排列。
// 与任何事件都不可比较的事件留在原位；其余事件按两两比较得到的先后关系做拓扑排序，
// 无先后约束时按插入顺序，时间戳与依赖互相矛盾形成环时取最早插入的事件打破
func SortChronologically(events []*entity.TimelineEvent) {
	n := len(events)
	if n < 2 {
		return
	}

	later := make([][]int, n)
	indeg := make([]int, n)
	linked := make([]bool, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c, ok := compareEvents(events[i], events[j])
			if !ok {
				continue
			}
			linked[i], linked[j] = true, true
			switch {
			case c < 0:
				later[i] = append(later[i], j)
				indeg[j]++
			case c > 0:
				later[j] = append(later[j], i)
				indeg[i]++
			}
		}
	}

	ordered := make([]*entity.TimelineEvent, 0, n)
	done := make([]bool, n)
	for {
		next, fallback := -1, -1
		for i := 0; i < n; i++ {
			if done[i] || !linked[i] {
				continue
			}
			if fallback < 0 {
				fallback = i
			}
			if indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			next = fallback
		}
		if next < 0 {
			break
		}
		done[next] = true
		ordered = append(ordered, events[next])
		for _, j := range later[next] {
			indeg[j]--
		}
	}

	out := make([]*entity.TimelineEvent, n)
	k := 0
	for i := range events {
		if linked[i] {
			out[i] = ordered[k]
			k++
		} else {
			out[i] = events[i]
		}
	}
	copy(events, out)
}

// SortedEvents 按规范时间顺序返回全部事件
func (r *Registry) SortedEvents() []*entity.TimelineEvent {
	r.mu.RLock()
	events := r.eventsLocked()
	r.mu.RUnlock()

	SortChronologically(events)
	return events
}

// precedenceEdges 事件依赖声明的先后边，每条边为 [较早, 较晚]
func precedenceEdges(ev *entity.TimelineEvent) [][2]string {
	var edges [][2]string
	for _, d := range ev.Dependencies {
		switch d.Type {
		case entity.DependencyMustHappenBefore:
			edges = append(edges, [2]string{d.TargetEventID, ev.ID})
		case entity.DependencyMustHappenAfter:
			edges = append(edges, [2]string{ev.ID, d.TargetEventID})
		}
	}
	return edges
}

// findDependencyCycle 在先后依赖图中查找环，返回环上的事件 id（首尾相同）。
// alias 把事件 id 映射到图节点，用于校验合并后的图；映射到同一节点的边被忽略
func findDependencyCycle(events []*entity.TimelineEvent, alias map[string]string) []string {
	node := func(id string) string {
		if to, ok := alias[id]; ok {
			return to
		}
		return id
	}
	graph := make(map[string][]string)
	for _, ev := range events {
		for _, e := range precedenceEdges(ev) {
			from, to := node(e[0]), node(e[1])
			if from != to {
				graph[from] = append(graph[from], to)
			}
		}
	}
	roots := make([]string, 0, len(graph))
	for id, next := range graph {
		roots = append(roots, id)
		sort.Strings(next)
	}
	sort.Strings(roots)

	const (
		visiting = 1
		finished = 2
	)
	state := make(map[string]int, len(graph))
	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = visiting
		path = append(path, id)
		for _, next := range graph[id] {
			switch state[next] {
			case visiting:
				for i, p := range path {
					if p == next {
						return append(append([]string(nil), path[i:]...), next)
					}
				}
			case 0:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = finished
		return nil
	}
	for _, id := range roots {
		if state[id] != 0 {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

// checkAcyclic 用 overrides 替换或追加事件后校验依赖图无环，调用方须持有写锁
func (r *Registry) checkAcyclic(alias map[string]string, overrides ...*entity.TimelineEvent) error {
	replaced := make(map[string]*entity.TimelineEvent, len(overrides))
	for _, ev := range overrides {
		replaced[ev.ID] = ev
	}
	events := make([]*entity.TimelineEvent, 0, len(r.events)+len(overrides))
	for id, ev := range r.events {
		if o, ok := replaced[id]; ok {
			ev = o
			delete(replaced, id)
		}
		events = append(events, ev)
	}
	for _, ev := range overrides {
		if _, pending := replaced[ev.ID]; pending {
			events = append(events, ev)
		}
	}
	if cycle := findDependencyCycle(events, alias); cycle != nil {
		return apperrors.ErrInvalidParam.WithDetail("dependency cycle: " + strings.Join(cycle, " -> "))
	}
	return nil
}
