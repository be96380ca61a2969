package consistency

import (
	"z-novel-lore-api/internal/domain/entity"
)

// causalityRule 检查声明的依赖是否与时间戳矛盾，只比较时间戳本身
type causalityRule struct{}

// NewCausalityRule 创建因果顺序检查规则
func NewCausalityRule() Rule { return causalityRule{} }

func (causalityRule) ID() string { return RuleCausality }

func (causalityRule) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	var issues []entity.Issue
	for _, dep := range ev.Dependencies {
		target, ok := wc.Event(dep.TargetEventID)
		if !ok {
			continue
		}
		title, detail, severity, confidence, violated := checkDependency(ev, target, dep.Type)
		if !violated {
			continue
		}
		evidence := []string{quote(ev), quote(target)}
		if dep.Description != "" {
			evidence = append(evidence, "dependency: "+dep.Description)
		}
		issues = append(issues, entity.Issue{
			RuleID:      RuleCausality,
			Type:        severity,
			Category:    entity.CategoryTimeline,
			Title:       title,
			Description: detail,
			Confidence:  confidence,
			Evidence:    evidence,
			Suggestions: []string{
				"Move one of the events so the declared order holds",
				"Remove or change the dependency if it no longer applies",
			},
			EntityIDs: unionIDs(ev.EntityIDs(), target.EntityIDs()),
			EventIDs:  []string{ev.ID, target.ID},
		})
	}
	return issues
}

func checkDependency(ev, target *entity.TimelineEvent, t entity.DependencyType) (title, detail string, sev entity.Severity, conf float64, violated bool) {
	c, comparable := entity.CompareTimestamps(target.Timestamp, ev.Timestamp)
	switch t {
	case entity.DependencyMustHappenBefore:
		if comparable && c > 0 {
			return "Dependency happens after dependent event",
				"\"" + target.Name + "\" must happen before \"" + ev.Name + "\" but is dated later.",
				entity.SeverityCritical, 0.95, true
		}
	case entity.DependencyMustHappenAfter:
		if comparable && c < 0 {
			return "Dependency happens before dependent event",
				"\"" + target.Name + "\" must happen after \"" + ev.Name + "\" but is dated earlier.",
				entity.SeverityCritical, 0.95, true
		}
	case entity.DependencyMustHappenDuring:
		if overlaps, known := intervalsOverlap(ev, target); known && !overlaps {
			return "Events that must overlap do not",
				"\"" + ev.Name + "\" must happen during \"" + target.Name + "\" but their time spans do not overlap.",
				entity.SeverityMajor, 0.8, true
		}
	case entity.DependencyCannotHappenWith:
		if comparable && c == 0 {
			return "Mutually exclusive events happen together",
				"\"" + ev.Name + "\" cannot happen at the same time as \"" + target.Name + "\".",
				entity.SeverityMajor, 0.8, true
		}
	}
	return "", "", "", 0, false
}

// intervalsOverlap 以故事日 + 持续时长判断两个事件时间段是否重叠
func intervalsOverlap(a, b *entity.TimelineEvent) (overlaps, known bool) {
	if a.Timestamp.StoryDay == nil || b.Timestamp.StoryDay == nil {
		return false, false
	}
	span := func(ev *entity.TimelineEvent) (float64, float64) {
		start := *ev.Timestamp.StoryDay
		end := start
		if ev.Duration != nil {
			end += ev.Duration.Days()
		}
		return start, end
	}
	as, ae := span(a)
	bs, be := span(b)
	return as <= be && bs <= ae, true
}

// travelRule 同一角色在不足一个故事日内出现在两个不同地点
type travelRule struct{}

// NewTravelRule 创建行程可行性检查规则
func NewTravelRule() Rule { return travelRule{} }

func (travelRule) ID() string { return RuleTravel }

func (r travelRule) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	key, name := wc.Location(ev)
	if key == "" {
		return nil
	}
	if _, magic := anyPrefix(eventWords(ev), travelMagicPrefixes); magic {
		return nil
	}
	var issues []entity.Issue
	for _, c := range wc.Characters(ev) {
		prev := r.previousLocated(wc, c.ID)[ev.ID]
		if prev == nil {
			continue
		}
		prevKey, prevName := wc.Location(prev)
		if prevKey == key {
			continue
		}
		days, comparable := entity.ElapsedDays(prev.Timestamp, ev.Timestamp)
		if !comparable || days < 0 || days >= 1 {
			continue
		}
		issues = append(issues, entity.Issue{
			RuleID:      RuleTravel,
			Type:        entity.SeverityMajor,
			Category:    entity.CategoryLocation,
			Title:       c.Name + " travels from " + prevName + " to " + name + " too quickly",
			Description: c.Name + " is in " + prevName + " and then in " + name + " less than a day later.",
			Confidence:  0.8,
			Evidence:    []string{quote(prev), quote(ev)},
			Suggestions: []string{
				"Insert a travel event between the two locations",
				"Move the later event to allow enough travel time",
			},
			EntityIDs:   []string{c.ID},
			EventIDs:    []string{prev.ID, ev.ID},
			AutoFixable: true,
			FixHint:     FixInsertTravel,
		})
	}
	return issues
}

// previousLocated 角色时间线中每个带地点事件的前一个带地点事件
func (travelRule) previousLocated(wc *WorldContext, characterID string) map[string]*entity.TimelineEvent {
	return wc.memoize(RuleTravel+":"+characterID, func() any {
		out := make(map[string]*entity.TimelineEvent)
		var last *entity.TimelineEvent
		for _, ev := range wc.Timeline(characterID) {
			if key, _ := wc.Location(ev); key == "" {
				continue
			}
			if last != nil {
				out[ev.ID] = last
			}
			last = ev
		}
		return out
	}).(map[string]*entity.TimelineEvent)
}

func unionIDs(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, id := range b {
		if !containsString(out, id) {
			out = append(out, id)
		}
	}
	return out
}
