package consistency

import (
	"z-novel-lore-api/internal/domain/entity"
)

// mortalityRule 角色死亡后再次出场
type mortalityRule struct{}

// NewMortalityRule 创建死亡检查规则
func NewMortalityRule() Rule { return mortalityRule{} }

func (mortalityRule) ID() string { return RuleMortality }

func (r mortalityRule) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	var issues []entity.Issue
	for _, c := range wc.Characters(ev) {
		death, ok := r.deaths(wc, c)[ev.ID]
		if !ok {
			continue
		}
		issues = append(issues, entity.Issue{
			RuleID:      RuleMortality,
			Type:        entity.SeverityCritical,
			Category:    entity.CategoryCharacter,
			Title:       c.Name + " appears after death",
			Description: c.Name + " is involved in \"" + ev.Name + "\" after dying in \"" + death.Name + "\".",
			Confidence:  0.9,
			Evidence:    []string{quote(death), quote(ev)},
			Suggestions: []string{
				"Add a resurrection event between the two events",
				"Mark the later event as a flashback",
				"Use spirit or ghost mechanics for the later appearance",
			},
			EntityIDs: []string{c.ID},
			EventIDs:  []string{death.ID, ev.ID},
		})
	}
	return issues
}

// deaths 计算角色的死亡状态：返回 事件 id -> 导致冲突的死亡事件
func (mortalityRule) deaths(wc *WorldContext, c *entity.Entity) map[string]*entity.TimelineEvent {
	return wc.memoize(RuleMortality+":"+c.ID, func() any {
		out := make(map[string]*entity.TimelineEvent)
		var dead *entity.TimelineEvent
		for _, ev := range wc.Timeline(c.ID) {
			if dead != nil {
				if isResurrection(ev) {
					dead = nil
					continue
				}
				if !isAfterlifeContext(ev) {
					out[ev.ID] = dead
				}
				continue
			}
			if diesIn(ev, c, wc) {
				dead = ev
			}
		}
		return out
	}).(map[string]*entity.TimelineEvent)
}

// diesIn 死亡词出现且能归属到该角色：主实体、文本提到名字或是唯一涉及的角色
func diesIn(ev *entity.TimelineEvent, c *entity.Entity, wc *WorldContext) bool {
	if isAfterlifeContext(ev) {
		return false
	}
	if _, ok := anyWord(eventWords(ev), deathWords); !ok {
		return false
	}
	if ev.PrimaryEntity != nil {
		if p, ok := wc.Entity(ev.PrimaryEntity.ID); ok && p.Type == entity.EntityTypeCharacter {
			return p.ID == c.ID
		}
	}
	if mentionsName(ev.Text(), c.Name) {
		return true
	}
	return len(wc.Characters(ev)) == 1
}

// knowledgeRule 角色在"得知"某概念之前就已提及它
type knowledgeRule struct{}

// NewKnowledgeRule 创建知识先后检查规则
func NewKnowledgeRule() Rule { return knowledgeRule{} }

func (knowledgeRule) ID() string { return RuleKnowledge }

func (knowledgeRule) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	if !isLearnEvent(ev) {
		return nil
	}
	learned := concepts(ev)
	if ev.CharacterContext != nil {
		for _, k := range ev.CharacterContext.KnowledgeGained {
			for _, w := range words(k) {
				if _, ok := conceptWords[w]; ok && !containsString(learned, w) {
					learned = append(learned, w)
				}
			}
		}
	}
	if len(learned) == 0 {
		return nil
	}

	pos := wc.Position(ev.ID)
	var issues []entity.Issue
	for _, c := range wc.Characters(ev) {
		for _, concept := range learned {
			earlier := firstMention(wc.Timeline(c.ID), pos, wc, concept)
			if earlier == nil {
				continue
			}
			issues = append(issues, entity.Issue{
				RuleID:      RuleKnowledge,
				Type:        entity.SeverityMinor,
				Category:    entity.CategoryKnowledge,
				Title:       c.Name + " references the " + concept + " before learning it",
				Description: "\"" + earlier.Name + "\" mentions the " + concept + " before " + c.Name + " learns it in \"" + ev.Name + "\".",
				Confidence:  0.4,
				Evidence:    []string{quote(earlier), quote(ev)},
				Suggestions: []string{
					"Move the learning event earlier",
					"Reword the earlier event so the character does not yet know the " + concept,
				},
				EntityIDs: []string{c.ID},
				EventIDs:  []string{earlier.ID, ev.ID},
			})
		}
	}
	return issues
}

// firstMention 角色时间线中位于 pos 之前、提及概念的第一个事件
func firstMention(timeline []*entity.TimelineEvent, pos int, wc *WorldContext, concept string) *entity.TimelineEvent {
	for _, prior := range timeline {
		if wc.Position(prior.ID) >= pos {
			break
		}
		if prior.Type == entity.EventTypeFlashback || prior.Type == entity.EventTypeForeshadowing {
			continue
		}
		if containsString(concepts(prior), concept) {
			return prior
		}
	}
	return nil
}

// emotionRule 同一角色一天内情绪剧烈切换
type emotionRule struct{}

// NewEmotionRule 创建情绪突变检查规则
func NewEmotionRule() Rule { return emotionRule{} }

func (emotionRule) ID() string { return RuleEmotion }

func (r emotionRule) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	cur, curWord, ok := dominantEmotion(ev)
	if !ok {
		return nil
	}
	var issues []entity.Issue
	for _, c := range wc.Characters(ev) {
		prev := previousEmotional(wc.Timeline(c.ID), ev.ID)
		if prev == nil {
			continue
		}
		last, lastWord, _ := dominantEmotion(prev)
		if last.category == cur.category {
			continue
		}
		days, comparable := entity.ElapsedDays(prev.Timestamp, ev.Timestamp)
		if !comparable || days < 0 || days >= 1 {
			continue
		}
		issues = append(issues, entity.Issue{
			RuleID:      RuleEmotion,
			Type:        entity.SeveritySuggestion,
			Category:    entity.CategoryEmotion,
			Title:       c.Name + " shifts from " + last.category + " to " + cur.category + " abruptly",
			Description: c.Name + " goes from \"" + lastWord + "\" to \"" + curWord + "\" in less than a day.",
			Confidence:  0.3,
			Evidence:    []string{quote(prev), quote(ev)},
			Suggestions: []string{"Add a transition scene showing the emotional change"},
			EntityIDs:   []string{c.ID},
			EventIDs:    []string{prev.ID, ev.ID},
		})
	}
	return issues
}

// previousEmotional 角色时间线中 eventID 之前最近的带情绪事件
func previousEmotional(timeline []*entity.TimelineEvent, eventID string) *entity.TimelineEvent {
	idx := -1
	for i, e := range timeline {
		if e.ID == eventID {
			idx = i
			break
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if _, _, ok := dominantEmotion(timeline[i]); ok {
			return timeline[i]
		}
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
