// Package consistency 提供基于规则的时间线一致性检查引擎
package consistency

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
)

// 内置规则 id
const (
	RuleMortality = "character-mortality"
	RuleCausality = "causality-order"
	RuleTravel    = "impossible-travel"
	RuleWorld     = "world-rules"
	RuleKnowledge = "knowledge-before-learned"
	RuleEmotion   = "emotional-whiplash"
)

// FixInsertTravel 自动修复提示：插入一段旅程事件
const FixInsertTravel = "insert_travel_event"

// Rule 一致性规则：对规范时间顺序中的每个事件调用一次。
// prev 为上一个事件（第一个事件时为 nil）。规则不得修改入参。
type Rule interface {
	ID() string
	Evaluate(ev, prev *entity.TimelineEvent, wc *WorldContext) []entity.Issue
}

// RuleFunc 函数形式的规则
type RuleFunc struct {
	RuleID string
	Fn     func(ev, prev *entity.TimelineEvent, wc *WorldContext) []entity.Issue
}

// ID 规则 id
func (f RuleFunc) ID() string { return f.RuleID }

// Evaluate 执行规则
func (f RuleFunc) Evaluate(ev, prev *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	return f.Fn(ev, prev, wc)
}

// DefaultRules 内置规则集合
func DefaultRules() []Rule {
	return []Rule{
		NewMortalityRule(),
		NewCausalityRule(),
		NewTravelRule(),
		NewWorldRuleEvaluator(),
		NewKnowledgeRule(),
		NewEmotionRule(),
	}
}

// issueID 由规则 id、标题与排序后的实体 / 事件 id 计算确定性 id
func issueID(is *entity.Issue) string {
	evs := append([]string(nil), is.EventIDs...)
	ents := append([]string(nil), is.EntityIDs...)
	sort.Strings(evs)
	sort.Strings(ents)

	h := sha256.New()
	h.Write([]byte(is.RuleID))
	h.Write([]byte{0})
	h.Write([]byte(is.Title))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(evs, ",")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ents, ",")))
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func quote(ev *entity.TimelineEvent) string {
	text := ev.Description
	if text == "" {
		text = ev.Name
	}
	return "\"" + text + "\" (" + describeTime(ev.Timestamp) + ")"
}
