package consistency

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"z-novel-lore-api/internal/domain/entity"
)

// Finding 世界规则处理器的命中结果，严重程度在评估器中按执行级别调整
type Finding struct {
	Title       string
	Description string
	Evidence    []string
	Suggestions []string
	Severity    entity.Severity
	Confidence  float64
}

// WorldRuleHandler 按规则 id 注册的处理器，未命中返回 nil
type WorldRuleHandler func(rule *entity.WorldRule, ev *entity.TimelineEvent, wc *WorldContext) *Finding

// WorldRuleEvaluator 将配置的世界规则分派给处理器；
// 没有专用处理器但配置了 Keywords 的规则使用通用禁用词处理器
type WorldRuleEvaluator struct {
	mu       sync.RWMutex
	handlers map[string]WorldRuleHandler
}

// NewWorldRuleEvaluator 创建带内置处理器的评估器
func NewWorldRuleEvaluator() *WorldRuleEvaluator {
	return &WorldRuleEvaluator{
		handlers: map[string]WorldRuleHandler{
			"power-progression":    powerProgression,
			"economic-consistency": economicConsistency,
			"magic-cost":           magicCost,
		},
	}
}

// Register 注册或替换处理器
func (w *WorldRuleEvaluator) Register(ruleID string, h WorldRuleHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[ruleID] = h
}

// Handlers 已注册处理器的规则 id
func (w *WorldRuleEvaluator) Handlers() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.handlers))
	for id := range w.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *WorldRuleEvaluator) handler(rule *entity.WorldRule) WorldRuleHandler {
	w.mu.RLock()
	h, ok := w.handlers[rule.ID]
	w.mu.RUnlock()
	if ok {
		return h
	}
	if len(rule.Keywords) > 0 {
		return forbiddenKeywords
	}
	return nil
}

// ID 规则 id
func (w *WorldRuleEvaluator) ID() string { return RuleWorld }

// Evaluate 逐条评估世界规则
func (w *WorldRuleEvaluator) Evaluate(ev, _ *entity.TimelineEvent, wc *WorldContext) []entity.Issue {
	var issues []entity.Issue
	for i := range wc.WorldRules {
		rule := &wc.WorldRules[i]
		if !rule.AppliesTo(ev) || rule.ExceptedBy(ev) {
			continue
		}
		h := w.handler(rule)
		if h == nil {
			continue
		}
		f := h(rule, ev, wc)
		if f == nil {
			continue
		}
		name := rule.Name
		if name == "" {
			name = rule.ID
		}
		suggestions := f.Suggestions
		if rule.Description != "" {
			suggestions = append(append([]string(nil), suggestions...), "Rule: "+rule.Description)
		}
		issues = append(issues, entity.Issue{
			RuleID:      RuleWorld + ":" + rule.ID,
			Type:        enforce(f.Severity, rule.EnforcementLevel),
			Category:    entity.CategoryWorld,
			Title:       name + ": " + f.Title,
			Description: f.Description,
			Confidence:  f.Confidence,
			Evidence:    append([]string{quote(ev)}, f.Evidence...),
			Suggestions: suggestions,
			EntityIDs:   ev.EntityIDs(),
			EventIDs:    []string{ev.ID},
		})
	}
	return issues
}

// enforce strict 提升一级，guideline 降为建议
func enforce(s entity.Severity, level entity.EnforcementLevel) entity.Severity {
	switch level {
	case entity.EnforcementStrict:
		return s.Raise()
	case entity.EnforcementGuideline:
		return entity.SeveritySuggestion
	}
	return s
}

func powerProgression(_ *entity.WorldRule, ev *entity.TimelineEvent, _ *WorldContext) *Finding {
	tokens := eventWords(ev)
	levelWord, ok := anyPrefix(tokens, levelWords)
	if !ok {
		return nil
	}
	advance, ok := anyWord(tokens, advanceWords)
	if !ok {
		return nil
	}
	if containsAny(ev.Text(), earnedWords) {
		return nil
	}
	return &Finding{
		Title:       "unexplained power increase",
		Description: "\"" + ev.Name + "\" describes a " + levelWord + " increase without any training or gain.",
		Evidence:    []string{"matched: " + levelWord + " / " + advance},
		Suggestions: []string{"Show the training or experience that leads to the increase"},
		Severity:    entity.SeverityMinor,
		Confidence:  0.6,
	}
}

var (
	amountBeforeCurrency = regexp.MustCompile(`(\d[\d,]*)\s*([a-z]+)`)
	amountAfterSymbol    = regexp.MustCompile(`[$£€¥]\s?(\d[\d,]*)`)
)

// roundAmounts 提取文本中不小于 1000 且能被 1000 整除的货币金额
func roundAmounts(text string) []int {
	var out []int
	check := func(raw string) {
		n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
		if err == nil && n >= 1000 && n%1000 == 0 {
			out = append(out, n)
		}
	}
	for _, m := range amountBeforeCurrency.FindAllStringSubmatch(text, -1) {
		if _, ok := currencyWords[m[2]]; ok {
			check(m[1])
		}
	}
	for _, m := range amountAfterSymbol.FindAllStringSubmatch(text, -1) {
		check(m[1])
	}
	return out
}

func economicConsistency(_ *entity.WorldRule, ev *entity.TimelineEvent, _ *WorldContext) *Finding {
	if _, ok := anyWord(eventWords(ev), acquireWords); !ok {
		return nil
	}
	amounts := roundAmounts(ev.Text())
	if len(amounts) == 0 {
		return nil
	}
	return &Finding{
		Title:       "possibly unexplained wealth",
		Description: "\"" + ev.Name + "\" involves a large round sum of " + strconv.Itoa(amounts[0]) + ".",
		Evidence:    []string{"amount: " + strconv.Itoa(amounts[0])},
		Suggestions: []string{"Explain where the money comes from", "Use a less round amount if it is not a fixed price"},
		Severity:    entity.SeverityMinor,
		Confidence:  0.4,
	}
}

func magicCost(_ *entity.WorldRule, ev *entity.TimelineEvent, _ *WorldContext) *Finding {
	cast, ok := anyWord(eventWords(ev), castWords)
	if !ok {
		return nil
	}
	if containsAny(ev.Text(), costWords) {
		return nil
	}
	return &Finding{
		Title:       "magic used without a cost",
		Description: "\"" + ev.Name + "\" uses magic (" + cast + ") with no visible price paid.",
		Evidence:    []string{"matched: " + cast},
		Suggestions: []string{"Show the toll the magic takes on the caster"},
		Severity:    entity.SeverityMinor,
		Confidence:  0.5,
	}
}

// forbiddenKeywords 通用处理器：事件文本包含规则禁用词
func forbiddenKeywords(rule *entity.WorldRule, ev *entity.TimelineEvent, _ *WorldContext) *Finding {
	text := ev.Text()
	for _, kw := range rule.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || !strings.Contains(text, kw) {
			continue
		}
		return &Finding{
			Title:       "forbidden element \"" + kw + "\"",
			Description: "\"" + ev.Name + "\" mentions \"" + kw + "\", which this world rule does not allow.",
			Evidence:    []string{"matched: " + kw},
			Suggestions: []string{"Remove the element or add an exception to the rule"},
			Severity:    entity.SeverityMinor,
			Confidence:  0.5,
		}
	}
	return nil
}
