package entity

import "strings"

// WorldRuleCategory 世界规则类别
type WorldRuleCategory string

const (
	RuleCategoryPhysics  WorldRuleCategory = "physics"
	RuleCategoryMagic    WorldRuleCategory = "magic"
	RuleCategorySociety  WorldRuleCategory = "society"
	RuleCategoryEconomy  WorldRuleCategory = "economy"
	RuleCategoryPolitics WorldRuleCategory = "politics"
	RuleCategoryLogic    WorldRuleCategory = "logic"
)

// RuleScope 世界规则适用范围
type RuleScope string

const (
	RuleScopeGlobal   RuleScope = "global"
	RuleScopeRegional RuleScope = "regional"
	RuleScopeLocal    RuleScope = "local"
)

// EnforcementLevel 执行级别
type EnforcementLevel string

const (
	EnforcementStrict    EnforcementLevel = "strict"
	EnforcementFlexible  EnforcementLevel = "flexible"
	EnforcementGuideline EnforcementLevel = "guideline"
)

// WorldRule 可配置的世界约束
type WorldRule struct {
	ID               string            `json:"id" mapstructure:"id"`
	Name             string            `json:"name" mapstructure:"name"`
	Category         WorldRuleCategory `json:"category" mapstructure:"category"`
	Description      string            `json:"description,omitempty" mapstructure:"description"`
	Scope            RuleScope         `json:"scope" mapstructure:"scope"`
	Exceptions       []string          `json:"exceptions,omitempty" mapstructure:"exceptions"`
	EnforcementLevel EnforcementLevel  `json:"enforcement_level" mapstructure:"enforcement_level"`
	// Keywords 通用处理器使用的禁用词
	Keywords []string `json:"keywords,omitempty" mapstructure:"keywords"`
	// Regions 区域/局部规则生效的地区
	Regions []string `json:"regions,omitempty" mapstructure:"regions"`
}

// AppliesTo 规则是否作用于该事件（区域/局部规则按世界区域或地点匹配）
func (r *WorldRule) AppliesTo(e *TimelineEvent) bool {
	if r.Scope == "" || r.Scope == RuleScopeGlobal || len(r.Regions) == 0 {
		return true
	}
	var places []string
	if e.WorldContext != nil && e.WorldContext.Region != "" {
		places = append(places, e.WorldContext.Region)
	}
	if e.StoryContext != nil && e.StoryContext.Location != "" {
		places = append(places, e.StoryContext.Location)
	}
	for _, p := range places {
		for _, region := range r.Regions {
			if strings.EqualFold(strings.TrimSpace(p), strings.TrimSpace(region)) {
				return true
			}
		}
	}
	return false
}

// ExceptedBy 事件标签或文本命中例外时规则不生效
func (r *WorldRule) ExceptedBy(e *TimelineEvent) bool {
	text := e.Text()
	for _, ex := range r.Exceptions {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex == "" {
			continue
		}
		if strings.Contains(text, ex) {
			return true
		}
		for _, tag := range e.Tags {
			if strings.EqualFold(tag, ex) {
				return true
			}
		}
	}
	return false
}

// DefaultWorldRules 内置世界规则
func DefaultWorldRules() []WorldRule {
	return []WorldRule{
		{
			ID:               "power-progression",
			Name:             "Power progression",
			Category:         RuleCategoryMagic,
			Description:      "Level or skill increases must be earned through training or explicit gains",
			Scope:            RuleScopeGlobal,
			EnforcementLevel: EnforcementFlexible,
		},
		{
			ID:               "economic-consistency",
			Name:             "Economic consistency",
			Category:         RuleCategoryEconomy,
			Description:      "Large sums of currency should have an explained source",
			Scope:            RuleScopeGlobal,
			EnforcementLevel: EnforcementFlexible,
		},
		{
			ID:               "magic-cost",
			Name:             "Magic has a cost",
			Category:         RuleCategoryMagic,
			Description:      "Casting powerful magic exacts a price from the caster",
			Scope:            RuleScopeGlobal,
			EnforcementLevel: EnforcementGuideline,
		},
	}
}
