package lore

import (
	"context"
	"fmt"
	"strings"

	"z-novel-lore-api/internal/application/adapter"
	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// WorldRulesFromConfig 把配置中的世界规则转换为领域对象，未配置时使用内置规则
func WorldRulesFromConfig(cfgs []config.WorldRuleConfig) []entity.WorldRule {
	if len(cfgs) == 0 {
		return entity.DefaultWorldRules()
	}
	out := make([]entity.WorldRule, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, entity.WorldRule{
			ID:               c.ID,
			Name:             c.Name,
			Category:         entity.WorldRuleCategory(c.Category),
			Description:      c.Description,
			Scope:            entity.RuleScope(c.Scope),
			Exceptions:       c.Exceptions,
			EnforcementLevel: entity.EnforcementLevel(c.EnforcementLevel),
			Keywords:         c.Keywords,
			Regions:          c.Regions,
		})
	}
	return out
}

// EngineOptions 由一致性配置生成引擎选项；禁用的规则不注册
func EngineOptions(cfg config.ConsistencyConfig) []consistency.EngineOption {
	disabled := make(map[string]struct{}, len(cfg.DisabledRules))
	for _, id := range cfg.DisabledRules {
		disabled[strings.TrimSpace(id)] = struct{}{}
	}
	rules := make([]consistency.Rule, 0)
	for _, r := range consistency.DefaultRules() {
		if _, off := disabled[r.ID()]; !off {
			rules = append(rules, r)
		}
	}
	return []consistency.EngineOption{
		consistency.WithRules(rules...),
		consistency.WithMinConfidence(cfg.MinConfidence),
		consistency.WithCache(cfg.CacheEnabled, cfg.CacheSize),
		consistency.WithWorldRules(WorldRulesFromConfig(cfg.WorldRules)),
	}
}

// ValidateWorldRules 校验 id 唯一与枚举取值
func ValidateWorldRules(rules []entity.WorldRule) adapter.ValidationResult {
	res := adapter.NewValidationResult()
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		field := func(name string) string { return indexedField("world_rules", i, name) }
		if strings.TrimSpace(r.ID) == "" {
			res.AddError(field("id"), "is required")
		} else if _, dup := seen[r.ID]; dup {
			res.AddError(field("id"), "duplicate rule id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		if strings.TrimSpace(r.Name) == "" {
			res.AddError(field("name"), "is required")
		}
		switch r.EnforcementLevel {
		case entity.EnforcementStrict, entity.EnforcementFlexible, entity.EnforcementGuideline:
		default:
			res.AddError(field("enforcement_level"), "unknown level %q", r.EnforcementLevel)
		}
		switch r.Scope {
		case "", entity.RuleScopeGlobal:
		case entity.RuleScopeRegional, entity.RuleScopeLocal:
			if len(r.Regions) == 0 {
				res.AddWarning(field("regions"), "scoped rule without regions applies everywhere")
			}
		default:
			res.AddError(field("scope"), "unknown scope %q", r.Scope)
		}
	}
	return res
}

// WorldRules 当前世界规则
func (s *Service) WorldRules(_ context.Context) []entity.WorldRule {
	return s.engine.WorldRules()
}

// SetWorldRules 整体替换世界规则，校验失败时保持原规则
func (s *Service) SetWorldRules(ctx context.Context, rules []entity.WorldRule) ([]entity.WorldRule, error) {
	ctx, span := tracer.Start(ctx, "lore.SetWorldRules")
	defer span.End()

	if res := ValidateWorldRules(rules); !res.IsValid {
		return nil, res.Err()
	}
	s.engine.SetWorldRules(rules)
	logger.Info(ctx, "world rules replaced", "count", len(rules))
	return s.engine.WorldRules(), nil
}

// PutWorldRule 新增或替换单条世界规则
func (s *Service) PutWorldRule(ctx context.Context, rule entity.WorldRule) ([]entity.WorldRule, error) {
	current := s.engine.WorldRules()
	next := make([]entity.WorldRule, 0, len(current)+1)
	replaced := false
	for _, r := range current {
		if r.ID == rule.ID {
			next = append(next, rule)
			replaced = true
			continue
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, rule)
	}
	return s.SetWorldRules(ctx, next)
}

// RemoveWorldRule 删除世界规则，返回是否存在
func (s *Service) RemoveWorldRule(ctx context.Context, id string) (bool, error) {
	current := s.engine.WorldRules()
	next := make([]entity.WorldRule, 0, len(current))
	for _, r := range current {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(current) {
		return false, nil
	}
	_, err := s.SetWorldRules(ctx, next)
	return err == nil, err
}

// Analyze 运行一致性分析
func (s *Service) Analyze(ctx context.Context, req consistency.AnalysisRequest) (*consistency.Report, error) {
	ctx, span := tracer.Start(ctx, "lore.Analyze")
	defer span.End()

	report, err := s.engine.Analyze(ctx, req)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}
	logger.Info(ctx, "consistency analysis finished",
		"issues", report.Summary.Total,
		"events", report.EventsAnalyzed,
		"cached", report.Cached,
		"revision", report.Revision,
	)
	return report, nil
}

func indexedField(prefix string, i int, name string) string {
	if name == "" {
		return fmt.Sprintf("%s[%d]", prefix, i)
	}
	return fmt.Sprintf("%s[%d].%s", prefix, i, name)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
