package consistency

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/metrics"
)

// Summary 报告汇总
type Summary struct {
	Total      int                          `json:"total"`
	BySeverity map[entity.Severity]int      `json:"by_severity"`
	ByCategory map[entity.IssueCategory]int `json:"by_category"`
	ByRule     map[string]int               `json:"by_rule"`
}

// Report 一次一致性分析的结果
type Report struct {
	Issues         []entity.Issue `json:"issues"`
	Summary        Summary        `json:"summary"`
	Fingerprint    string         `json:"fingerprint"`
	Revision       uint64         `json:"revision"`
	EventsAnalyzed int            `json:"events_analyzed"`
	Rules          []string       `json:"rules"`
	SkippedRules   []string       `json:"skipped_rules,omitempty"`
	Cached         bool           `json:"cached"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// AnalysisRequest 分析参数
type AnalysisRequest struct {
	// RuleIDs 只运行这些规则，为空时运行全部
	RuleIDs []string `json:"rule_ids,omitempty"`
	// EntityIDs 只保留涉及这些实体的问题
	EntityIDs []string `json:"entity_ids,omitempty"`
	// MinConfidence 覆盖引擎默认的最低置信度
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	// NoCache 跳过缓存读取
	NoCache bool `json:"no_cache"`
}

// EngineOption 引擎选项
type EngineOption func(*Engine)

// WithMinConfidence 低于该置信度的问题被丢弃
func WithMinConfidence(v float64) EngineOption {
	return func(e *Engine) { e.minConfidence = v }
}

// WithCache 开启 / 关闭报告缓存
func WithCache(enabled bool, capacity int) EngineOption {
	return func(e *Engine) {
		e.cacheEnabled = enabled
		e.cache = newReportCache(capacity)
	}
}

// WithRules 替换内置规则集合
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// WithWorldRules 初始世界规则
func WithWorldRules(rules []entity.WorldRule) EngineOption {
	return func(e *Engine) { e.worldRules = append([]entity.WorldRule(nil), rules...) }
}

// Engine 一致性检查引擎。分析时在读锁内复制注册表状态，计算过程不持有锁。
type Engine struct {
	reg *registry.Registry

	mu            sync.RWMutex
	rules         []Rule
	worldRules    []entity.WorldRule
	minConfidence float64

	cacheEnabled bool
	cache        *lru.Cache[string, *Report]
	now          func() time.Time
}

// NewEngine 创建引擎并订阅注册表变更以清空缓存
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		reg:          reg,
		rules:        DefaultRules(),
		worldRules:   entity.DefaultWorldRules(),
		cacheEnabled: true,
		cache:        newReportCache(defaultCacheSize),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	reg.OnChange(func(entity.Change) {
		e.Invalidate()
	})
	return e
}

// Register 追加规则，同 id 规则被替换
func (e *Engine) Register(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID() == rule.ID() {
			e.rules[i] = rule
			e.cache.Purge()
			return
		}
	}
	e.rules = append(e.rules, rule)
	e.cache.Purge()
}

// RegisterWorldRuleHandler 为世界规则 id 注册处理器
func (e *Engine) RegisterWorldRuleHandler(ruleID string, h WorldRuleHandler) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if w, ok := r.(*WorldRuleEvaluator); ok {
			w.Register(ruleID, h)
			e.cache.Purge()
			return true
		}
	}
	return false
}

// RuleIDs 已注册规则 id
func (e *Engine) RuleIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// WorldRules 当前世界规则
func (e *Engine) WorldRules() []entity.WorldRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]entity.WorldRule(nil), e.worldRules...)
}

// SetWorldRules 替换世界规则
func (e *Engine) SetWorldRules(rules []entity.WorldRule) {
	e.mu.Lock()
	e.worldRules = append([]entity.WorldRule(nil), rules...)
	e.mu.Unlock()
	e.Invalidate()
}

// Invalidate 清空报告缓存
func (e *Engine) Invalidate() {
	e.cache.Purge()
}

// Analyze 运行一致性分析；相同注册表状态与参数得到相同的问题列表
func (e *Engine) Analyze(ctx context.Context, req AnalysisRequest) (*Report, error) {
	start := time.Now()
	defer func() {
		metrics.ConsistencyRunDuration.Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	rules := selectRules(e.rules, req.RuleIDs)
	worldRules := append([]entity.WorldRule(nil), e.worldRules...)
	minConf := e.minConfidence
	e.mu.RUnlock()
	if req.MinConfidence != nil {
		minConf = *req.MinConfidence
	}

	state := e.reg.Capture()
	fp := fingerprint(state, rules, worldRules, minConf, req.EntityIDs)

	if e.cacheEnabled && !req.NoCache {
		if cached, ok := e.cache.Get(fp); ok {
			metrics.ConsistencyCacheTotal.WithLabelValues("hit").Inc()
			out := *cached
			out.Issues = append([]entity.Issue(nil), cached.Issues...)
			out.Cached = true
			return &out, nil
		}
		metrics.ConsistencyCacheTotal.WithLabelValues("miss").Inc()
	}

	wc := NewWorldContext(state, worldRules)
	var (
		raw     []entity.Issue
		skipped []string
	)
	for i, ev := range state.Events {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var prev *entity.TimelineEvent
		if i > 0 {
			prev = state.Events[i-1]
		}
		for _, rule := range rules {
			issues, ok := evaluateSafely(ctx, rule, ev, prev, wc)
			if !ok {
				if !containsString(skipped, rule.ID()) {
					skipped = append(skipped, rule.ID())
				}
				continue
			}
			raw = append(raw, issues...)
		}
	}

	report := &Report{
		Issues:         finalize(raw, minConf, req.EntityIDs),
		Fingerprint:    fp,
		Revision:       state.Revision,
		EventsAnalyzed: len(state.Events),
		Rules:          ruleIDs(rules),
		SkippedRules:   skipped,
		GeneratedAt:    e.now(),
	}
	report.Summary = summarize(report.Issues)
	for _, is := range report.Issues {
		metrics.ConsistencyIssuesTotal.WithLabelValues(is.RuleID, string(is.Type)).Inc()
	}

	// 写入前再次确认版本未变化，避免缓存计算期间已过期的报告
	if e.cacheEnabled && e.reg.Revision() == state.Revision {
		e.cache.Add(fp, report)
	}
	out := *report
	out.Issues = append([]entity.Issue(nil), report.Issues...)
	return &out, nil
}

// evaluateSafely 执行单条规则，规则 panic 时跳过并记录
func evaluateSafely(ctx context.Context, rule Rule, ev, prev *entity.TimelineEvent, wc *WorldContext) (issues []entity.Issue, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn(ctx, "consistency rule panicked, skipping",
				"rule", rule.ID(),
				"event_id", ev.ID,
				"panic", fmt.Sprint(r),
			)
			metrics.ConsistencyRuleFailures.WithLabelValues(rule.ID()).Inc()
			issues, ok = nil, false
		}
	}()
	return rule.Evaluate(ev, prev, wc), true
}

func selectRules(all []Rule, ids []string) []Rule {
	if len(ids) == 0 {
		return append([]Rule(nil), all...)
	}
	var selected []Rule
	for _, r := range all {
		if containsString(ids, r.ID()) {
			selected = append(selected, r)
		}
	}
	return selected
}

func ruleIDs(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID())
	}
	return out
}

// finalize 补全 id、按置信度与实体过滤、去重并排序
func finalize(raw []entity.Issue, minConf float64, entityIDs []string) []entity.Issue {
	seen := make(map[string]struct{}, len(raw))
	out := make([]entity.Issue, 0, len(raw))
	for _, is := range raw {
		if is.Confidence < minConf {
			continue
		}
		if len(entityIDs) > 0 && !touchesAny(is.EntityIDs, entityIDs) {
			continue
		}
		if is.ID == "" {
			is.ID = issueID(&is)
		}
		if _, dup := seen[is.ID]; dup {
			continue
		}
		seen[is.ID] = struct{}{}
		out = append(out, is)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() > b.Type.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID < b.ID
	})
	return out
}

func touchesAny(have, want []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}

func summarize(issues []entity.Issue) Summary {
	s := Summary{
		Total:      len(issues),
		BySeverity: make(map[entity.Severity]int),
		ByCategory: make(map[entity.IssueCategory]int),
		ByRule:     make(map[string]int),
	}
	for _, is := range issues {
		s.BySeverity[is.Type]++
		s.ByCategory[is.Category]++
		s.ByRule[is.RuleID]++
	}
	return s
}

// fingerprint 由排序后的实体 / 事件 id、内容长度、规则集合、世界规则与版本号计算
func fingerprint(st *registry.State, rules []Rule, worldRules []entity.WorldRule, minConf float64, entityFilter []string) string {
	entityIDs := make([]string, 0, len(st.Entities))
	contentLen := 0
	for _, e := range st.Entities {
		entityIDs = append(entityIDs, e.ID)
		contentLen += len(e.Name) + len(e.Description)
	}
	eventIDs := make([]string, 0, len(st.Events))
	for _, ev := range st.Events {
		eventIDs = append(eventIDs, ev.ID)
		contentLen += len(ev.Name) + len(ev.Description)
	}
	sort.Strings(entityIDs)
	sort.Strings(eventIDs)

	h := sha256.New()
	write := func(parts ...string) {
		h.Write([]byte(strings.Join(parts, ",")))
		h.Write([]byte{0})
	}
	write(entityIDs...)
	write(eventIDs...)
	write(ruleIDs(rules)...)
	for _, wr := range worldRules {
		write(wr.ID, string(wr.EnforcementLevel), strings.Join(wr.Exceptions, "|"), strings.Join(wr.Keywords, "|"), strings.Join(wr.Regions, "|"))
	}
	filter := append([]string(nil), entityFilter...)
	sort.Strings(filter)
	write(filter...)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(contentLen))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], st.Revision)
	h.Write(buf[:])
	write(fmt.Sprintf("%.4f", minConf))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
