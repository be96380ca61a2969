package registry

import (
	"sort"
	"strings"
	"unicode"

	"z-novel-lore-api/internal/domain/entity"
)

// ResultKind 检索结果类别
type ResultKind string

const (
	KindEntity ResultKind = "entity"
	KindEvent  ResultKind = "event"
)

// 检索打分权重
const (
	scoreExactName    = 10
	scorePrefixName   = 6
	scoreContainsName = 4
	scoreTokenInName  = 2
	scoreTagMatch     = 3
	scoreTokenInDesc  = 1
)

const defaultSearchLimit = 50

// SearchOptions 检索选项
type SearchOptions struct {
	Kinds       []ResultKind        `json:"kinds,omitempty"`
	EntityTypes []entity.EntityType `json:"entity_types,omitempty"`
	Scopes      []entity.Scope      `json:"scopes,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// SearchResult 检索结果
type SearchResult struct {
	Kind        ResultKind `json:"kind"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Score       int        `json:"score"`
}

// Search 对实体与事件做相关性打分检索，相同输入得到相同顺序
func (r *Registry) Search(query string, opts SearchOptions) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []SearchResult{}
	}
	tokens := tokenize(q)

	r.mu.RLock()
	var results []SearchResult
	if wantKind(opts.Kinds, KindEntity) {
		for _, e := range r.entities {
			if !entityPasses(e, opts) {
				continue
			}
			if s := scoreText(e.Name, e.Description, e.Tags, q, tokens); s > 0 {
				results = append(results, SearchResult{
					Kind: KindEntity, ID: e.ID, Name: e.Name, Type: string(e.Type),
					Description: e.Description, Tags: append([]string(nil), e.Tags...), Score: s,
				})
			}
		}
	}
	if wantKind(opts.Kinds, KindEvent) {
		results = append(results, r.searchEventsLocked(q, tokens, opts)...)
	}
	r.mu.RUnlock()

	return rankResults(results, opts.Limit)
}

// SearchEvents 只检索时间线事件
func (r *Registry) SearchEvents(query string, opts SearchOptions) []SearchResult {
	opts.Kinds = []ResultKind{KindEvent}
	return r.Search(query, opts)
}

func (r *Registry) searchEventsLocked(q string, tokens []string, opts SearchOptions) []SearchResult {
	var out []SearchResult
	for _, ev := range r.events {
		if len(opts.Scopes) > 0 && !containsValue(opts.Scopes, ev.Scope) {
			continue
		}
		if len(opts.Tags) > 0 && !anyTag(ev.Tags, opts.Tags) {
			continue
		}
		if s := scoreText(ev.Name, ev.Description, ev.Tags, q, tokens); s > 0 {
			out = append(out, SearchResult{
				Kind: KindEvent, ID: ev.ID, Name: ev.Name, Type: string(ev.Type),
				Description: ev.Description, Tags: append([]string(nil), ev.Tags...), Score: s,
			})
		}
	}
	return out
}

func entityPasses(e *entity.Entity, opts SearchOptions) bool {
	if len(opts.EntityTypes) > 0 && !containsValue(opts.EntityTypes, e.Type) {
		return false
	}
	if len(opts.Tags) > 0 && !anyTag(e.Tags, opts.Tags) {
		return false
	}
	return true
}

func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Kind != b.Kind {
			return a.Kind == KindEntity
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results
}

// scoreText 名称精确 +10 / 前缀 +6 / 包含 +4，名称中每个词 +2，
// 标签等于某个词 +3，描述中每个词 +1
func scoreText(name, desc string, tags []string, q string, tokens []string) int {
	lname := strings.ToLower(name)
	ldesc := strings.ToLower(desc)
	score := 0
	switch {
	case lname == q:
		score += scoreExactName
	case strings.HasPrefix(lname, q):
		score += scorePrefixName
	case strings.Contains(lname, q):
		score += scoreContainsName
	}
	for _, tok := range tokens {
		if strings.Contains(lname, tok) {
			score += scoreTokenInName
		}
		for _, tag := range tags {
			if strings.EqualFold(tag, tok) {
				score += scoreTagMatch
			}
		}
		if ldesc != "" && strings.Contains(ldesc, tok) {
			score += scoreTokenInDesc
		}
	}
	return score
}

// tokenize 按非字母数字切分并去重
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func wantKind(kinds []ResultKind, k ResultKind) bool {
	return len(kinds) == 0 || containsValue(kinds, k)
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func containsValue[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
