package entity

// Severity 问题严重程度
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// Rank 严重程度排序值，越大越严重
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityMajor:
		return 3
	case SeverityMinor:
		return 2
	case SeveritySuggestion:
		return 1
	}
	return 0
}

// Raise 提升一级
func (s Severity) Raise() Severity {
	switch s {
	case SeveritySuggestion:
		return SeverityMinor
	case SeverityMinor:
		return SeverityMajor
	default:
		return SeverityCritical
	}
}

// IssueCategory 问题类别
type IssueCategory string

const (
	CategoryCharacter    IssueCategory = "character"
	CategoryTimeline     IssueCategory = "timeline"
	CategoryLocation     IssueCategory = "location"
	CategoryWorld        IssueCategory = "world"
	CategoryKnowledge    IssueCategory = "knowledge"
	CategoryEmotion      IssueCategory = "emotion"
	CategoryRelationship IssueCategory = "relationship"
)

// Issue 一致性检查输出，每次分析重新生成
type Issue struct {
	ID          string        `json:"id"`
	RuleID      string        `json:"rule_id"`
	Type        Severity      `json:"type"`
	Category    IssueCategory `json:"category"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Confidence  float64       `json:"confidence"`
	Evidence    []string      `json:"evidence,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
	EntityIDs   []string      `json:"entity_ids,omitempty"`
	EventIDs    []string      `json:"event_ids,omitempty"`
	AutoFixable bool          `json:"auto_fixable"`
	FixHint     string        `json:"fix_hint,omitempty"`
}
