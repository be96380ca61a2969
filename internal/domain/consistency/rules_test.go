package consistency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"z-novel-lore-api/internal/domain/entity"
)

func TestRoundAmounts(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{text: "receives 5000 gold", want: []int{5000}},
		{text: "receives 5,000 crowns", want: []int{5000}},
		{text: "pays $12000 for the ship", want: []int{12000}},
		{text: "receives 4870 gold", want: nil},
		{text: "walks 3000 miles", want: nil},
		{text: "receives 500 gold", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, roundAmounts(tt.text))
		})
	}
}

func TestEnforce(t *testing.T) {
	assert.Equal(t, entity.SeverityMajor, enforce(entity.SeverityMinor, entity.EnforcementStrict))
	assert.Equal(t, entity.SeverityCritical, enforce(entity.SeverityCritical, entity.EnforcementStrict))
	assert.Equal(t, entity.SeverityMinor, enforce(entity.SeverityMinor, entity.EnforcementFlexible))
	assert.Equal(t, entity.SeveritySuggestion, enforce(entity.SeverityMajor, entity.EnforcementGuideline))
}

func TestIntervalsOverlap(t *testing.T) {
	at := func(day float64, dur *entity.Duration) *entity.TimelineEvent {
		ev := entity.NewTimelineEvent("x", entity.EventTypeStoryEvent, entity.AtStoryDay(day))
		ev.Duration = dur
		return ev
	}
	siege := at(3, &entity.Duration{Value: 5, Unit: entity.DurationDays})

	overlaps, known := intervalsOverlap(at(6, nil), siege)
	assert.True(t, known)
	assert.True(t, overlaps)

	overlaps, known = intervalsOverlap(at(9, nil), siege)
	assert.True(t, known)
	assert.False(t, overlaps)

	undated := entity.NewTimelineEvent("y", entity.EventTypeStoryEvent, entity.AtChapter(2, 1))
	_, known = intervalsOverlap(undated, siege)
	assert.False(t, known)
}

func TestDominantEmotionPrefersCharacterContext(t *testing.T) {
	ev := entity.NewTimelineEvent("Aria laughs", entity.EventTypeStoryEvent, entity.AtStoryDay(1))
	ev.CharacterContext = &entity.CharacterContext{EmotionalState: "terrified"}

	em, word, ok := dominantEmotion(ev)
	assert.True(t, ok)
	assert.Equal(t, "fear", em.category)
	assert.Equal(t, "terrified", word)
}

func TestIssueIDIgnoresIDOrder(t *testing.T) {
	a := entity.Issue{RuleID: "r", Title: "t", EventIDs: []string{"e2", "e1"}, EntityIDs: []string{"b", "a"}}
	b := entity.Issue{RuleID: "r", Title: "t", EventIDs: []string{"e1", "e2"}, EntityIDs: []string{"a", "b"}}
	assert.Equal(t, issueID(&a), issueID(&b))

	b.Title = "other"
	assert.NotEqual(t, issueID(&a), issueID(&b))
}
