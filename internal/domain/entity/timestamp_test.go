package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestCompareTimestamps(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(48 * time.Hour)

	tests := []struct {
		name   string
		a, b   Timestamp
		want   int
		wantOK bool
	}{
		{"story day before", AtStoryDay(3), AtStoryDay(5), -1, true},
		{"story day after", AtStoryDay(5), AtStoryDay(3), 1, true},
		{"story day equal", AtStoryDay(5), AtStoryDay(5), 0, true},
		{"absolute date wins over story day", Timestamp{AbsoluteDate: &d2, StoryDay: ptr(1.0)}, Timestamp{AbsoluteDate: &d1, StoryDay: ptr(9.0)}, 1, true},
		{"equal absolute refined by story", Timestamp{AbsoluteDate: &d1, StoryDay: ptr(1.0)}, Timestamp{AbsoluteDate: &d1, StoryDay: ptr(2.0)}, -1, true},
		{"series book then day", AtSeries(1, 50), AtSeries(2, 1), -1, true},
		{"series beats story", Timestamp{SeriesBook: intp(2), StoryDay: ptr(1.0)}, Timestamp{SeriesBook: intp(1), StoryDay: ptr(9.0)}, 1, true},
		{"chapter and scene", AtChapter(3, 2), AtChapter(3, 1), 1, true},
		{"only common fields compared", Timestamp{StoryDay: ptr(5.0), StoryChapter: intp(3)}, Timestamp{StoryChapter: intp(2)}, 1, true},
		{"world calendar same era", Timestamp{World: &WorldDate{Era: "AE", Year: 100, Month: 3}}, Timestamp{World: &WorldDate{Era: "AE", Year: 100, Month: 5}}, -1, true},
		{"world calendar different era", Timestamp{World: &WorldDate{Era: "AE", Year: 100}}, Timestamp{World: &WorldDate{Era: "BE", Year: 1}}, 0, false},
		{"no common field", AtStoryDay(1), AtSeries(1, 1), 0, false},
		{"description only", Timestamp{Description: "long ago"}, AtStoryDay(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CompareTimestamps(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElapsedDays(t *testing.T) {
	d, ok := ElapsedDays(AtStoryDay(5), AtStoryDay(5.5))
	assert.True(t, ok)
	assert.InDelta(t, 0.5, d, 1e-9)

	_, ok = ElapsedDays(AtSeries(1, 3), AtSeries(2, 4))
	assert.False(t, ok)

	_, ok = ElapsedDays(AtChapter(1, 0), AtChapter(2, 0))
	assert.False(t, ok)
}

func TestDurationDays(t *testing.T) {
	assert.InDelta(t, 0.5, Duration{Value: 12, Unit: DurationHours}.Days(), 1e-9)
	assert.InDelta(t, 14.0, Duration{Value: 2, Unit: DurationWeeks}.Days(), 1e-9)
	assert.InDelta(t, 3.0, Duration{Value: 3}.Days(), 1e-9)
}

func TestTimestampCloneIsDeep(t *testing.T) {
	ts := AtStoryDay(4)
	cp := ts.Clone()
	*cp.StoryDay = 9
	assert.Equal(t, 4.0, *ts.StoryDay)
}

func TestTimeRangeContains(t *testing.T) {
	r := TimeRange{Start: ptr(AtStoryDay(2)), End: ptr(AtStoryDay(6))}
	assert.True(t, r.Contains(AtStoryDay(2)))
	assert.True(t, r.Contains(AtStoryDay(6)))
	assert.False(t, r.Contains(AtStoryDay(7)))
	assert.False(t, r.Contains(AtChapter(1, 0)))

	r.IncludeIncomparable = true
	assert.True(t, r.Contains(AtChapter(1, 0)))
}

func ptr[T any](v T) *T { return &v }
