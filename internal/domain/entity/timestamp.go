// Package entity 定义领域实体
package entity

import (
	"cmp"
	"time"
)

// WorldDate 世界历法日期，Month/Day 为 0 表示未知
type WorldDate struct {
	Era   string `json:"era,omitempty"`
	Year  int    `json:"year"`
	Month int    `json:"month,omitempty"`
	Day   int    `json:"day,omitempty"`
}

// Uncertainty 时间不确定范围
type Uncertainty struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Timestamp 多表示的故事时间戳，各字段均可选
type Timestamp struct {
	AbsoluteDate  *time.Time   `json:"absolute_date,omitempty"`
	StoryDay      *float64     `json:"story_day,omitempty"`
	StoryChapter  *int         `json:"story_chapter,omitempty"`
	StoryScene    *int         `json:"story_scene,omitempty"`
	SeriesBook    *int         `json:"series_book,omitempty"`
	SeriesDay     *float64     `json:"series_day,omitempty"`
	World         *WorldDate   `json:"world,omitempty"`
	Description   string       `json:"description,omitempty"`
	IsApproximate bool         `json:"is_approximate"`
	Uncertainty   *Uncertainty `json:"uncertainty,omitempty"`
}

// AtStoryDay 构造只带故事日的时间戳
func AtStoryDay(day float64) Timestamp {
	return Timestamp{StoryDay: &day}
}

// AtChapter 构造只带章节/场景的时间戳
func AtChapter(chapter, scene int) Timestamp {
	ts := Timestamp{StoryChapter: &chapter}
	if scene > 0 {
		ts.StoryScene = &scene
	}
	return ts
}

// AtSeries 构造系列书目/天数时间戳
func AtSeries(book int, day float64) Timestamp {
	return Timestamp{SeriesBook: &book, SeriesDay: &day}
}

// AtDate 构造绝对日期时间戳
func AtDate(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{AbsoluteDate: &t}
}

// IsZero 没有任何可比较字段
func (t Timestamp) IsZero() bool {
	return t.AbsoluteDate == nil && t.StoryDay == nil && t.StoryChapter == nil && t.StoryScene == nil &&
		t.SeriesBook == nil && t.SeriesDay == nil && t.World == nil
}

// Clone 深拷贝
func (t Timestamp) Clone() Timestamp {
	out := t
	if t.AbsoluteDate != nil {
		v := *t.AbsoluteDate
		out.AbsoluteDate = &v
	}
	out.StoryDay = clonePtr(t.StoryDay)
	out.StoryChapter = clonePtr(t.StoryChapter)
	out.StoryScene = clonePtr(t.StoryScene)
	out.SeriesBook = clonePtr(t.SeriesBook)
	out.SeriesDay = clonePtr(t.SeriesDay)
	out.World = clonePtr(t.World)
	out.Uncertainty = clonePtr(t.Uncertainty)
	return out
}

// CompareTimestamps 按优先级比较两个时间戳：
// 绝对日期 > 系列(书, 天) > 故事(天, 章, 场景) > 世界历法。
// 某一层可比较且不相等时立即返回；可比较但相等则继续用下一层细化。
// 没有任何共同字段时 ok=false（不可比较，而非相等）。
func CompareTimestamps(a, b Timestamp) (c int, ok bool) {
	tiers := [...]func(a, b Timestamp) (int, bool){
		compareAbsolute,
		compareSeries,
		compareStory,
		compareWorld,
	}
	for _, tier := range tiers {
		r, comparable := tier(a, b)
		if !comparable {
			continue
		}
		ok = true
		if r != 0 {
			return r, true
		}
	}
	return 0, ok
}

func compareAbsolute(a, b Timestamp) (int, bool) {
	if a.AbsoluteDate == nil || b.AbsoluteDate == nil {
		return 0, false
	}
	return a.AbsoluteDate.Compare(*b.AbsoluteDate), true
}

func compareSeries(a, b Timestamp) (int, bool) {
	return lexCompare(
		pair(a.SeriesBook, b.SeriesBook),
		pair(a.SeriesDay, b.SeriesDay),
	)
}

func compareStory(a, b Timestamp) (int, bool) {
	return lexCompare(
		pair(a.StoryDay, b.StoryDay),
		pair(a.StoryChapter, b.StoryChapter),
		pair(a.StoryScene, b.StoryScene),
	)
}

func compareWorld(a, b Timestamp) (int, bool) {
	if a.World == nil || b.World == nil || a.World.Era != b.World.Era {
		return 0, false
	}
	nz := func(v int) *int {
		if v == 0 {
			return nil
		}
		return &v
	}
	year := func(w *WorldDate) *int { y := w.Year; return &y }
	return lexCompare(
		pair(year(a.World), year(b.World)),
		pair(nz(a.World.Month), nz(b.World.Month)),
		pair(nz(a.World.Day), nz(b.World.Day)),
	)
}

// fieldCmp 单字段比较结果，comparable=false 表示至少一方缺失
type fieldCmp struct {
	result     int
	comparable bool
}

func pair[T cmp.Ordered](a, b *T) fieldCmp {
	if a == nil || b == nil {
		return fieldCmp{}
	}
	return fieldCmp{result: cmp.Compare(*a, *b), comparable: true}
}

// lexCompare 只在双方都存在的字段上做字典序比较
func lexCompare(fields ...fieldCmp) (int, bool) {
	ok := false
	for _, f := range fields {
		if !f.comparable {
			continue
		}
		ok = true
		if f.result != 0 {
			return f.result, true
		}
	}
	return 0, ok
}

// ElapsedDays 返回 b 相对 a 经过的天数，优先故事日，其次同一本书内的系列日
func ElapsedDays(a, b Timestamp) (float64, bool) {
	if a.StoryDay != nil && b.StoryDay != nil {
		return *b.StoryDay - *a.StoryDay, true
	}
	if a.SeriesDay != nil && b.SeriesDay != nil {
		if a.SeriesBook != nil && b.SeriesBook != nil && *a.SeriesBook != *b.SeriesBook {
			return 0, false
		}
		return *b.SeriesDay - *a.SeriesDay, true
	}
	if a.AbsoluteDate != nil && b.AbsoluteDate != nil {
		return b.AbsoluteDate.Sub(*a.AbsoluteDate).Hours() / 24, true
	}
	return 0, false
}

// DurationUnit 时长单位
type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationDays    DurationUnit = "days"
	DurationWeeks   DurationUnit = "weeks"
	DurationMonths  DurationUnit = "months"
	DurationYears   DurationUnit = "years"
)

// Duration 事件持续时长
type Duration struct {
	Value float64      `json:"value"`
	Unit  DurationUnit `json:"unit"`
}

// Days 换算为天数
func (d Duration) Days() float64 {
	switch d.Unit {
	case DurationMinutes:
		return d.Value / (24 * 60)
	case DurationHours:
		return d.Value / 24
	case DurationWeeks:
		return d.Value * 7
	case DurationMonths:
		return d.Value * 30
	case DurationYears:
		return d.Value * 365
	default:
		return d.Value
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
