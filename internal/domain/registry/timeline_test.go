package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func TestAddEventValidatesReferences(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	mustAddEvent(t, r, eventAt("e1", "Start", 1, a))

	_, err := r.AddEvent(eventAt("e1", "Again", 2))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateID)

	_, err = r.AddEvent(eventAt("e2", "Ghost", 2, "nobody"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)

	dep := eventAt("e3", "Later", 3)
	dep.Dependencies = []entity.Dependency{{TargetEventID: "missing", Type: entity.DependencyMustHappenBefore}}
	_, err = r.AddEvent(dep)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)

	assert.Len(t, r.ListEvents(), 1)

	got, err := r.GetEvent("e1")
	require.NoError(t, err)
	assert.Equal(t, "Kaelen", got.InvolvedEntities[0].Name)
	assert.Equal(t, entity.ScopeStory, got.Scope)
}

func TestAddDependency(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("e1", "One", 1))
	mustAddEvent(t, r, eventAt("e2", "Two", 2))
	rev := r.Revision()

	assert.NoError(t, r.AddDependency("missing", "e1", entity.DependencyMustHappenBefore, ""))
	assert.Equal(t, rev, r.Revision())

	err := r.AddDependency("e2", "missing", entity.DependencyMustHappenBefore, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)

	require.NoError(t, r.AddDependency("e2", "e1", entity.DependencyMustHappenBefore, "cause"))
	require.NoError(t, r.AddDependency("e2", "e1", entity.DependencyMustHappenBefore, "cause"))
	ev, _ := r.GetEvent("e2")
	assert.Len(t, ev.Dependencies, 1)

	require.NoError(t, r.RemoveDependency("e2", "e1"))
	ev, _ = r.GetEvent("e2")
	assert.Empty(t, ev.Dependencies)
}

func TestRemoveEventStripsDependencies(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("e1", "Cause", 1))
	e2 := eventAt("e2", "Effect", 2)
	e2.Dependencies = []entity.Dependency{{TargetEventID: "e1", Type: entity.DependencyMustHappenBefore}}
	e2.PlotImpact = &entity.PlotImpact{Importance: 3, CallbackIDs: []string{"e1"}}
	mustAddEvent(t, r, e2)
	e3 := eventAt("e3", "Echo", 3)
	e3.Dependencies = []entity.Dependency{{TargetEventID: "e1", Type: entity.DependencyMustHappenAfter}, {TargetEventID: "e2", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, e3)

	require.NoError(t, r.RemoveEvent("e1"))
	require.NoError(t, r.RemoveEvent("e1"))

	for _, ev := range r.ListEvents() {
		assert.False(t, ev.DependsOn("e1"), ev.ID)
	}
	got, _ := r.GetEvent("e2")
	assert.Empty(t, got.PlotImpact.CallbackIDs)
	got, _ = r.GetEvent("e3")
	assert.Equal(t, []entity.Dependency{{TargetEventID: "e2", Type: entity.DependencyMustHappenBefore}}, got.Dependencies)
}

func TestUpdateAndMoveEvent(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	mustAddEvent(t, r, eventAt("e1", "Start", 1))

	involved := []string{a}
	primary := a
	name := "Beginning"
	updated, err := r.UpdateEvent("e1", entity.EventPatch{Name: &name, InvolvedEntityIDs: &involved, PrimaryEntityID: &primary})
	require.NoError(t, err)
	assert.Equal(t, "Beginning", updated.Name)
	assert.Equal(t, "Kaelen", updated.PrimaryEntity.Name)

	bad := []string{"nobody"}
	_, err = r.UpdateEvent("e1", entity.EventPatch{InvolvedEntityIDs: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)
	got, _ := r.GetEvent("e1")
	assert.Equal(t, []string{a}, got.EntityIDs())

	moved, err := r.MoveEvent("e1", entity.AtStoryDay(7))
	require.NoError(t, err)
	assert.Equal(t, 7.0, *moved.Timestamp.StoryDay)
	assert.Equal(t, "Beginning", moved.Name)

	_, err = r.MoveEvent("missing", entity.AtStoryDay(1))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDuplicateEvent(t *testing.T) {
	r := newTestRegistry()
	src := eventAt("e1", "Battle", 4)
	src.Tags = []string{"war"}
	mustAddEvent(t, r, src)
	orig, _ := r.GetEvent("e1")

	cp, err := r.DuplicateEvent("e1")
	require.NoError(t, err)
	assert.NotEqual(t, "e1", cp.ID)
	assert.Equal(t, "Battle (Copy)", cp.Name)
	assert.Equal(t, []string{"war"}, cp.Tags)
	assert.True(t, cp.CreatedAt.After(orig.CreatedAt))
	assert.Equal(t, []string{"e1", cp.ID}, ids(r.ListEvents()))
}

func TestMergeEvents(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	b := mustAddEntity(t, r, "b", entity.EntityTypeCharacter, "Mira")
	mustAddEvent(t, r, eventAt("root", "Root", 0))

	src := eventAt("src", "Ambush", 2, a)
	src.Description = "An ambush at dusk."
	src.Tags = []string{"combat"}
	src.Dependencies = []entity.Dependency{{TargetEventID: "root", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, src)

	dst := eventAt("dst", "Battle", 2, b)
	dst.Description = "The battle begins."
	dst.Tags = []string{"war"}
	dst.Dependencies = []entity.Dependency{{TargetEventID: "src", Type: entity.DependencyMustHappenAfter}}
	mustAddEvent(t, r, dst)

	after := eventAt("after", "Aftermath", 3)
	after.Dependencies = []entity.Dependency{{TargetEventID: "src", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, after)

	merged, err := r.MergeEvents("src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "The battle begins.\n\nAn ambush at dusk.", merged.Description)
	assert.Equal(t, []string{b, a}, merged.EntityIDs())
	assert.Equal(t, []string{"war", "combat"}, merged.Tags)
	assert.Equal(t, []entity.Dependency{{TargetEventID: "root", Type: entity.DependencyMustHappenBefore}}, merged.Dependencies)

	_, err = r.GetEvent("src")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	got, _ := r.GetEvent("after")
	assert.True(t, got.DependsOn("dst"))
	assert.False(t, got.DependsOn("src"))

	_, err = r.MergeEvents("dst", "dst")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestSortedEventsOrdering(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("d5", "Day five", 5))
	mustAddEvent(t, r, eventAt("d3", "Day three", 3))

	undated1 := entity.NewTimelineEvent("Undated one", entity.EventTypeCustom, entity.Timestamp{Description: "someday"})
	undated1.ID = "u1"
	mustAddEvent(t, r, undated1)
	undated2 := entity.NewTimelineEvent("Undated two", entity.EventTypeCustom, entity.Timestamp{})
	undated2.ID = "u2"
	mustAddEvent(t, r, undated2)

	// 时间戳相同，按依赖声明排序
	tieA := eventAt("tieA", "Tie A", 8)
	mustAddEvent(t, r, tieA)
	tieB := eventAt("tieB", "Tie B", 8)
	tieB.Dependencies = []entity.Dependency{{TargetEventID: "tieA", Type: entity.DependencyMustHappenAfter}}
	mustAddEvent(t, r, tieB)

	got := ids(r.SortedEvents())
	assert.Less(t, indexOf(got, "d3"), indexOf(got, "d5"))
	assert.Less(t, indexOf(got, "tieB"), indexOf(got, "tieA"))
	assert.Less(t, indexOf(got, "u1"), indexOf(got, "u2"))
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

func TestTimelineQueries(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")

	e1 := eventAt("e1", "Prologue", 1, a)
	e1.Scope = entity.ScopeWorld
	e1.PlotImpact = &entity.PlotImpact{Importance: 2}
	mustAddEvent(t, r, e1)
	e2 := eventAt("e2", "Climax", 9)
	e2.Type = entity.EventTypePlotPoint
	e2.PlotImpact = &entity.PlotImpact{Importance: 5}
	e2.StoryContext = &entity.StoryContext{ChapterID: "ch-9"}
	mustAddEvent(t, r, e2)
	e3 := eventAt("e3", "Interlude", 4, a)
	e3.IsCanon = false
	mustAddEvent(t, r, e3)

	assert.Equal(t, []string{"e1"}, ids(r.EventsByScope(entity.ScopeWorld)))
	assert.Equal(t, []string{"e2"}, ids(r.EventsByType(entity.EventTypePlotPoint)))
	assert.Equal(t, []string{"e1", "e3"}, ids(r.EventsByEntity(a)))

	start, end := entity.AtStoryDay(2), entity.AtStoryDay(9)
	assert.Equal(t, []string{"e3", "e2"}, ids(r.EventsInRange(entity.TimeRange{Start: &start, End: &end})))

	groups := r.QueryEvents(&entity.TimelineView{CanonOnly: true, SortBy: entity.SortImportance, GroupBy: entity.GroupChapter})
	require.Len(t, groups, 2)
	assert.Equal(t, "ch-9", groups[0].Key)
	assert.Equal(t, "unassigned", groups[1].Key)

	all := r.QueryEvents(nil)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"e1", "e3", "e2"}, ids(all[0].Events))

	analysis := r.Analyze(nil)
	assert.Equal(t, 3, analysis.TotalEvents)
	assert.Equal(t, 2, analysis.CanonCount)
	assert.Equal(t, 2, analysis.ByType[entity.EventTypeStoryEvent])
	assert.Equal(t, 1, analysis.ByImportance[5])
	assert.Equal(t, 1.0, *analysis.FirstStoryDay)
	assert.Equal(t, 9.0, *analysis.LastStoryDay)

	filtered := r.Analyze(&entity.TimelineView{EntityIDs: []string{a}})
	assert.Equal(t, 2, filtered.TotalEvents)
}

func TestSortedEventsUndatedBetweenDated(t *testing.T) {
	undated := func(id, name string) *entity.TimelineEvent {
		ev := entity.NewTimelineEvent(name, entity.EventTypeCustom, entity.Timestamp{Description: "writing milestone"})
		ev.ID = id
		return ev
	}

	tests := []struct {
		name   string
		events []*entity.TimelineEvent
		want   []string
	}{
		{
			name:   "undated keeps its slot",
			events: []*entity.TimelineEvent{eventAt("e2", "Draws sword", 12), undated("note", "Note"), eventAt("e1", "Dies", 10)},
			want:   []string{"e1", "note", "e2"},
		},
		{
			name: "several undated interleaved",
			events: []*entity.TimelineEvent{
				undated("n1", "First note"),
				eventAt("d9", "Nine", 9),
				undated("n2", "Second note"),
				eventAt("d4", "Four", 4),
				eventAt("d1", "One", 1),
				undated("n3", "Third note"),
				eventAt("d6", "Six", 6),
			},
			want: []string{"n1", "d1", "n2", "d4", "d6", "n3", "d9"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry()
			for _, ev := range tt.events {
				mustAddEvent(t, r, ev)
			}
			assert.Equal(t, tt.want, ids(r.SortedEvents()))
			assert.Equal(t, tt.want, ids(r.Capture().Events))
		})
	}
}

func TestSortedEventsUndatedWithDependency(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("d5", "Day five", 5))
	mustAddEvent(t, r, eventAt("d2", "Day two", 2))

	// 没有时间戳，但依赖把它放到 d2 之前
	prelude := entity.NewTimelineEvent("Prelude", entity.EventTypeCustom, entity.Timestamp{})
	prelude.ID = "prelude"
	prelude.Dependencies = []entity.Dependency{{TargetEventID: "d2", Type: entity.DependencyMustHappenAfter}}
	mustAddEvent(t, r, prelude)

	got := ids(r.SortedEvents())
	assert.Equal(t, []string{"prelude", "d2", "d5"}, got)
}

func TestSortChronologicallyContradiction(t *testing.T) {
	// 时间戳说 a 在前，依赖说 b 在 a 之前、c 在 b 之前，而 c 的时间晚于 a
	a := eventAt("a", "A", 1)
	b := entity.NewTimelineEvent("B", entity.EventTypeCustom, entity.Timestamp{})
	b.ID = "b"
	b.Dependencies = []entity.Dependency{{TargetEventID: "a", Type: entity.DependencyMustHappenAfter}}
	c := eventAt("c", "C", 3)
	c.Dependencies = []entity.Dependency{{TargetEventID: "b", Type: entity.DependencyMustHappenAfter}}

	events := []*entity.TimelineEvent{a, b, c}
	SortChronologically(events)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(events))
	assert.Equal(t, "a", events[0].ID, "earliest inserted event breaks the cycle")
}

func TestDependencyCycleRejected(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("a", "A", 1))
	mustAddEvent(t, r, eventAt("b", "B", 2))
	mustAddEvent(t, r, eventAt("c", "C", 3))

	// a -> b -> c
	require.NoError(t, r.AddDependency("b", "a", entity.DependencyMustHappenBefore, ""))
	require.NoError(t, r.AddDependency("b", "c", entity.DependencyMustHappenAfter, ""))
	rev := r.Revision()

	tests := []struct {
		name    string
		from    string
		to      string
		depType entity.DependencyType
	}{
		{name: "direct reversal", from: "a", to: "b", depType: entity.DependencyMustHappenBefore},
		{name: "through chain", from: "c", to: "a", depType: entity.DependencyMustHappenAfter},
		{name: "reversed after", from: "a", to: "c", depType: entity.DependencyMustHappenBefore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.AddDependency(tt.from, tt.to, tt.depType, "")
			require.ErrorIs(t, err, apperrors.ErrInvalidParam)
			assert.Contains(t, err.Error(), "dependency cycle")
		})
	}
	assert.Equal(t, rev, r.Revision())
	ev, _ := r.GetEvent("a")
	assert.Empty(t, ev.Dependencies)

	// 非先后类依赖不参与环检测
	require.NoError(t, r.AddDependency("a", "c", entity.DependencyCannotHappenWith, ""))
	require.NoError(t, r.AddDependency("a", "b", entity.DependencyMustHappenAfter, ""))
}

func TestMergeEventsRejectsCycle(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("a", "A", 1))
	b := eventAt("b", "B", 2)
	b.Dependencies = []entity.Dependency{{TargetEventID: "a", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, b)
	c := eventAt("c", "C", 3)
	c.Dependencies = []entity.Dependency{{TargetEventID: "b", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, c)

	_, err := r.MergeEvents("c", "a")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	assert.Equal(t, []string{"a", "b", "c"}, ids(r.ListEvents()))

	_, err = r.MergeEvents("b", "a")
	assert.NoError(t, err)
}
