package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func seedWorld(t *testing.T, r *Registry) {
	t.Helper()
	k := entity.NewEntity(entity.EntityTypeCharacter, "Kaelen", "hero")
	k.ID = "k"
	k.Metadata = map[string]any{"age": 31.0, "skills": []any{"sword", "ride"}}
	_, err := r.AddEntity(k)
	require.NoError(t, err)
	mustAddEntity(t, r, "town", entity.EntityTypeLocation, "Rivertown")
	_, err = r.AddRelationship(entity.RelationshipInput{ID: "rel", FromID: "k", ToID: "town", Type: entity.RelationshipLocatedIn})
	require.NoError(t, err)
	mustAddEvent(t, r, eventAt("e1", "Arrival", 1, "k"))
	e2 := eventAt("e2", "Departure", 2, "k")
	e2.Dependencies = []entity.Dependency{{TargetEventID: "e1", Type: entity.DependencyMustHappenBefore}}
	mustAddEvent(t, r, e2)
}

func TestEntityRoundTrip(t *testing.T) {
	r := newTestRegistry()
	seedWorld(t, r)

	first := r.ExportEntities(nil)
	res, err := r.ImportEntities(first, true)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Replaced: 2}, res)
	second := r.ExportEntities(nil)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(b1), string(b2))
	assert.Equal(t, string(b1), string(b2))
	assertIndexesConsistent(t, r)
}

func TestImportEntitiesSkipsCollisions(t *testing.T) {
	r := newTestRegistry()
	seedWorld(t, r)

	renamed := entity.NewEntity(entity.EntityTypeCharacter, "Someone Else")
	renamed.ID = "k"
	fresh := entity.NewEntity(entity.EntityTypeItem, "Lantern")
	fresh.ID = "lantern"

	res, err := r.ImportEntities([]*entity.Entity{renamed, fresh}, false)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 1, Skipped: 1}, res)

	k, _ := r.GetEntity("k")
	assert.Equal(t, "Kaelen", k.Name)

	_, err = r.ImportEntities([]*entity.Entity{fresh, fresh}, false)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateID)
}

func TestExportEntitiesFilter(t *testing.T) {
	r := newTestRegistry()
	seedWorld(t, r)

	got := r.ExportEntities(&EntityFilter{Types: []entity.EntityType{entity.EntityTypeLocation}})
	assert.Equal(t, []string{"town"}, ids(got))
	got = r.ExportEntities(&EntityFilter{Tags: []string{"hero"}})
	assert.Equal(t, []string{"k"}, ids(got))
}

func TestImportEventsAllOrNothing(t *testing.T) {
	r := newTestRegistry()
	seedWorld(t, r)

	good := eventAt("e3", "Return", 3, "k")
	good.Dependencies = []entity.Dependency{{TargetEventID: "e4", Type: entity.DependencyMustHappenAfter}}
	forward := eventAt("e4", "Feast", 4)
	res, err := r.ImportEvents([]*entity.TimelineEvent{good, forward}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	bad := eventAt("e5", "Broken", 5, "ghost")
	okay := eventAt("e6", "Fine", 6)
	_, err = r.ImportEvents([]*entity.TimelineEvent{okay, bad}, false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)
	_, err = r.GetEvent("e6")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTimelineRoundTrip(t *testing.T) {
	r := newTestRegistry()
	seedWorld(t, r)

	first := r.ExportTimeline(nil)
	_, err := r.ImportEvents(first, true)
	require.NoError(t, err)
	second := r.ExportTimeline(nil)
	assert.Equal(t, first, second)
}

func TestSnapshotRestore(t *testing.T) {
	src := newTestRegistry()
	seedWorld(t, src)
	snap := src.Snapshot()

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded entity.Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))

	dst := newTestRegistry()
	mustAddEntity(t, dst, "stale", entity.EntityTypeItem, "Stale")
	require.NoError(t, dst.Restore(&decoded))

	assert.Equal(t, ids(src.ListEntities()), ids(dst.ListEntities()))
	assert.Equal(t, ids(src.ListRelationships()), ids(dst.ListRelationships()))
	assert.Equal(t, ids(src.ListEvents()), ids(dst.ListEvents()))
	assert.Equal(t, []string{"rel"}, ids(dst.RelationshipsFor("town")))
	assert.Equal(t, []string{"k"}, ids(dst.GetEntitiesByTag("hero")))
	assert.Equal(t, snap.Revision, dst.Revision())
	assertIndexesConsistent(t, dst)
}

func TestRestoreRejectsDanglingReferences(t *testing.T) {
	src := newTestRegistry()
	seedWorld(t, src)
	snap := src.Snapshot()
	snap.Entities = snap.Entities[:1] // 丢掉 town，关系变为悬空

	dst := newTestRegistry()
	mustAddEntity(t, dst, "keep", entity.EntityTypeItem, "Keep")
	err := dst.Restore(snap)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReference)
	assert.Equal(t, []string{"keep"}, ids(dst.ListEntities()))
}

func TestCaptureIsChronological(t *testing.T) {
	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("late", "Late", 9))
	mustAddEvent(t, r, eventAt("early", "Early", 1))

	st := r.Capture()
	assert.Equal(t, []string{"early", "late"}, ids(st.Events))
	assert.Equal(t, r.Revision(), st.Revision)
}

func TestImportAndRestoreRejectDependencyCycle(t *testing.T) {
	cyclic := func() []*entity.TimelineEvent {
		x := eventAt("x", "X", 1)
		x.Dependencies = []entity.Dependency{{TargetEventID: "y", Type: entity.DependencyMustHappenBefore}}
		y := eventAt("y", "Y", 2)
		y.Dependencies = []entity.Dependency{{TargetEventID: "x", Type: entity.DependencyMustHappenBefore}}
		return []*entity.TimelineEvent{x, y}
	}

	r := newTestRegistry()
	mustAddEvent(t, r, eventAt("keep", "Keep", 0))
	_, err := r.ImportEvents(cyclic(), false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	err = r.Restore(&entity.Snapshot{Version: entity.SnapshotVersion, Events: cyclic()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	assert.Equal(t, []string{"keep"}, ids(r.ListEvents()))
}
