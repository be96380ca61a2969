package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
)

func TestAssembleSnapshotRestoresRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kaelen := &entity.Entity{ID: "kaelen", Type: entity.EntityTypeCharacter, Name: "Kaelen", Tags: []string{"mage"}, CreatedAt: now, UpdatedAt: now}
	river := &entity.Entity{ID: "rivertown", Type: entity.EntityTypeLocation, Name: "Rivertown", CreatedAt: now, UpdatedAt: now}
	rel := &entity.Relationship{ID: "r1", From: kaelen.Ref(), To: river.Ref(), Type: entity.RelationshipLocatedIn, Strength: 7, CreatedAt: now}
	ev := entity.NewTimelineEvent("Arrival", entity.EventTypeStoryEvent, entity.AtStoryDay(5))
	ev.ID = "ev1"
	ev.InvolvedEntities = []entity.EntityRef{kaelen.Ref(), river.Ref()}

	head := &snapshotModel{WorldID: "w", Revision: 9, Version: entity.SnapshotVersion, SavedAt: now}
	snap := assembleSnapshot(head,
		[]*entityModel{toEntityModel("w", 9, 0, kaelen), toEntityModel("w", 9, 1, river)},
		[]*relationshipModel{toRelationshipModel("w", 9, 0, rel)},
		[]*eventModel{toEventModel("w", 9, 0, ev)},
	)

	require.Len(t, snap.Entities, 2)
	assert.Equal(t, kaelen, snap.Entities[0])
	assert.Equal(t, []string{}, snap.Entities[1].Tags)
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, rel, snap.Relationships[0])
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "ev1", snap.Events[0].ID)
	assert.Equal(t, uint64(9), snap.Revision)
}

func TestToEventModelIndexesEntities(t *testing.T) {
	ev := entity.NewTimelineEvent("Duel", entity.EventTypeStoryEvent, entity.AtStoryDay(2.5))
	ev.InvolvedEntities = []entity.EntityRef{{ID: "a"}, {ID: "b"}}

	m := toEventModel("w", 1, 3, ev)
	assert.Equal(t, []string{"a", "b"}, []string(m.EntityIDs))
	require.NotNil(t, m.StoryDay)
	assert.InDelta(t, 2.5, *m.StoryDay, 1e-9)
	assert.Equal(t, 3, m.Position)
}

func TestRelationshipWithUnknownEndpointKeepsID(t *testing.T) {
	m := &relationshipModel{ID: "r", FromID: "ghost", ToID: "x"}
	rel := m.toRelationship(map[string]entity.EntityRef{"x": {ID: "x", Name: "X"}})
	assert.Equal(t, entity.EntityRef{ID: "ghost"}, rel.From)
	assert.Equal(t, "X", rel.To.Name)
}
