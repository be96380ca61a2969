package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func TestAddEntity(t *testing.T) {
	r := newTestRegistry()

	id := mustAddEntity(t, r, "", entity.EntityTypeCharacter, "Kaelen", "hero", "hero")
	assert.Equal(t, "gen-001", id)

	got, err := r.GetEntity(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, got.Tags)

	_, err = r.AddEntity(&entity.Entity{ID: id, Type: entity.EntityTypeItem, Name: "Other"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateID)

	// id 在所有类型之间唯一
	assert.Len(t, r.ListEntities(), 1)
}

func TestAddEntityAllowsEmptyName(t *testing.T) {
	r := newTestRegistry()
	_, err := r.AddEntity(&entity.Entity{Type: entity.EntityTypeItem})
	assert.NoError(t, err)
}

func TestGetEntityReturnsCopy(t *testing.T) {
	r := newTestRegistry()
	id := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen", "hero")

	got, err := r.GetEntity(id)
	require.NoError(t, err)
	got.Tags[0] = "villain"

	assert.Len(t, r.GetEntitiesByTag("hero"), 1)
	assert.Empty(t, r.GetEntitiesByTag("villain"))
}

func TestUpdateEntityReindexes(t *testing.T) {
	r := newTestRegistry()
	id := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen", "hero", "knight")
	before, _ := r.GetEntity(id)

	name := "Mira"
	tags := []string{"mage"}
	typ := entity.EntityTypeFaction
	updated, err := r.UpdateEntity(id, entity.EntityPatch{Name: &name, Tags: &tags, Type: &typ})
	require.NoError(t, err)

	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	assert.Empty(t, r.GetEntitiesByTag("hero"))
	assert.Empty(t, r.GetEntitiesByTag("knight"))
	assert.Equal(t, []string{id}, ids(r.GetEntitiesByTag("mage")))
	assert.Empty(t, r.GetEntitiesByType(entity.EntityTypeCharacter))
	assert.Equal(t, []string{id}, ids(r.GetEntitiesByType(entity.EntityTypeFaction)))
	assert.Empty(t, r.FindEntitiesByName("kael"))
	assert.Equal(t, []string{id}, ids(r.FindEntitiesByName("MIR")))
	assertIndexesConsistent(t, r)
}

func TestUpdateEntityAlwaysBumpsUpdatedAt(t *testing.T) {
	r := newTestRegistry()
	id := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	before, _ := r.GetEntity(id)

	updated, err := r.UpdateEntity(id, entity.EntityPatch{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
}

func TestUpdateEntityNotFound(t *testing.T) {
	r := newTestRegistry()
	_, err := r.UpdateEntity("missing", entity.EntityPatch{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateEntityRefreshesSnapshots(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	b := mustAddEntity(t, r, "b", entity.EntityTypeLocation, "Rivertown")
	relID, err := r.AddRelationship(entity.RelationshipInput{FromID: a, ToID: b, Type: entity.RelationshipLocatedIn})
	require.NoError(t, err)
	ev := eventAt("e1", "Arrival", 1, a)
	ev.PrimaryEntity = &entity.EntityRef{ID: a}
	mustAddEvent(t, r, ev)

	name := "Kaelen Ashborn"
	_, err = r.UpdateEntity(a, entity.EntityPatch{Name: &name})
	require.NoError(t, err)

	rel, _ := r.GetRelationship(relID)
	assert.Equal(t, name, rel.From.Name)
	got, _ := r.GetEvent("e1")
	assert.Equal(t, name, got.InvolvedEntities[0].Name)
	assert.Equal(t, name, got.PrimaryEntity.Name)
}

func TestRemoveEntityCascades(t *testing.T) {
	r := newTestRegistry()
	x := mustAddEntity(t, r, "x", entity.EntityTypeCharacter, "Kaelen", "hero")
	y := mustAddEntity(t, r, "y", entity.EntityTypeCharacter, "Mira")
	loc := mustAddEntity(t, r, "loc", entity.EntityTypeLocation, "Rivertown")

	_, err := r.AddRelationship(entity.RelationshipInput{FromID: x, ToID: y, Type: entity.RelationshipAllyOf})
	require.NoError(t, err)
	keep, err := r.AddRelationship(entity.RelationshipInput{FromID: y, ToID: loc, Type: entity.RelationshipLocatedIn})
	require.NoError(t, err)
	_, err = r.AddRelationship(entity.RelationshipInput{FromID: x, ToID: x, Type: entity.RelationshipKnows})
	require.NoError(t, err)

	ev := eventAt("e1", "Meeting", 1, x, y)
	ev.PrimaryEntity = &entity.EntityRef{ID: x}
	ev.CharacterContext = &entity.CharacterContext{CharacterID: x}
	mustAddEvent(t, r, ev)

	require.NoError(t, r.RemoveEntity(x))
	require.NoError(t, r.RemoveEntity(x))

	assert.Empty(t, r.RelationshipsFor(x))
	assert.Equal(t, []string{keep}, ids(r.ListRelationships()))
	for _, rel := range r.ListRelationships() {
		assert.False(t, rel.Touches(x))
	}
	got, err := r.GetEvent("e1")
	require.NoError(t, err)
	assert.False(t, got.Involves(x))
	assert.Nil(t, got.PrimaryEntity)
	assert.Empty(t, got.CharacterContext.CharacterID)
	assert.Equal(t, []string{y}, got.EntityIDs())
	assert.Empty(t, r.GetEntitiesByTag("hero"))
	assertIndexesConsistent(t, r)
}

func TestIndexConsistencyAfterMixedOperations(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		mustAddEntity(t, r, "", entity.EntityTypes[i%3], name, "t"+name[:1], "shared")
	}
	all := r.ListEntities()
	tags := []string{"shared", "fresh"}
	_, err := r.UpdateEntity(all[0].ID, entity.EntityPatch{Tags: &tags})
	require.NoError(t, err)
	require.NoError(t, r.RemoveEntity(all[1].ID))
	_, err = r.MergeEntities(all[2].ID, all[3].ID)
	require.NoError(t, err)

	assertIndexesConsistent(t, r)
	for _, e := range r.ListEntities() {
		assert.Contains(t, ids(r.GetEntitiesByType(e.Type)), e.ID)
		for _, tag := range e.Tags {
			assert.Contains(t, ids(r.GetEntitiesByTag(tag)), e.ID)
		}
	}
}

func TestListingsKeepInsertionOrder(t *testing.T) {
	r := newTestRegistry()
	for _, id := range []string{"z", "b", "m"} {
		mustAddEntity(t, r, id, entity.EntityTypeItem, "Item "+id, "loot")
	}
	assert.Equal(t, []string{"z", "b", "m"}, ids(r.ListEntities()))
	assert.Equal(t, []string{"z", "b", "m"}, ids(r.GetEntitiesByTag("loot")))
	assert.Equal(t, []string{"z", "b", "m"}, ids(r.FindEntitiesByName("item")))
}

func TestFindDuplicates(t *testing.T) {
	r := newTestRegistry()
	mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	mustAddEntity(t, r, "b", entity.EntityTypeCharacter, " kaelen ")
	mustAddEntity(t, r, "c", entity.EntityTypeLocation, "Kaelen")
	mustAddEntity(t, r, "d", entity.EntityTypeCharacter, "Mira")

	groups := r.FindDuplicates()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a", "b"}, ids(groups[0]))
}

func TestMergeEntities(t *testing.T) {
	r := newTestRegistry()
	src := entity.NewEntity(entity.EntityTypeCharacter, "Kael", "hero", "exile")
	src.ID = "src"
	src.Metadata = map[string]any{"age": 30, "origin": "north"}
	_, err := r.AddEntity(src)
	require.NoError(t, err)
	dst := entity.NewEntity(entity.EntityTypeCharacter, "Kaelen", "hero", "knight")
	dst.ID = "dst"
	dst.Metadata = map[string]any{"age": 31}
	_, err = r.AddEntity(dst)
	require.NoError(t, err)
	other := mustAddEntity(t, r, "o", entity.EntityTypeCharacter, "Mira")

	r1, err := r.AddRelationship(entity.RelationshipInput{FromID: "src", ToID: other, Type: entity.RelationshipKnows})
	require.NoError(t, err)
	r2, err := r.AddRelationship(entity.RelationshipInput{FromID: other, ToID: "src", Type: entity.RelationshipAllyOf})
	require.NoError(t, err)
	r3, err := r.AddRelationship(entity.RelationshipInput{FromID: "dst", ToID: other, Type: entity.RelationshipEnemyOf})
	require.NoError(t, err)
	mustAddEvent(t, r, eventAt("e1", "Duel", 2, "src", "dst"))

	before := append(ids(r.RelationshipsFor("src")), ids(r.RelationshipsFor("dst"))...)

	merged, err := r.MergeEntities("src", "dst")
	require.NoError(t, err)

	assert.Equal(t, []string{"hero", "knight", "exile"}, merged.Tags)
	assert.Equal(t, 31, merged.Metadata["age"])
	assert.Equal(t, "north", merged.Metadata["origin"])

	_, err = r.GetEntity("src")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, r.RelationshipsFor("src"))
	after := ids(r.RelationshipsFor("dst"))
	assert.Subset(t, after, before)
	assert.ElementsMatch(t, []string{r1, r2, r3}, after)

	ev, _ := r.GetEvent("e1")
	assert.Equal(t, []string{"dst"}, ev.EntityIDs())
	assertIndexesConsistent(t, r)
}

func TestMergeEntitiesErrors(t *testing.T) {
	r := newTestRegistry()
	mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")

	_, err := r.MergeEntities("a", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = r.MergeEntities("missing", "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = r.MergeEntities("a", "a")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	_, err = r.GetEntity("a")
	assert.NoError(t, err)
}
