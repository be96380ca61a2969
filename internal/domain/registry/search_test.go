package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name  string
		ename string
		desc  string
		tags  []string
		query string
		want  int
	}{
		{"exact name", "Kaelen", "", nil, "kaelen", 10 + 2},
		{"prefix", "Kaelen Ashborn", "", nil, "kaelen", 6 + 2},
		{"contains", "Sir Kaelen", "", nil, "kaelen", 4 + 2},
		{"tag match", "Sword", "", []string{"Weapon"}, "weapon", 3},
		{"description", "Sword", "a legendary weapon", nil, "legendary weapon", 2},
		{"no match", "Sword", "", nil, "shield", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreText(tt.ename, tt.desc, tt.tags, tt.query, tokenize(tt.query)))
		})
	}
}

func seedSearch(t *testing.T) *Registry {
	t.Helper()
	r := newTestRegistry()
	mustAddEntity(t, r, "k", entity.EntityTypeCharacter, "Kaelen", "hero")
	mustAddEntity(t, r, "ks", entity.EntityTypeItem, "Kaelen's Sword", "weapon")
	mustAddEntity(t, r, "m", entity.EntityTypeCharacter, "Mira", "kaelen")
	ev := eventAt("e1", "Kaelen", 1)
	ev.Scope = entity.ScopeCharacter
	mustAddEvent(t, r, ev)
	return r
}

func TestSearchOrdering(t *testing.T) {
	r := seedSearch(t)

	results := r.Search("Kaelen", SearchOptions{})
	require.Len(t, results, 4)
	assert.Equal(t, KindEntity, results[0].Kind)
	assert.Equal(t, "k", results[0].ID)
	assert.Equal(t, KindEvent, results[1].Kind)
	assert.Equal(t, "ks", results[2].ID)
	assert.Equal(t, "m", results[3].ID)

	again := r.Search("Kaelen", SearchOptions{})
	assert.Equal(t, results, again)
}

func TestSearchFilters(t *testing.T) {
	r := seedSearch(t)

	got := r.Search("kaelen", SearchOptions{EntityTypes: []entity.EntityType{entity.EntityTypeItem}, Kinds: []ResultKind{KindEntity}})
	require.Len(t, got, 1)
	assert.Equal(t, "ks", got[0].ID)

	got = r.Search("kaelen", SearchOptions{Tags: []string{"hero"}})
	require.Len(t, got, 1)
	assert.Equal(t, "k", got[0].ID)

	got = r.SearchEvents("kaelen", SearchOptions{Scopes: []entity.Scope{entity.ScopeCharacter}})
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)

	assert.Len(t, r.Search("kaelen", SearchOptions{Limit: 2}), 2)
	assert.Empty(t, r.Search("   ", SearchOptions{}))
}

func TestFindSimilar(t *testing.T) {
	r := newTestRegistry()
	mustAddEntity(t, r, "base", entity.EntityTypeCharacter, "Kaelen Ashborn", "hero", "north")
	mustAddEntity(t, r, "twin", entity.EntityTypeCharacter, "Kaelen", "hero")
	mustAddEntity(t, r, "cousin", entity.EntityTypeCharacter, "Dara Ashborn", "north")
	mustAddEntity(t, r, "peer", entity.EntityTypeCharacter, "Mira")
	mustAddEntity(t, r, "rock", entity.EntityTypeItem, "Stone")

	got, err := r.FindSimilar("base", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// twin: 5 + 2 + 3, cousin: 5 + 2 + 3, peer: 5；同分按插入顺序
	assert.Equal(t, "twin", got[0].Entity.ID)
	assert.Equal(t, 10, got[0].Score)
	assert.Equal(t, "cousin", got[1].Entity.ID)
	assert.Equal(t, 10, got[1].Score)
	assert.Equal(t, "peer", got[2].Entity.ID)
	assert.Equal(t, 5, got[2].Score)

	limited, err := r.FindSimilar("base", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = r.FindSimilar("missing", 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindSimilarEvents(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")

	base := eventAt("base", "Battle", 1, a)
	base.Tags = []string{"war"}
	base.PlotImpact = &entity.PlotImpact{Importance: 4}
	mustAddEvent(t, r, base)

	near := eventAt("near", "Skirmish", 2, a)
	near.Tags = []string{"war"}
	near.PlotImpact = &entity.PlotImpact{Importance: 5}
	mustAddEvent(t, r, near)

	far := eventAt("far", "Wedding", 3)
	far.Type = entity.EventTypeCharacterArc
	far.Scope = entity.ScopeWriting
	mustAddEvent(t, r, far)

	got, err := r.FindSimilarEvents("base", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].Event.ID)
	assert.Equal(t, 3+2+2+1+1, got[0].Score)
}
