package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func TestAddRelationship(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	b := mustAddEntity(t, r, "b", entity.EntityTypeItem, "Sword")

	tests := []struct {
		name    string
		in      entity.RelationshipInput
		wantErr *apperrors.AppError
		wantStr int
	}{
		{"valid", entity.RelationshipInput{FromID: a, ToID: b, Type: entity.RelationshipOwns, Strength: 8}, nil, 8},
		{"default strength", entity.RelationshipInput{FromID: a, ToID: b, Type: entity.RelationshipOwns}, nil, entity.DefaultStrength},
		{"clamped strength", entity.RelationshipInput{FromID: a, ToID: b, Type: entity.RelationshipOwns, Strength: 99}, nil, entity.MaxStrength},
		{"self relationship", entity.RelationshipInput{FromID: a, ToID: a, Type: entity.RelationshipKnows}, nil, entity.DefaultStrength},
		{"missing source", entity.RelationshipInput{FromID: "nope", ToID: b, Type: entity.RelationshipOwns}, apperrors.ErrInvalidReference, 0},
		{"missing target", entity.RelationshipInput{FromID: a, ToID: "nope", Type: entity.RelationshipOwns}, apperrors.ErrInvalidReference, 0},
		{"unknown type", entity.RelationshipInput{FromID: a, ToID: b, Type: "hates"}, apperrors.ErrInvalidParam, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.AddRelationship(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			rel, err := r.GetRelationship(id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, rel.Strength)
		})
	}
}

func TestRelationshipQueries(t *testing.T) {
	r := newTestRegistry()
	a := mustAddEntity(t, r, "a", entity.EntityTypeCharacter, "Kaelen")
	b := mustAddEntity(t, r, "b", entity.EntityTypeCharacter, "Mira")
	c := mustAddEntity(t, r, "c", entity.EntityTypeFaction, "Order")

	ab, _ := r.AddRelationship(entity.RelationshipInput{FromID: a, ToID: b, Type: entity.RelationshipKnows})
	ba, _ := r.AddRelationship(entity.RelationshipInput{FromID: b, ToID: a, Type: entity.RelationshipAllyOf, Bidirectional: true})
	ac, _ := r.AddRelationship(entity.RelationshipInput{FromID: a, ToID: c, Type: entity.RelationshipMemberOf})

	assert.Equal(t, []string{ab, ba, ac}, ids(r.RelationshipsFor(a)))
	assert.Equal(t, ids(r.RelationshipsBetween(a, b)), ids(r.RelationshipsBetween(b, a)))
	assert.Equal(t, []string{ab, ba}, ids(r.RelationshipsBetween(a, b)))

	refs := r.CrossReferences(a)
	require.Len(t, refs, 1)
	assert.Equal(t, entity.CrossReference{SourceID: b, RelationshipID: ba, Context: "ally_of relationship"}, refs[0])

	refs = r.CrossReferences(c)
	require.Len(t, refs, 1)
	assert.Equal(t, "member_of relationship", refs[0].Context)

	require.NoError(t, r.RemoveRelationship(ab))
	require.NoError(t, r.RemoveRelationship(ab))
	_, err := r.GetRelationship(ab)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, []string{ba, ac}, ids(r.RelationshipsFor(a)))
	assertIndexesConsistent(t, r)
}
