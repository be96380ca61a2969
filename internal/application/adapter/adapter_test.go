package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

func TestCharacterRoundTrip(t *testing.T) {
	in := &Character{
		ID:          "kaelen",
		Name:        "Kaelen",
		Aliases:     []string{"The Grey Blade"},
		Description: "A disgraced knight",
		Tags:        []string{"knight"},
		Age:         34,
		Gender:      "male",
		Occupation:  "mercenary",
		Abilities:   []string{"swordplay", "tracking"},
		Importance:  ImportanceProtagonist,
	}
	a := CharacterAdapter{}

	e, err := a.ToEntity(in)
	require.NoError(t, err)
	assert.Equal(t, entity.EntityTypeCharacter, e.Type)
	assert.Equal(t, 34, e.Metadata["age"])
	assert.NotContains(t, e.Metadata, "personality")

	out, err := a.FromEntity(e)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCharacterFromJSONDecodedEntity(t *testing.T) {
	raw := `{"id":"mira","type":"character","name":"Mira","tags":[],"metadata":{"age":19,"abilities":["healing"],"importance":"major"}}`
	var e entity.Entity
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	c, err := CharacterAdapter{}.FromEntity(&e)
	require.NoError(t, err)
	assert.Equal(t, 19, c.Age)
	assert.Equal(t, []string{"healing"}, c.Abilities)
	assert.Equal(t, ImportanceMajor, c.Importance)
}

func TestFromEntityRejectsWrongType(t *testing.T) {
	e := entity.NewEntity(entity.EntityTypeItem, "Lantern")
	_, err := CharacterAdapter{}.FromEntity(e)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	_, err = LocationAdapter{}.FromEntity(e)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestLocationRoundTrip(t *testing.T) {
	in := &Location{ID: "river", Name: "Rivertown", Region: "Northreach", Climate: "temperate", Population: 1200, ParentLocationID: "northreach"}
	a := LocationAdapter{}
	e, err := a.ToEntity(in)
	require.NoError(t, err)
	out, err := a.FromEntity(e)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, a.Validate(e).IsValid)
}

func TestValidateEntity(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *entity.Entity
		valid     bool
		errFields []string
		warnField string
	}{
		{
			name:  "valid item",
			build: func() *entity.Entity { return entity.NewEntity(entity.EntityTypeItem, "Lantern") },
			valid: true,
		},
		{
			name:      "empty name",
			build:     func() *entity.Entity { return entity.NewEntity(entity.EntityTypeItem, "  ") },
			errFields: []string{"name"},
		},
		{
			name:      "unknown type",
			build:     func() *entity.Entity { return entity.NewEntity(entity.EntityType("dragon"), "Smaug") },
			errFields: []string{"type"},
		},
		{
			name: "negative counts",
			build: func() *entity.Entity {
				e := entity.NewEntity(entity.EntityTypeItem, "Coin purse")
				e.Metadata["count"] = -3
				e.Metadata["weight"] = -0.5
				return e
			},
			errFields: []string{"metadata.count", "metadata.weight"},
		},
		{
			name: "character fractional age",
			build: func() *entity.Entity {
				e := entity.NewEntity(entity.EntityTypeCharacter, "Aria")
				e.Description = "A scout"
				e.Metadata["age"] = 19.5
				return e
			},
			errFields: []string{"metadata.age"},
		},
		{
			name: "character unknown importance is a warning",
			build: func() *entity.Entity {
				e := entity.NewEntity(entity.EntityTypeCharacter, "Aria")
				e.Description = "A scout"
				e.Metadata["importance"] = "legendary"
				return e
			},
			valid:     true,
			warnField: "metadata.importance",
		},
		{
			name: "location contains itself",
			build: func() *entity.Entity {
				e := entity.NewEntity(entity.EntityTypeLocation, "Keep")
				e.ID = "keep"
				e.Metadata["region"] = "north"
				e.Metadata["parent_location_id"] = "keep"
				return e
			},
			errFields: []string{"metadata.parent_location_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateEntity(tt.build())
			assert.Equal(t, tt.valid, res.IsValid)
			var fields []string
			for _, fe := range res.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.errFields, fields)
			if tt.warnField != "" {
				var warned []string
				for _, w := range res.Warnings {
					warned = append(warned, w.Field)
				}
				assert.Contains(t, warned, tt.warnField)
			}
			if tt.valid {
				assert.NoError(t, res.Err())
			} else {
				assert.ErrorIs(t, res.Err(), apperrors.ErrValidationFailed)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	res := ValidateEntity(nil)
	assert.False(t, res.IsValid)
}
