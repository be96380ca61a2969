package adapter

import (
	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// 地点元数据键
const (
	keyRegion     = "region"
	keyClimate    = "climate"
	keyPopulation = "population"
	keyParent     = "parent_location_id"
)

// Location 地点设定
type Location struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Region           string   `json:"region,omitempty"`
	Climate          string   `json:"climate,omitempty"`
	Population       int      `json:"population,omitempty"`
	ParentLocationID string   `json:"parent_location_id,omitempty"`
}

// LocationAdapter 地点设定与实体互转
type LocationAdapter struct{}

var _ Adapter[*Location] = LocationAdapter{}

// EntityType 实体类型
func (LocationAdapter) EntityType() entity.EntityType { return entity.EntityTypeLocation }

// ToEntity 地点设定转实体
func (LocationAdapter) ToEntity(l *Location) (*entity.Entity, error) {
	if l == nil {
		return nil, wrongInput("location")
	}
	e := entity.NewEntity(entity.EntityTypeLocation, l.Name, l.Tags...)
	e.ID = l.ID
	e.Description = l.Description
	setIfPresent(e.Metadata, keyRegion, l.Region)
	setIfPresent(e.Metadata, keyClimate, l.Climate)
	setIfPresent(e.Metadata, keyPopulation, l.Population)
	setIfPresent(e.Metadata, keyParent, l.ParentLocationID)
	return e, nil
}

// FromEntity 实体转地点设定
func (LocationAdapter) FromEntity(e *entity.Entity) (*Location, error) {
	if e == nil {
		return nil, wrongInput("entity")
	}
	if e.Type != entity.EntityTypeLocation {
		return nil, wrongType(e, entity.EntityTypeLocation)
	}
	pop, _ := asInt(e.Metadata[keyPopulation])
	return &Location{
		ID:               e.ID,
		Name:             e.Name,
		Description:      e.Description,
		Tags:             append([]string(nil), e.Tags...),
		Region:           asString(e.Metadata[keyRegion]),
		Climate:          asString(e.Metadata[keyClimate]),
		Population:       pop,
		ParentLocationID: asString(e.Metadata[keyParent]),
	}, nil
}

// Validate 地点专属校验
func (LocationAdapter) Validate(e *entity.Entity) ValidationResult {
	res := NewValidationResult()
	if e.Type != entity.EntityTypeLocation {
		res.AddError("type", "expected %s", entity.EntityTypeLocation)
		return res
	}
	if v, ok := e.Metadata[keyPopulation]; ok {
		if _, isInt := asInt(v); !isInt {
			res.AddError("metadata."+keyPopulation, "must be a whole number")
		}
	}
	if parent := asString(e.Metadata[keyParent]); parent != "" && parent == e.ID {
		res.AddError("metadata."+keyParent, "a location cannot contain itself")
	}
	if asString(e.Metadata[keyRegion]) == "" {
		res.AddWarning("metadata."+keyRegion, "regional world rules cannot apply without a region")
	}
	return res
}

func wrongInput(what string) error {
	return apperrors.ErrInvalidParam.WithDetail(what + " is required")
}
