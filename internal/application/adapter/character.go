package adapter

import (
	"z-novel-lore-api/internal/domain/entity"
)

// CharacterImportance 角色重要性
type CharacterImportance string

const (
	ImportanceProtagonist CharacterImportance = "protagonist"
	ImportanceMajor       CharacterImportance = "major"
	ImportanceSecondary   CharacterImportance = "secondary"
	ImportanceMinor       CharacterImportance = "minor"
)

func (i CharacterImportance) valid() bool {
	switch i {
	case ImportanceProtagonist, ImportanceMajor, ImportanceSecondary, ImportanceMinor:
		return true
	}
	return false
}

// 角色元数据键
const (
	keyAge         = "age"
	keyGender      = "gender"
	keyOccupation  = "occupation"
	keyPersonality = "personality"
	keyAbilities   = "abilities"
	keyBackground  = "background"
	keyImportance  = "importance"
	keyAliases     = "aliases"
)

// Character 角色卡
type Character struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Aliases     []string            `json:"aliases,omitempty"`
	Description string              `json:"description,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Age         int                 `json:"age,omitempty"`
	Gender      string              `json:"gender,omitempty"`
	Occupation  string              `json:"occupation,omitempty"`
	Personality string              `json:"personality,omitempty"`
	Abilities   []string            `json:"abilities,omitempty"`
	Background  string              `json:"background,omitempty"`
	Importance  CharacterImportance `json:"importance,omitempty"`
}

// CharacterAdapter 角色卡与实体互转
type CharacterAdapter struct{}

var _ Adapter[*Character] = CharacterAdapter{}

// EntityType 实体类型
func (CharacterAdapter) EntityType() entity.EntityType { return entity.EntityTypeCharacter }

// ToEntity 角色卡转实体
func (CharacterAdapter) ToEntity(c *Character) (*entity.Entity, error) {
	if c == nil {
		return nil, wrongInput("character")
	}
	e := entity.NewEntity(entity.EntityTypeCharacter, c.Name, c.Tags...)
	e.ID = c.ID
	e.Description = c.Description

	imp := c.Importance
	if imp == "" {
		imp = ImportanceSecondary
	}
	setIfPresent(e.Metadata, keyAliases, c.Aliases)
	setIfPresent(e.Metadata, keyAge, c.Age)
	setIfPresent(e.Metadata, keyGender, c.Gender)
	setIfPresent(e.Metadata, keyOccupation, c.Occupation)
	setIfPresent(e.Metadata, keyPersonality, c.Personality)
	setIfPresent(e.Metadata, keyAbilities, c.Abilities)
	setIfPresent(e.Metadata, keyBackground, c.Background)
	e.Metadata[keyImportance] = string(imp)
	return e, nil
}

// FromEntity 实体转角色卡，未知元数据键被忽略
func (CharacterAdapter) FromEntity(e *entity.Entity) (*Character, error) {
	if e == nil {
		return nil, wrongInput("entity")
	}
	if e.Type != entity.EntityTypeCharacter {
		return nil, wrongType(e, entity.EntityTypeCharacter)
	}
	age, _ := asInt(e.Metadata[keyAge])
	return &Character{
		ID:          e.ID,
		Name:        e.Name,
		Aliases:     asStrings(e.Metadata[keyAliases]),
		Description: e.Description,
		Tags:        append([]string(nil), e.Tags...),
		Age:         age,
		Gender:      asString(e.Metadata[keyGender]),
		Occupation:  asString(e.Metadata[keyOccupation]),
		Personality: asString(e.Metadata[keyPersonality]),
		Abilities:   asStrings(e.Metadata[keyAbilities]),
		Background:  asString(e.Metadata[keyBackground]),
		Importance:  CharacterImportance(asString(e.Metadata[keyImportance])),
	}, nil
}

// Validate 角色专属校验
func (CharacterAdapter) Validate(e *entity.Entity) ValidationResult {
	res := NewValidationResult()
	if e.Type != entity.EntityTypeCharacter {
		res.AddError("type", "expected %s", entity.EntityTypeCharacter)
		return res
	}
	if v, ok := e.Metadata[keyAge]; ok {
		age, isInt := asInt(v)
		switch {
		case !isInt:
			res.AddError("metadata."+keyAge, "must be a whole number")
		case age > 10000:
			res.AddWarning("metadata."+keyAge, "is unusually high (%d)", age)
		}
	}
	if v, ok := e.Metadata[keyImportance]; ok {
		if imp := CharacterImportance(asString(v)); !imp.valid() {
			res.AddWarning("metadata."+keyImportance, "unknown importance %q", asString(v))
		}
	}
	if v, ok := e.Metadata[keyAbilities]; ok && asStrings(v) == nil {
		res.AddError("metadata."+keyAbilities, "must be a list of strings")
	}
	if e.Description == "" {
		res.AddWarning("description", "characters without a description are hard to check for consistency")
	}
	return res
}
