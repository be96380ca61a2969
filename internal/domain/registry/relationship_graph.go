package registry

import (
	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// AddRelationship 添加关系，两端实体必须存在；允许自环
func (r *Registry) AddRelationship(in entity.RelationshipInput) (string, error) {
	var id string
	err := r.mutate(func() (*entity.Change, error) {
		rel, err := r.buildRelationship(in)
		if err != nil {
			return nil, err
		}
		rel.CreatedAt = r.now()
		r.insertRelationship(rel)
		id = rel.ID
		return changeOf(entity.ChangeAdded, entity.ObjectRelationship, id), nil
	})
	return id, err
}

func (r *Registry) buildRelationship(in entity.RelationshipInput) (*entity.Relationship, error) {
	from, ok := r.resolveRef(in.FromID)
	if !ok {
		return nil, apperrors.ErrInvalidReference.WithDetail("relationship source " + in.FromID)
	}
	to, ok := r.resolveRef(in.ToID)
	if !ok {
		return nil, apperrors.ErrInvalidReference.WithDetail("relationship target " + in.ToID)
	}
	relType := in.Type
	if relType == "" {
		relType = entity.RelationshipCustom
	}
	if !relType.Valid() {
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown relationship type " + string(relType))
	}
	id := in.ID
	if id == "" {
		id = r.newID()
	}
	if _, exists := r.relations[id]; exists {
		return nil, apperrors.ErrDuplicateID.WithDetail("relationship " + id)
	}
	return &entity.Relationship{
		ID:            id,
		From:          from,
		To:            to,
		Type:          relType,
		Strength:      entity.ClampStrength(in.Strength),
		Bidirectional: in.Bidirectional,
		Description:   in.Description,
	}, nil
}

func (r *Registry) insertRelationship(rel *entity.Relationship) {
	r.relations[rel.ID] = rel
	r.track(rel.ID)
	r.linkRelationship(rel)
}

// RemoveRelationship 删除关系，不存在时为空操作
func (r *Registry) RemoveRelationship(id string) error {
	return r.mutate(func() (*entity.Change, error) {
		rel, ok := r.relations[id]
		if !ok {
			return nil, nil
		}
		r.unlinkRelationship(rel)
		delete(r.relations, id)
		delete(r.seq, id)
		return changeOf(entity.ChangeRemoved, entity.ObjectRelationship, id), nil
	})
}

// GetRelationship 获取关系
func (r *Registry) GetRelationship(id string) (*entity.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.relations[id]
	if !ok {
		return nil, apperrors.ErrRelationshipNotFound.WithDetail(id)
	}
	return rel.Clone(), nil
}

// ListRelationships 按插入顺序列出全部关系
func (r *Registry) ListRelationships() []*entity.Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.relationshipsLocked()
}

func (r *Registry) relationshipsLocked() []*entity.Relationship {
	ids := make([]string, 0, len(r.relations))
	for id := range r.relations {
		ids = append(ids, id)
	}
	r.sortBySeq(ids)
	return r.materializeRelationships(ids)
}

func (r *Registry) materializeRelationships(ids []string) []*entity.Relationship {
	out := make([]*entity.Relationship, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.relations[id].Clone())
	}
	return out
}

// RelationshipsFor 返回以该实体为起点或终点的全部关系
func (r *Registry) RelationshipsFor(entityID string) []*entity.Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.materializeRelationships(r.sortedIDs(r.adjacency[entityID]))
}

// RelationshipsBetween 返回 a 与 b 之间任意方向的关系
func (r *Registry) RelationshipsBetween(a, b string) []*entity.Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for relID := range r.adjacency[a] {
		rel := r.relations[relID]
		if (rel.From.ID == a && rel.To.ID == b) || (rel.From.ID == b && rel.To.ID == a) {
			ids = append(ids, relID)
		}
	}
	r.sortBySeq(ids)
	return r.materializeRelationships(ids)
}

// CrossReferences 返回指向该实体的关系来源，双向关系两端都视为被指向
func (r *Registry) CrossReferences(entityID string) []entity.CrossReference {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entity.CrossReference{}
	for _, relID := range r.sortedIDs(r.adjacency[entityID]) {
		rel := r.relations[relID]
		var source string
		switch {
		case rel.To.ID == entityID:
			source = rel.From.ID
		case rel.Bidirectional && rel.From.ID == entityID:
			source = rel.To.ID
		default:
			continue
		}
		out = append(out, entity.CrossReference{
			SourceID:       source,
			RelationshipID: rel.ID,
			Context:        string(rel.Type) + " relationship",
		})
	}
	return out
}
