package registry

import (
	"strings"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// AddEntity 添加实体，id 为空时自动生成
func (r *Registry) AddEntity(e *entity.Entity) (string, error) {
	if e == nil {
		return "", apperrors.ErrInvalidParam.WithDetail("entity is nil")
	}
	var id string
	err := r.mutate(func() (*entity.Change, error) {
		stored := e.Clone()
		if stored.ID == "" {
			stored.ID = r.newID()
		}
		if _, exists := r.entities[stored.ID]; exists {
			return nil, apperrors.ErrDuplicateID.WithDetail("entity " + stored.ID)
		}
		r.prepareEntity(stored)
		r.insertEntity(stored)
		id = stored.ID
		return changeOf(entity.ChangeAdded, entity.ObjectEntity, id), nil
	})
	return id, err
}

func (r *Registry) prepareEntity(e *entity.Entity) {
	now := r.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	e.Tags = entity.NormalizeTags(e.Tags)
}

func (r *Registry) insertEntity(e *entity.Entity) {
	r.entities[e.ID] = e
	r.track(e.ID)
	r.indexEntity(e)
}

// UpdateEntity 部分更新实体；先移除旧索引再写入新索引
func (r *Registry) UpdateEntity(id string, patch entity.EntityPatch) (*entity.Entity, error) {
	var out *entity.Entity
	err := r.mutate(func() (*entity.Change, error) {
		current, ok := r.entities[id]
		if !ok {
			return nil, apperrors.ErrEntityNotFound.WithDetail(id)
		}
		next := current.Clone()
		patch.Apply(next)
		next.UpdatedAt = r.now()
		if !next.UpdatedAt.After(current.UpdatedAt) {
			next.UpdatedAt = current.UpdatedAt.Add(1)
		}

		r.unindexEntity(current)
		r.entities[id] = next
		r.indexEntity(next)
		if next.Name != current.Name || next.Type != current.Type {
			r.refreshRefs(next.Ref())
		}
		out = next.Clone()
		return changeOf(entity.ChangeUpdated, entity.ObjectEntity, id), nil
	})
	return out, err
}

// refreshRefs 刷新关系与事件中的实体名称快照
func (r *Registry) refreshRefs(ref entity.EntityRef) {
	for relID := range r.adjacency[ref.ID] {
		rel := r.relations[relID]
		if rel.From.ID == ref.ID {
			rel.From = ref
		}
		if rel.To.ID == ref.ID {
			rel.To = ref
		}
	}
	for _, ev := range r.events {
		for i := range ev.InvolvedEntities {
			if ev.InvolvedEntities[i].ID == ref.ID {
				ev.InvolvedEntities[i] = ref
			}
		}
		if ev.PrimaryEntity != nil && ev.PrimaryEntity.ID == ref.ID {
			p := ref
			ev.PrimaryEntity = &p
		}
	}
}

// RemoveEntity 删除实体并级联清理关系与事件引用，实体不存在时为空操作
func (r *Registry) RemoveEntity(id string) error {
	return r.mutate(func() (*entity.Change, error) {
		if _, ok := r.entities[id]; !ok {
			return nil, nil
		}
		r.removeEntityLocked(id)
		return changeOf(entity.ChangeRemoved, entity.ObjectEntity, id), nil
	})
}

func (r *Registry) removeEntityLocked(id string) {
	e := r.entities[id]
	r.unindexEntity(e)
	delete(r.entities, id)
	delete(r.seq, id)

	for relID := range r.adjacency[id] {
		rel := r.relations[relID]
		r.unlinkRelationship(rel)
		delete(r.relations, relID)
		delete(r.seq, relID)
	}
	delete(r.adjacency, id)

	now := r.now()
	for _, ev := range r.events {
		if stripEntity(ev, id) {
			ev.UpdatedAt = now
		}
	}
}

// stripEntity 移除事件中对实体的悬空引用，返回是否有修改
func stripEntity(ev *entity.TimelineEvent, id string) bool {
	changed := false
	kept := ev.InvolvedEntities[:0]
	for _, ref := range ev.InvolvedEntities {
		if ref.ID == id {
			changed = true
			continue
		}
		kept = append(kept, ref)
	}
	ev.InvolvedEntities = kept
	if ev.PrimaryEntity != nil && ev.PrimaryEntity.ID == id {
		ev.PrimaryEntity = nil
		changed = true
	}
	if ev.StoryContext != nil && ev.StoryContext.LocationID == id {
		ev.StoryContext.LocationID = ""
		changed = true
	}
	if ev.CharacterContext != nil && ev.CharacterContext.CharacterID == id {
		ev.CharacterContext.CharacterID = ""
		changed = true
	}
	return changed
}

// GetEntity 获取实体副本
func (r *Registry) GetEntity(id string) (*entity.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[id]
	if !ok {
		return nil, apperrors.ErrEntityNotFound.WithDetail(id)
	}
	return e.Clone(), nil
}

// HasEntity 实体是否存在
func (r *Registry) HasEntity(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entities[id]
	return ok
}

// ListEntities 按插入顺序列出全部实体
func (r *Registry) ListEntities() []*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entitiesLocked()
}

func (r *Registry) entitiesLocked() []*entity.Entity {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	r.sortBySeq(ids)
	return r.materialize(ids)
}

func (r *Registry) materialize(ids []string) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.entities[id].Clone())
	}
	return out
}

// GetEntitiesByType 按类型索引查询
func (r *Registry) GetEntitiesByType(t entity.EntityType) []*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.materialize(r.sortedIDs(r.byType[t]))
}

// GetEntitiesByTag 按标签索引查询
func (r *Registry) GetEntitiesByTag(tag string) []*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.materialize(r.sortedIDs(r.byTag[strings.TrimSpace(tag)]))
}

// FindEntitiesByName 名称子串查询（大小写不敏感）
func (r *Registry) FindEntitiesByName(substr string) []*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := nameKey(substr)
	hits := make(map[string]struct{})
	for name, ids := range r.byName {
		if !strings.Contains(name, needle) {
			continue
		}
		for id := range ids {
			hits[id] = struct{}{}
		}
	}
	return r.materialize(r.sortedIDs(hits))
}

// FindDuplicates 按 (类型, 小写名称) 分组，返回数量大于 1 的组
func (r *Registry) FindDuplicates() [][]*entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		t    entity.EntityType
		name string
	}
	groups := make(map[key][]string)
	var order []key
	for _, e := range r.entitiesLocked() {
		k := key{t: e.Type, name: nameKey(e.Name)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e.ID)
	}

	var out [][]*entity.Entity
	for _, k := range order {
		if ids := groups[k]; len(ids) > 1 {
			out = append(out, r.materialize(ids))
		}
	}
	return out
}

// MergeEntities 将 source 合并到 target：标签与元数据取并集（target 优先），
// 关系端点与事件引用改写为 target，随后删除 source
func (r *Registry) MergeEntities(sourceID, targetID string) (*entity.Entity, error) {
	if sourceID == targetID {
		return nil, apperrors.ErrInvalidParam.WithDetail("cannot merge an entity into itself")
	}
	var out *entity.Entity
	err := r.mutate(func() (*entity.Change, error) {
		source, ok := r.entities[sourceID]
		if !ok {
			return nil, apperrors.ErrEntityNotFound.WithDetail(sourceID)
		}
		target, ok := r.entities[targetID]
		if !ok {
			return nil, apperrors.ErrEntityNotFound.WithDetail(targetID)
		}

		merged := target.Clone()
		merged.Tags = entity.UnionTags(target.Tags, source.Tags)
		if len(source.Metadata) > 0 {
			meta := entity.CloneMetadata(source.Metadata)
			for k, v := range target.Metadata {
				meta[k] = entity.CloneValue(v)
			}
			merged.Metadata = meta
		}
		if merged.Description == "" {
			merged.Description = source.Description
		}
		merged.UpdatedAt = r.now()

		r.unindexEntity(target)
		r.entities[targetID] = merged
		r.indexEntity(merged)
		ref := merged.Ref()

		for relID := range r.adjacency[sourceID] {
			rel := r.relations[relID]
			r.unlinkRelationship(rel)
			if rel.From.ID == sourceID {
				rel.From = ref
			}
			if rel.To.ID == sourceID {
				rel.To = ref
			}
			r.linkRelationship(rel)
		}

		now := r.now()
		for _, ev := range r.events {
			if retargetEntity(ev, sourceID, ref) {
				ev.UpdatedAt = now
			}
		}

		r.unindexEntity(source)
		delete(r.entities, sourceID)
		delete(r.seq, sourceID)
		delete(r.adjacency, sourceID)

		out = merged.Clone()
		return changeOf(entity.ChangeMerged, entity.ObjectEntity, sourceID, targetID), nil
	})
	return out, err
}

// retargetEntity 将事件对 fromID 的引用改为 to，参与者去重
func retargetEntity(ev *entity.TimelineEvent, fromID string, to entity.EntityRef) bool {
	changed := false
	seen := make(map[string]struct{}, len(ev.InvolvedEntities))
	refs := make([]entity.EntityRef, 0, len(ev.InvolvedEntities))
	for _, ref := range ev.InvolvedEntities {
		if ref.ID == fromID {
			ref = to
			changed = true
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	}
	ev.InvolvedEntities = refs
	if ev.PrimaryEntity != nil && ev.PrimaryEntity.ID == fromID {
		p := to
		ev.PrimaryEntity = &p
		changed = true
	}
	if ev.StoryContext != nil && ev.StoryContext.LocationID == fromID {
		ev.StoryContext.LocationID = to.ID
		changed = true
	}
	if ev.CharacterContext != nil && ev.CharacterContext.CharacterID == fromID {
		ev.CharacterContext.CharacterID = to.ID
		changed = true
	}
	return changed
}
