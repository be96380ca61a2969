package registry

import (
	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// EntityFilter 导出过滤条件
type EntityFilter struct {
	Types []entity.EntityType `json:"types,omitempty"`
	Tags  []string            `json:"tags,omitempty"`
}

func (f *EntityFilter) matches(e *entity.Entity) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 && !containsValue(f.Types, e.Type) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(e.Tags, f.Tags) {
		return false
	}
	return true
}

// ImportResult 导入统计
type ImportResult struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Skipped  int `json:"skipped"`
}

// ExportEntities 按插入顺序导出实体
func (r *Registry) ExportEntities(filter *EntityFilter) []*entity.Entity {
	all := r.ListEntities()
	out := make([]*entity.Entity, 0, len(all))
	for _, e := range all {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// ImportEntities 批量导入实体。replaceExisting 为 true 时原地覆盖同 id 实体（保留位置），
// 否则跳过冲突项。导入不修改时间戳，保证导出-导入-导出往返一致。
func (r *Registry) ImportEntities(list []*entity.Entity, replaceExisting bool) (ImportResult, error) {
	var res ImportResult
	err := r.mutate(func() (*entity.Change, error) {
		prepared := make([]*entity.Entity, 0, len(list))
		batch := make(map[string]struct{}, len(list))
		for _, in := range list {
			if in == nil {
				return nil, apperrors.ErrInvalidParam.WithDetail("nil entity in import")
			}
			e := in.Clone()
			if e.ID == "" {
				e.ID = r.newID()
			}
			if _, dup := batch[e.ID]; dup {
				return nil, apperrors.ErrDuplicateID.WithDetail("entity " + e.ID + " repeated in import")
			}
			batch[e.ID] = struct{}{}
			r.prepareEntity(e)
			prepared = append(prepared, e)
		}

		ids := make([]string, 0, len(prepared))
		for _, e := range prepared {
			current, exists := r.entities[e.ID]
			switch {
			case !exists:
				r.insertEntity(e)
				res.Added++
			case replaceExisting:
				r.unindexEntity(current)
				r.entities[e.ID] = e
				r.indexEntity(e)
				r.refreshRefs(e.Ref())
				res.Replaced++
			default:
				res.Skipped++
				continue
			}
			ids = append(ids, e.ID)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return changeOf(entity.ChangeImported, entity.ObjectEntity, ids...), nil
	})
	return res, err
}

// ImportRelationships 批量导入关系，端点必须存在
func (r *Registry) ImportRelationships(list []*entity.Relationship, replaceExisting bool) (ImportResult, error) {
	var res ImportResult
	err := r.mutate(func() (*entity.Change, error) {
		prepared := make([]*entity.Relationship, 0, len(list))
		batch := make(map[string]struct{}, len(list))
		for _, in := range list {
			if in == nil {
				return nil, apperrors.ErrInvalidParam.WithDetail("nil relationship in import")
			}
			rel := in.Clone()
			if rel.ID == "" {
				rel.ID = r.newID()
			}
			if _, dup := batch[rel.ID]; dup {
				return nil, apperrors.ErrDuplicateID.WithDetail("relationship " + rel.ID + " repeated in import")
			}
			batch[rel.ID] = struct{}{}
			if err := r.prepareRelationship(rel); err != nil {
				return nil, err
			}
			prepared = append(prepared, rel)
		}

		ids := make([]string, 0, len(prepared))
		for _, rel := range prepared {
			current, exists := r.relations[rel.ID]
			switch {
			case !exists:
				r.insertRelationship(rel)
				res.Added++
			case replaceExisting:
				r.unlinkRelationship(current)
				r.relations[rel.ID] = rel
				r.linkRelationship(rel)
				res.Replaced++
			default:
				res.Skipped++
				continue
			}
			ids = append(ids, rel.ID)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return changeOf(entity.ChangeImported, entity.ObjectRelationship, ids...), nil
	})
	return res, err
}

func (r *Registry) prepareRelationship(rel *entity.Relationship) error {
	from, ok := r.resolveRef(rel.From.ID)
	if !ok {
		return apperrors.ErrInvalidReference.WithDetail("relationship source " + rel.From.ID)
	}
	to, ok := r.resolveRef(rel.To.ID)
	if !ok {
		return apperrors.ErrInvalidReference.WithDetail("relationship target " + rel.To.ID)
	}
	if rel.Type == "" {
		rel.Type = entity.RelationshipCustom
	}
	if !rel.Type.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown relationship type " + string(rel.Type))
	}
	rel.From, rel.To = from, to
	rel.Strength = entity.ClampStrength(rel.Strength)
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = r.now()
	}
	return nil
}

// ExportTimeline 导出事件（插入顺序），view 为空时导出全部
func (r *Registry) ExportTimeline(view *entity.TimelineView) []*entity.TimelineEvent {
	all := r.ListEvents()
	out := make([]*entity.TimelineEvent, 0, len(all))
	for _, ev := range all {
		if view.Matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// ImportEvents 批量导入事件，依赖可以指向同批事件
func (r *Registry) ImportEvents(list []*entity.TimelineEvent, replaceExisting bool) (ImportResult, error) {
	var res ImportResult
	err := r.mutate(func() (*entity.Change, error) {
		batch := make(map[string]struct{}, len(list))
		clones := make([]*entity.TimelineEvent, 0, len(list))
		for _, in := range list {
			if in == nil {
				return nil, apperrors.ErrInvalidParam.WithDetail("nil event in import")
			}
			ev := in.Clone()
			if ev.ID == "" {
				ev.ID = r.newID()
			}
			if _, dup := batch[ev.ID]; dup {
				return nil, apperrors.ErrDuplicateID.WithDetail("event " + ev.ID + " repeated in import")
			}
			batch[ev.ID] = struct{}{}
			clones = append(clones, ev)
		}
		for _, ev := range clones {
			if err := r.prepareEvent(ev, batch); err != nil {
				return nil, err
			}
		}

		applied := make([]*entity.TimelineEvent, 0, len(clones))
		for _, ev := range clones {
			if _, exists := r.events[ev.ID]; exists && !replaceExisting {
				res.Skipped++
				continue
			}
			applied = append(applied, ev)
		}
		if err := r.checkAcyclic(nil, applied...); err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(applied))
		for _, ev := range applied {
			if _, exists := r.events[ev.ID]; exists {
				r.events[ev.ID] = ev
				res.Replaced++
			} else {
				r.insertEvent(ev)
				res.Added++
			}
			ids = append(ids, ev.ID)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		return changeOf(entity.ChangeImported, entity.ObjectEvent, ids...), nil
	})
	return res, err
}

// State 注册表某一版本的一致副本，事件按规范时间顺序排列
type State struct {
	Revision      uint64
	Entities      []*entity.Entity
	Relationships []*entity.Relationship
	Events        []*entity.TimelineEvent
}

// Capture 在读锁内复制全部对象，排序在锁外完成
func (r *Registry) Capture() *State {
	r.mu.RLock()
	st := &State{
		Revision:      r.revision,
		Entities:      r.entitiesLocked(),
		Relationships: r.relationshipsLocked(),
		Events:        r.eventsLocked(),
	}
	r.mu.RUnlock()

	SortChronologically(st.Events)
	return st
}

// Snapshot 导出可持久化快照（插入顺序，不含索引）
func (r *Registry) Snapshot() *entity.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &entity.Snapshot{
		Version:       entity.SnapshotVersion,
		Revision:      r.revision,
		Entities:      r.entitiesLocked(),
		Relationships: r.relationshipsLocked(),
		Events:        r.eventsLocked(),
		SavedAt:       r.now(),
	}
}

// Restore 用快照整体替换注册表内容并重建索引；任何引用错误都会放弃整个恢复
func (r *Registry) Restore(snap *entity.Snapshot) error {
	if snap == nil {
		return apperrors.ErrInvalidParam.WithDetail("snapshot is nil")
	}
	staged := New(WithClock(r.now), WithIDGenerator(r.newID))
	for _, in := range snap.Entities {
		if in == nil {
			return apperrors.ErrInvalidParam.WithDetail("nil entity in snapshot")
		}
		e := in.Clone()
		if _, dup := staged.entities[e.ID]; dup || e.ID == "" {
			return apperrors.ErrDuplicateID.WithDetail("entity " + e.ID)
		}
		staged.prepareEntity(e)
		staged.entities[e.ID] = e
		staged.track(e.ID)
	}
	for _, in := range snap.Relationships {
		if in == nil {
			return apperrors.ErrInvalidParam.WithDetail("nil relationship in snapshot")
		}
		rel := in.Clone()
		if _, dup := staged.relations[rel.ID]; dup || rel.ID == "" {
			return apperrors.ErrDuplicateID.WithDetail("relationship " + rel.ID)
		}
		if err := staged.prepareRelationship(rel); err != nil {
			return err
		}
		staged.relations[rel.ID] = rel
		staged.track(rel.ID)
	}
	pending := make(map[string]struct{}, len(snap.Events))
	for _, ev := range snap.Events {
		if ev != nil {
			pending[ev.ID] = struct{}{}
		}
	}
	for _, in := range snap.Events {
		if in == nil {
			return apperrors.ErrInvalidParam.WithDetail("nil event in snapshot")
		}
		ev := in.Clone()
		if _, dup := staged.events[ev.ID]; dup || ev.ID == "" {
			return apperrors.ErrDuplicateID.WithDetail("event " + ev.ID)
		}
		if err := staged.prepareEvent(ev, pending); err != nil {
			return err
		}
		staged.insertEvent(ev)
	}
	if err := staged.checkAcyclic(nil); err != nil {
		return err
	}
	staged.rebuildIndexes()

	return r.mutate(func() (*entity.Change, error) {
		r.entities, r.relations, r.events = staged.entities, staged.relations, staged.events
		r.byType, r.byTag, r.byName, r.adjacency = staged.byType, staged.byTag, staged.byName, staged.adjacency
		r.seq, r.nextSeq = staged.seq, staged.nextSeq
		if snap.Revision > r.revision {
			r.revision = snap.Revision - 1
		}
		return changeOf(entity.ChangeRestored, entity.ObjectRegistry), nil
	})
}
