package registry

import (
	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// AddEvent 添加时间线事件；依赖目标与涉及实体必须已存在
func (r *Registry) AddEvent(ev *entity.TimelineEvent) (string, error) {
	if ev == nil {
		return "", apperrors.ErrInvalidParam.WithDetail("event is nil")
	}
	var id string
	err := r.mutate(func() (*entity.Change, error) {
		stored := ev.Clone()
		if stored.ID == "" {
			stored.ID = r.newID()
		}
		if _, exists := r.events[stored.ID]; exists {
			return nil, apperrors.ErrDuplicateID.WithDetail("event " + stored.ID)
		}
		if err := r.prepareEvent(stored, nil); err != nil {
			return nil, err
		}
		if len(stored.Dependencies) > 0 {
			if err := r.checkAcyclic(nil, stored); err != nil {
				return nil, err
			}
		}
		r.insertEvent(stored)
		id = stored.ID
		return changeOf(entity.ChangeAdded, entity.ObjectEvent, id), nil
	})
	return id, err
}

// prepareEvent 校验引用、补默认值并刷新实体快照；pending 为同批导入中尚未写入的事件
func (r *Registry) prepareEvent(ev *entity.TimelineEvent, pending map[string]struct{}) error {
	if ev.Type == "" {
		ev.Type = entity.EventTypeStoryEvent
	}
	if !ev.Type.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown event type " + string(ev.Type))
	}
	if ev.Scope == "" {
		ev.Scope = entity.ScopeStory
	}
	if !ev.Scope.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown event scope " + string(ev.Scope))
	}
	if ev.Status == "" {
		ev.Status = entity.EventStatusDraft
	}

	refs := make([]entity.EntityRef, 0, len(ev.InvolvedEntities))
	seen := make(map[string]struct{}, len(ev.InvolvedEntities))
	for _, in := range ev.InvolvedEntities {
		ref, ok := r.resolveRef(in.ID)
		if !ok {
			return apperrors.ErrInvalidReference.WithDetail("involved entity " + in.ID)
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	}
	ev.InvolvedEntities = refs

	if ev.PrimaryEntity != nil {
		ref, ok := r.resolveRef(ev.PrimaryEntity.ID)
		if !ok {
			return apperrors.ErrInvalidReference.WithDetail("primary entity " + ev.PrimaryEntity.ID)
		}
		ev.PrimaryEntity = &ref
	}
	if ev.StoryContext != nil && ev.StoryContext.LocationID != "" {
		if _, ok := r.entities[ev.StoryContext.LocationID]; !ok {
			return apperrors.ErrInvalidReference.WithDetail("location " + ev.StoryContext.LocationID)
		}
	}

	deps := make([]entity.Dependency, 0, len(ev.Dependencies))
	for _, d := range ev.Dependencies {
		if d.TargetEventID == ev.ID {
			return apperrors.ErrInvalidParam.WithDetail("event cannot depend on itself")
		}
		if !d.Type.Valid() {
			return apperrors.ErrInvalidParam.WithDetail("unknown dependency type " + string(d.Type))
		}
		_, known := r.events[d.TargetEventID]
		if !known {
			_, known = pending[d.TargetEventID]
		}
		if !known {
			return apperrors.ErrInvalidReference.WithDetail("dependency target " + d.TargetEventID)
		}
		deps = append(deps, d)
	}
	ev.Dependencies = deps
	ev.Tags = entity.NormalizeTags(ev.Tags)

	now := r.now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = ev.CreatedAt
	}
	return nil
}

func (r *Registry) insertEvent(ev *entity.TimelineEvent) {
	r.events[ev.ID] = ev
	r.track(ev.ID)
}

// UpdateEvent 部分更新事件
func (r *Registry) UpdateEvent(id string, patch entity.EventPatch) (*entity.TimelineEvent, error) {
	var out *entity.TimelineEvent
	err := r.mutate(func() (*entity.Change, error) {
		current, ok := r.events[id]
		if !ok {
			return nil, apperrors.ErrEventNotFound.WithDetail(id)
		}
		next := current.Clone()
		patch.ApplyScalars(next)
		if patch.InvolvedEntityIDs != nil {
			next.InvolvedEntities = make([]entity.EntityRef, 0, len(*patch.InvolvedEntityIDs))
			for _, eid := range *patch.InvolvedEntityIDs {
				next.InvolvedEntities = append(next.InvolvedEntities, entity.EntityRef{ID: eid})
			}
		}
		if patch.PrimaryEntityID != nil {
			if *patch.PrimaryEntityID == "" {
				next.PrimaryEntity = nil
			} else {
				next.PrimaryEntity = &entity.EntityRef{ID: *patch.PrimaryEntityID}
			}
		}
		if err := r.prepareEvent(next, nil); err != nil {
			return nil, err
		}
		next.UpdatedAt = r.now()
		if !next.UpdatedAt.After(current.UpdatedAt) {
			next.UpdatedAt = current.UpdatedAt.Add(1)
		}
		r.events[id] = next
		out = next.Clone()
		return changeOf(entity.ChangeUpdated, entity.ObjectEvent, id), nil
	})
	return out, err
}

// MoveEvent 只修改事件时间戳
func (r *Registry) MoveEvent(id string, ts entity.Timestamp) (*entity.TimelineEvent, error) {
	return r.UpdateEvent(id, entity.EventPatch{Timestamp: &ts})
}

// RemoveEvent 删除事件并移除其他事件中指向它的依赖，不存在时为空操作
func (r *Registry) RemoveEvent(id string) error {
	return r.mutate(func() (*entity.Change, error) {
		if _, ok := r.events[id]; !ok {
			return nil, nil
		}
		delete(r.events, id)
		delete(r.seq, id)
		now := r.now()
		for _, ev := range r.events {
			if stripEventLinks(ev, id) {
				ev.UpdatedAt = now
			}
		}
		return changeOf(entity.ChangeRemoved, entity.ObjectEvent, id), nil
	})
}

// stripEventLinks 移除依赖及剧情伏笔/呼应中对事件的引用
func stripEventLinks(ev *entity.TimelineEvent, id string) bool {
	changed := false
	kept := ev.Dependencies[:0]
	for _, d := range ev.Dependencies {
		if d.TargetEventID == id {
			changed = true
			continue
		}
		kept = append(kept, d)
	}
	ev.Dependencies = kept
	if ev.PlotImpact != nil {
		var c1, c2 bool
		ev.PlotImpact.ForeshadowingIDs, c1 = withoutID(ev.PlotImpact.ForeshadowingIDs, id)
		ev.PlotImpact.CallbackIDs, c2 = withoutID(ev.PlotImpact.CallbackIDs, id)
		changed = changed || c1 || c2
	}
	return changed
}

func withoutID(ids []string, id string) ([]string, bool) {
	if len(ids) == 0 {
		return ids, false
	}
	out := ids[:0]
	changed := false
	for _, v := range ids {
		if v == id {
			changed = true
			continue
		}
		out = append(out, v)
	}
	return out, changed
}

// DuplicateEvent 复制事件：新 id、名称追加 " (Copy)"、重新生成时间
func (r *Registry) DuplicateEvent(id string) (*entity.TimelineEvent, error) {
	var out *entity.TimelineEvent
	err := r.mutate(func() (*entity.Change, error) {
		src, ok := r.events[id]
		if !ok {
			return nil, apperrors.ErrEventNotFound.WithDetail(id)
		}
		cp := src.Clone()
		cp.ID = r.newID()
		cp.Name = src.Name + " (Copy)"
		now := r.now()
		cp.CreatedAt = now
		cp.UpdatedAt = now
		r.insertEvent(cp)
		out = cp.Clone()
		return changeOf(entity.ChangeAdded, entity.ObjectEvent, cp.ID), nil
	})
	return out, err
}

// MergeEvents 将 source 合并到 target：描述拼接，实体 / 标签 / 依赖取并集，
// 其他事件指向 source 的依赖改指 target，随后删除 source
func (r *Registry) MergeEvents(sourceID, targetID string) (*entity.TimelineEvent, error) {
	if sourceID == targetID {
		return nil, apperrors.ErrInvalidParam.WithDetail("cannot merge an event into itself")
	}
	var out *entity.TimelineEvent
	err := r.mutate(func() (*entity.Change, error) {
		source, ok := r.events[sourceID]
		if !ok {
			return nil, apperrors.ErrEventNotFound.WithDetail(sourceID)
		}
		target, ok := r.events[targetID]
		if !ok {
			return nil, apperrors.ErrEventNotFound.WithDetail(targetID)
		}
		if err := r.checkAcyclic(map[string]string{sourceID: targetID}); err != nil {
			return nil, err
		}

		merged := target.Clone()
		switch {
		case merged.Description == "":
			merged.Description = source.Description
		case source.Description != "":
			merged.Description = merged.Description + "\n\n" + source.Description
		}
		seen := make(map[string]struct{}, len(merged.InvolvedEntities))
		for _, ref := range merged.InvolvedEntities {
			seen[ref.ID] = struct{}{}
		}
		for _, ref := range source.InvolvedEntities {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			merged.InvolvedEntities = append(merged.InvolvedEntities, ref)
		}
		if merged.PrimaryEntity == nil && source.PrimaryEntity != nil {
			p := *source.PrimaryEntity
			merged.PrimaryEntity = &p
		}
		merged.Tags = entity.UnionTags(merged.Tags, source.Tags)
		merged.Dependencies = mergeDependencies(targetID, sourceID, merged.Dependencies, source.Dependencies)
		merged.UpdatedAt = r.now()

		delete(r.events, sourceID)
		delete(r.seq, sourceID)
		r.events[targetID] = merged

		for _, ev := range r.events {
			if ev.ID == targetID {
				continue
			}
			if retargetDependencies(ev, sourceID, targetID) {
				ev.UpdatedAt = merged.UpdatedAt
			}
		}

		out = merged.Clone()
		return changeOf(entity.ChangeMerged, entity.ObjectEvent, sourceID, targetID), nil
	})
	return out, err
}

// mergeDependencies 合并依赖，去掉自依赖与重复项
func mergeDependencies(selfID, sourceID string, lists ...[]entity.Dependency) []entity.Dependency {
	type key struct {
		target string
		t      entity.DependencyType
	}
	seen := make(map[key]struct{})
	out := []entity.Dependency{}
	for _, list := range lists {
		for _, d := range list {
			if d.TargetEventID == sourceID {
				d.TargetEventID = selfID
			}
			if d.TargetEventID == selfID {
				continue
			}
			k := key{d.TargetEventID, d.Type}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func retargetDependencies(ev *entity.TimelineEvent, fromID, toID string) bool {
	if !ev.DependsOn(fromID) {
		return false
	}
	ev.Dependencies = mergeDependencies(ev.ID, fromID, replaceTarget(ev.Dependencies, fromID, toID))
	return true
}

func replaceTarget(deps []entity.Dependency, fromID, toID string) []entity.Dependency {
	out := make([]entity.Dependency, len(deps))
	for i, d := range deps {
		if d.TargetEventID == fromID {
			d.TargetEventID = toID
		}
		out[i] = d
	}
	return out
}

// AddDependency 为 fromID 添加依赖；fromID 不存在时静默忽略，目标不存在返回 ErrInvalidReference，
// 形成先后依赖环时返回 ErrInvalidParam
func (r *Registry) AddDependency(fromID, toID string, depType entity.DependencyType, description string) error {
	if !depType.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown dependency type " + string(depType))
	}
	return r.mutate(func() (*entity.Change, error) {
		from, ok := r.events[fromID]
		if !ok {
			return nil, nil
		}
		if _, ok := r.events[toID]; !ok {
			return nil, apperrors.ErrInvalidReference.WithDetail("dependency target " + toID)
		}
		if fromID == toID {
			return nil, apperrors.ErrInvalidParam.WithDetail("event cannot depend on itself")
		}
		for _, d := range from.Dependencies {
			if d.TargetEventID == toID && d.Type == depType {
				return nil, nil
			}
		}
		next := from.Clone()
		next.Dependencies = append(next.Dependencies, entity.Dependency{
			TargetEventID: toID,
			Type:          depType,
			Description:   description,
		})
		if err := r.checkAcyclic(nil, next); err != nil {
			return nil, err
		}
		next.UpdatedAt = r.now()
		r.events[fromID] = next
		return changeOf(entity.ChangeUpdated, entity.ObjectEvent, fromID), nil
	})
}

// RemoveDependency 删除 fromID 指向 toID 的全部依赖
func (r *Registry) RemoveDependency(fromID, toID string) error {
	return r.mutate(func() (*entity.Change, error) {
		from, ok := r.events[fromID]
		if !ok || !from.DependsOn(toID) {
			return nil, nil
		}
		from.Dependencies, _ = withoutDependency(from.Dependencies, toID)
		from.UpdatedAt = r.now()
		return changeOf(entity.ChangeUpdated, entity.ObjectEvent, fromID), nil
	})
}

func withoutDependency(deps []entity.Dependency, toID string) ([]entity.Dependency, bool) {
	out := make([]entity.Dependency, 0, len(deps))
	for _, d := range deps {
		if d.TargetEventID != toID {
			out = append(out, d)
		}
	}
	return out, len(out) != len(deps)
}

// GetEvent 获取事件副本
func (r *Registry) GetEvent(id string) (*entity.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound.WithDetail(id)
	}
	return ev.Clone(), nil
}

// ListEvents 按插入顺序列出全部事件
func (r *Registry) ListEvents() []*entity.TimelineEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.eventsLocked()
}

func (r *Registry) eventsLocked() []*entity.TimelineEvent {
	ids := make([]string, 0, len(r.events))
	for id := range r.events {
		ids = append(ids, id)
	}
	r.sortBySeq(ids)
	out := make([]*entity.TimelineEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.events[id].Clone())
	}
	return out
}
