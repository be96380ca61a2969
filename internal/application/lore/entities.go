package lore

import (
	"context"

	"z-novel-lore-api/internal/application/adapter"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	apperrors "z-novel-lore-api/pkg/errors"
)

// AddEntity 校验后添加实体
func (s *Service) AddEntity(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	return mutation(ctx, entity.ObjectEntity, "add", func() (*entity.Entity, error) {
		if e == nil {
			return nil, apperrors.ErrInvalidParam.WithDetail("entity is required")
		}
		if res := adapter.ValidateEntity(e); !res.IsValid {
			return nil, res.Err()
		}
		id, err := s.reg.AddEntity(e)
		if err != nil {
			return nil, err
		}
		return s.reg.GetEntity(id)
	})
}

// UpdateEntity 部分更新实体；补丁应用后的结果必须通过校验
func (s *Service) UpdateEntity(ctx context.Context, id string, patch entity.EntityPatch) (*entity.Entity, error) {
	return mutation(ctx, entity.ObjectEntity, "update", func() (*entity.Entity, error) {
		current, err := s.reg.GetEntity(id)
		if err != nil {
			return nil, err
		}
		preview := current.Clone()
		patch.Apply(preview)
		if res := adapter.ValidateEntity(preview); !res.IsValid {
			return nil, res.Err()
		}
		return s.reg.UpdateEntity(id, patch)
	})
}

// RemoveEntity 删除实体并级联清理关系与事件引用
func (s *Service) RemoveEntity(ctx context.Context, id string) error {
	_, err := mutation(ctx, entity.ObjectEntity, "remove", func() (struct{}, error) {
		return struct{}{}, s.reg.RemoveEntity(id)
	})
	return err
}

// MergeEntities 把 source 合并进 target
func (s *Service) MergeEntities(ctx context.Context, sourceID, targetID string) (*entity.Entity, error) {
	return mutation(ctx, entity.ObjectEntity, "merge", func() (*entity.Entity, error) {
		return s.reg.MergeEntities(sourceID, targetID)
	})
}

// ImportEntities 批量导入实体，任何一条校验失败则整体拒绝
func (s *Service) ImportEntities(ctx context.Context, list []*entity.Entity, replaceExisting bool) (registry.ImportResult, error) {
	return mutation(ctx, entity.ObjectEntity, "import", func() (registry.ImportResult, error) {
		all := adapter.NewValidationResult()
		for i, e := range list {
			if e == nil {
				continue
			}
			res := adapter.ValidateEntity(e)
			for _, fe := range res.Errors {
				all.AddError(indexedField("entities", i, fe.Field), "%s", fe.Message)
			}
		}
		if !all.IsValid {
			return registry.ImportResult{}, all.Err()
		}
		return s.reg.ImportEntities(list, replaceExisting)
	})
}

// GetEntity 获取实体
func (s *Service) GetEntity(_ context.Context, id string) (*entity.Entity, error) {
	return s.reg.GetEntity(id)
}

// EntityQuery 实体列表条件，多个条件取交集
type EntityQuery struct {
	Type entity.EntityType
	Tag  string
	Name string
}

// ListEntities 按插入顺序列出实体
func (s *Service) ListEntities(_ context.Context, q EntityQuery) []*entity.Entity {
	var list []*entity.Entity
	switch {
	case q.Type != "":
		list = s.reg.GetEntitiesByType(q.Type)
	case q.Tag != "":
		list = s.reg.GetEntitiesByTag(q.Tag)
	case q.Name != "":
		list = s.reg.FindEntitiesByName(q.Name)
	default:
		return s.reg.ListEntities()
	}
	out := list[:0]
	for _, e := range list {
		if q.Tag != "" && !e.HasTag(q.Tag) {
			continue
		}
		if q.Name != "" && !containsFold(e.Name, q.Name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FindSimilar 相似实体
func (s *Service) FindSimilar(_ context.Context, id string, limit int) ([]registry.ScoredEntity, error) {
	return s.reg.FindSimilar(id, limit)
}

// FindDuplicates 同名同类型的疑似重复实体
func (s *Service) FindDuplicates(_ context.Context) [][]*entity.Entity {
	return s.reg.FindDuplicates()
}

// ExportEntities 导出实体
func (s *Service) ExportEntities(_ context.Context, filter *registry.EntityFilter) []*entity.Entity {
	return s.reg.ExportEntities(filter)
}

// ValidateEntity 对已有实体执行通用与类型校验
func (s *Service) ValidateEntity(_ context.Context, id string) (adapter.ValidationResult, error) {
	e, err := s.reg.GetEntity(id)
	if err != nil {
		return adapter.ValidationResult{}, err
	}
	return adapter.ValidateEntity(e), nil
}
