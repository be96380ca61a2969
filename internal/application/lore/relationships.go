package lore

import (
	"context"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
)

// AddRelationship 添加关系，两端实体必须存在
func (s *Service) AddRelationship(ctx context.Context, in entity.RelationshipInput) (*entity.Relationship, error) {
	return mutation(ctx, entity.ObjectRelationship, "add", func() (*entity.Relationship, error) {
		id, err := s.reg.AddRelationship(in)
		if err != nil {
			return nil, err
		}
		return s.reg.GetRelationship(id)
	})
}

// RemoveRelationship 删除关系
func (s *Service) RemoveRelationship(ctx context.Context, id string) error {
	_, err := mutation(ctx, entity.ObjectRelationship, "remove", func() (struct{}, error) {
		return struct{}{}, s.reg.RemoveRelationship(id)
	})
	return err
}

// ImportRelationships 批量导入关系
func (s *Service) ImportRelationships(ctx context.Context, list []*entity.Relationship, replaceExisting bool) (registry.ImportResult, error) {
	return mutation(ctx, entity.ObjectRelationship, "import", func() (registry.ImportResult, error) {
		return s.reg.ImportRelationships(list, replaceExisting)
	})
}

// GetRelationship 获取关系
func (s *Service) GetRelationship(_ context.Context, id string) (*entity.Relationship, error) {
	return s.reg.GetRelationship(id)
}

// ListRelationships 全部关系
func (s *Service) ListRelationships(_ context.Context) []*entity.Relationship {
	return s.reg.ListRelationships()
}

// RelationshipsFor 与实体相关的关系，实体不存在时返回 NotFound
func (s *Service) RelationshipsFor(_ context.Context, entityID string) ([]*entity.Relationship, error) {
	if !s.reg.HasEntity(entityID) {
		_, err := s.reg.GetEntity(entityID)
		return nil, err
	}
	return s.reg.RelationshipsFor(entityID), nil
}

// RelationshipsBetween 两个实体之间的关系
func (s *Service) RelationshipsBetween(_ context.Context, a, b string) []*entity.Relationship {
	return s.reg.RelationshipsBetween(a, b)
}

// CrossReferences 实体的交叉引用（关系与事件）
func (s *Service) CrossReferences(_ context.Context, entityID string) ([]entity.CrossReference, error) {
	if _, err := s.reg.GetEntity(entityID); err != nil {
		return nil, err
	}
	return s.reg.CrossReferences(entityID), nil
}
