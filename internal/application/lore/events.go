package lore

import (
	"context"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/pkg/tracer"
)

// AddEvent 添加时间线事件
func (s *Service) AddEvent(ctx context.Context, ev *entity.TimelineEvent) (*entity.TimelineEvent, error) {
	return mutation(ctx, entity.ObjectEvent, "add", func() (*entity.TimelineEvent, error) {
		id, err := s.reg.AddEvent(ev)
		if err != nil {
			return nil, err
		}
		return s.reg.GetEvent(id)
	})
}

// UpdateEvent 部分更新事件
func (s *Service) UpdateEvent(ctx context.Context, id string, patch entity.EventPatch) (*entity.TimelineEvent, error) {
	return mutation(ctx, entity.ObjectEvent, "update", func() (*entity.TimelineEvent, error) {
		return s.reg.UpdateEvent(id, patch)
	})
}

// MoveEvent 修改事件时间
func (s *Service) MoveEvent(ctx context.Context, id string, ts entity.Timestamp) (*entity.TimelineEvent, error) {
	return mutation(ctx, entity.ObjectEvent, "move", func() (*entity.TimelineEvent, error) {
		return s.reg.MoveEvent(id, ts)
	})
}

// RemoveEvent 删除事件并清理指向它的依赖
func (s *Service) RemoveEvent(ctx context.Context, id string) error {
	_, err := mutation(ctx, entity.ObjectEvent, "remove", func() (struct{}, error) {
		return struct{}{}, s.reg.RemoveEvent(id)
	})
	return err
}

// DuplicateEvent 复制事件
func (s *Service) DuplicateEvent(ctx context.Context, id string) (*entity.TimelineEvent, error) {
	return mutation(ctx, entity.ObjectEvent, "duplicate", func() (*entity.TimelineEvent, error) {
		return s.reg.DuplicateEvent(id)
	})
}

// MergeEvents 把 source 合并进 target
func (s *Service) MergeEvents(ctx context.Context, sourceID, targetID string) (*entity.TimelineEvent, error) {
	return mutation(ctx, entity.ObjectEvent, "merge", func() (*entity.TimelineEvent, error) {
		return s.reg.MergeEvents(sourceID, targetID)
	})
}

// AddDependency 添加事件依赖
func (s *Service) AddDependency(ctx context.Context, fromID, toID string, depType entity.DependencyType, description string) error {
	_, err := mutation(ctx, entity.ObjectEvent, "add_dependency", func() (struct{}, error) {
		return struct{}{}, s.reg.AddDependency(fromID, toID, depType, description)
	})
	return err
}

// RemoveDependency 删除事件依赖
func (s *Service) RemoveDependency(ctx context.Context, fromID, toID string) error {
	_, err := mutation(ctx, entity.ObjectEvent, "remove_dependency", func() (struct{}, error) {
		return struct{}{}, s.reg.RemoveDependency(fromID, toID)
	})
	return err
}

// ImportEvents 批量导入事件
func (s *Service) ImportEvents(ctx context.Context, list []*entity.TimelineEvent, replaceExisting bool) (registry.ImportResult, error) {
	return mutation(ctx, entity.ObjectEvent, "import", func() (registry.ImportResult, error) {
		return s.reg.ImportEvents(list, replaceExisting)
	})
}

// GetEvent 获取事件
func (s *Service) GetEvent(_ context.Context, id string) (*entity.TimelineEvent, error) {
	return s.reg.GetEvent(id)
}

// ListEvents 按时间顺序列出事件
func (s *Service) ListEvents(_ context.Context) []*entity.TimelineEvent {
	return s.reg.SortedEvents()
}

// FindSimilarEvents 相似事件
func (s *Service) FindSimilarEvents(_ context.Context, id string, limit int) ([]registry.ScoredEvent, error) {
	return s.reg.FindSimilarEvents(id, limit)
}

// QueryEvents 按视图过滤、排序与分组
func (s *Service) QueryEvents(_ context.Context, view *entity.TimelineView) []entity.EventGroup {
	return s.reg.QueryEvents(view)
}

// AnalyzeTimeline 时间线统计
func (s *Service) AnalyzeTimeline(_ context.Context, view *entity.TimelineView) entity.TimelineAnalysis {
	return s.reg.Analyze(view)
}

// ExportTimeline 导出视图内的事件
func (s *Service) ExportTimeline(_ context.Context, view *entity.TimelineView) []*entity.TimelineEvent {
	return s.reg.ExportTimeline(view)
}

// Search 实体与事件检索
func (s *Service) Search(ctx context.Context, query string, opts registry.SearchOptions) []registry.SearchResult {
	_, span := tracer.Start(ctx, "lore.Search")
	defer span.End()
	return s.reg.Search(query, opts)
}
