package lore

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/repository"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// revisionLoader 能按版本读取快照的存储
type revisionLoader interface {
	LoadRevision(ctx context.Context, worldID string, revision uint64) (*entity.Snapshot, error)
}

// ExportSnapshot 当前注册表与世界规则的快照
func (s *Service) ExportSnapshot(_ context.Context) *entity.Snapshot {
	snap := s.reg.Snapshot()
	snap.WorldID = s.worldID
	snap.WorldRules = s.engine.WorldRules()
	return snap
}

// SaveSnapshot 写入热存储并通知归档；没有热存储或发布端时直接写冷存储
func (s *Service) SaveSnapshot(ctx context.Context) (*entity.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "lore.SaveSnapshot")
	defer span.End()

	if s.store == nil && s.archive == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("no snapshot store configured")
	}

	snap := s.ExportSnapshot(ctx)
	span.SetAttributes(attribute.Int64("lore.revision", int64(snap.Revision)))

	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			tracer.Fail(span, err)
			return nil, err
		}
	}

	switch {
	case s.store != nil && s.publisher != nil:
		if err := s.publisher.PublishSnapshotSaved(ctx, snap); err != nil {
			logger.Error(ctx, "failed to publish snapshot notification", err, "revision", snap.Revision)
		}
	case s.archive != nil:
		if err := s.archive.Save(ctx, snap); err != nil {
			tracer.Fail(span, err)
			return nil, err
		}
	}

	s.lastSaved.Store(snap.Revision)
	logger.Info(ctx, "snapshot saved",
		"revision", snap.Revision,
		"entities", len(snap.Entities),
		"relationships", len(snap.Relationships),
		"events", len(snap.Events),
	)
	return snap, nil
}

// LoadSnapshot 恢复最新快照：先读热存储，未命中或不可用时读冷存储
func (s *Service) LoadSnapshot(ctx context.Context) (*entity.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "lore.LoadSnapshot")
	defer span.End()

	snap, err := s.fetchLatest(ctx)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}
	if err := s.RestoreSnapshot(ctx, snap); err != nil {
		tracer.Fail(span, err)
		return nil, err
	}
	return snap, nil
}

func (s *Service) fetchLatest(ctx context.Context) (*entity.Snapshot, error) {
	var firstErr error
	if s.store != nil {
		snap, err := s.store.Load(ctx, s.worldID)
		if err == nil {
			return snap, nil
		}
		firstErr = err
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			logger.Warn(ctx, "snapshot store unavailable, falling back to archive", "error", err.Error())
		}
	}
	if s.archive != nil {
		return s.archive.Load(ctx, s.worldID)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, apperrors.ErrServiceUnavailable.WithDetail("no snapshot store configured")
}

// LoadRevision 读取指定版本但不恢复
func (s *Service) LoadRevision(ctx context.Context, revision uint64) (*entity.Snapshot, error) {
	if rl, ok := s.store.(revisionLoader); ok {
		snap, err := rl.LoadRevision(ctx, s.worldID, revision)
		if err == nil || s.archive == nil {
			return snap, err
		}
	}
	if s.archive == nil {
		return nil, apperrors.ErrSnapshotNotFound.WithDetail(s.worldID)
	}
	return s.archive.LoadRevision(ctx, s.worldID, revision)
}

// ListRevisions 归档中的历史版本
func (s *Service) ListRevisions(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*repository.SnapshotSummary], error) {
	if s.archive == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("snapshot archive is disabled")
	}
	return s.archive.ListRevisions(ctx, s.worldID, pagination)
}

// RestoreSnapshot 用快照替换注册表；快照带世界规则时一并替换
func (s *Service) RestoreSnapshot(ctx context.Context, snap *entity.Snapshot) error {
	_, err := mutation(ctx, entity.ObjectRegistry, "restore", func() (struct{}, error) {
		if snap == nil {
			return struct{}{}, apperrors.ErrInvalidParam.WithDetail("snapshot is required")
		}
		if len(snap.WorldRules) > 0 {
			if res := ValidateWorldRules(snap.WorldRules); !res.IsValid {
				return struct{}{}, res.Err()
			}
		}
		if err := s.reg.Restore(snap); err != nil {
			return struct{}{}, err
		}
		if len(snap.WorldRules) > 0 {
			s.engine.SetWorldRules(snap.WorldRules)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	s.lastSaved.Store(s.reg.Revision())
	logger.Info(ctx, "snapshot restored", "revision", snap.Revision, "world_id", snap.WorldID)
	return nil
}

// Dirty 自上次保存或恢复后是否有变更
func (s *Service) Dirty() bool {
	return s.reg.Revision() != s.lastSaved.Load()
}

// RunAutosave 按间隔保存快照，版本未变化时跳过；ctx 结束时做最后一次保存
func (s *Service) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 || (s.store == nil && s.archive == nil) {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.Dirty() {
				final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				if _, err := s.SaveSnapshot(final); err != nil {
					logger.Error(final, "final autosave failed", err)
				}
				cancel()
			}
			return
		case <-ticker.C:
			if !s.Dirty() {
				continue
			}
			if _, err := s.SaveSnapshot(ctx); err != nil {
				logger.Error(ctx, "autosave failed", err)
			}
		}
	}
}
