package repository

import (
	"context"

	"z-novel-lore-api/internal/domain/entity"
)

// SnapshotStore 注册表快照存储（热存储，按世界 id 保存最新快照）
type SnapshotStore interface {
	// Save 保存快照
	Save(ctx context.Context, snap *entity.Snapshot) error

	// Load 读取世界的最新快照，不存在时返回 ErrSnapshotNotFound
	Load(ctx context.Context, worldID string) (*entity.Snapshot, error)
}

// SnapshotSummary 归档快照摘要
type SnapshotSummary struct {
	WorldID       string `json:"world_id"`
	Revision      uint64 `json:"revision"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
	Events        int    `json:"events"`
	SavedAt       string `json:"saved_at"`
}

// ArchiveRepository 快照归档仓储（冷存储，保留历史版本并展开为明细表）
type ArchiveRepository interface {
	SnapshotStore

	// ListRevisions 分页列出世界的历史快照
	ListRevisions(ctx context.Context, worldID string, pagination Pagination) (*PagedResult[*SnapshotSummary], error)

	// LoadRevision 读取指定版本的快照
	LoadRevision(ctx context.Context, worldID string, revision uint64) (*entity.Snapshot, error)
}
