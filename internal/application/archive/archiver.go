// Package archive 把热存储中的快照镜像到归档库
package archive

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/repository"
	"z-novel-lore-api/internal/infrastructure/messaging"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// RevisionSource 按版本读取快照
type RevisionSource interface {
	LoadRevision(ctx context.Context, worldID string, revision uint64) (*entity.Snapshot, error)
}

// Archiver 处理 snapshot_saved 消息
type Archiver struct {
	source RevisionSource
	sink   repository.SnapshotStore
}

// NewArchiver 创建归档器
func NewArchiver(source RevisionSource, sink repository.SnapshotStore) *Archiver {
	return &Archiver{source: source, sink: sink}
}

// Register 注册到消费者
func (a *Archiver) Register(c *messaging.Consumer) {
	c.RegisterHandler(messaging.TypeSnapshotSaved, a.HandleSnapshotSaved)
}

// HandleSnapshotSaved 读取消息指向的快照版本并写入归档；
// 版本已被热存储淘汰时跳过，后续版本的消息会覆盖它
func (a *Archiver) HandleSnapshotSaved(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.SnapshotSavedMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("decode snapshot_saved payload: %w", err)
	}
	worldID := payload.WorldID
	if worldID == "" {
		worldID = msg.WorldID
	}
	if worldID == "" {
		return apperrors.ErrInvalidParam.WithDetail("snapshot_saved without world id")
	}
	return a.Mirror(ctx, worldID, payload.Revision)
}

// Mirror 把指定版本从热存储复制到归档
func (a *Archiver) Mirror(ctx context.Context, worldID string, revision uint64) error {
	ctx, span := tracer.Start(ctx, "archive.Mirror", trace.WithAttributes(
		attribute.String("world_id", worldID),
		attribute.Int64("revision", int64(revision)),
	))
	defer span.End()

	snap, err := a.source.LoadRevision(ctx, worldID, revision)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		logger.Warn(ctx, "snapshot revision no longer in hot store, skipping",
			"world_id", worldID,
			"revision", revision,
		)
		return nil
	}
	if err != nil {
		tracer.Fail(span, err)
		return err
	}
	if snap.WorldID == "" {
		snap.WorldID = worldID
	}

	if err := a.sink.Save(ctx, snap); err != nil {
		tracer.Fail(span, err)
		return err
	}
	logger.Info(ctx, "snapshot archived",
		"world_id", worldID,
		"revision", snap.Revision,
		"entities", len(snap.Entities),
		"events", len(snap.Events),
	)
	return nil
}
