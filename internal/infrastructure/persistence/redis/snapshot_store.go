package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/repository"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/metrics"
	"z-novel-lore-api/pkg/tracer"
)

// 每个世界保留的历史快照数量
const keepRevisions = 20

// SnapshotStore 以 JSON 保存注册表快照：最新快照一个键，历史版本按 revision 分键并用有序集合索引
type SnapshotStore struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore 创建快照存储，ttl 为 0 表示不过期
func NewSnapshotStore(client *Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// LatestKey 最新快照键
func LatestKey(worldID string) string {
	return fmt.Sprintf("lore:snapshot:%s:latest", worldID)
}

// RevisionKey 指定版本快照键
func RevisionKey(worldID string, revision uint64) string {
	return fmt.Sprintf("lore:snapshot:%s:rev:%d", worldID, revision)
}

// RevisionIndexKey 版本索引键
func RevisionIndexKey(worldID string) string {
	return fmt.Sprintf("lore:snapshot:%s:revisions", worldID)
}

// Save 写入最新快照和版本副本，并裁剪过旧的版本
func (s *SnapshotStore) Save(ctx context.Context, snap *entity.Snapshot) (err error) {
	ctx, span := tracer.Start(ctx, "snapshot.Save",
		trace.WithAttributes(
			attribute.String("lore.world_id", snap.WorldID),
			attribute.Int64("lore.revision", int64(snap.Revision)),
		))
	defer span.End()
	defer func() { observe("save", err) }()

	data, err := json.Marshal(snap)
	if err != nil {
		tracer.Fail(span, err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	idx := RevisionIndexKey(snap.WorldID)
	pipe := s.client.rdb.TxPipeline()
	pipe.Set(ctx, LatestKey(snap.WorldID), data, s.ttl)
	pipe.Set(ctx, RevisionKey(snap.WorldID, snap.Revision), data, s.ttl)
	pipe.ZAdd(ctx, idx, redis.Z{Score: float64(snap.Revision), Member: strconv.FormatUint(snap.Revision, 10)})
	if _, err = pipe.Exec(ctx); err != nil {
		tracer.Fail(span, err)
		return apperrors.ErrCacheUnavailable.WithError(err)
	}

	// 裁剪失败不影响本次保存
	if perr := s.prune(ctx, snap.WorldID); perr != nil {
		tracer.Fail(span, perr)
	}
	return nil
}

func (s *SnapshotStore) prune(ctx context.Context, worldID string) error {
	idx := RevisionIndexKey(worldID)
	stale, err := s.client.rdb.ZRange(ctx, idx, 0, -keepRevisions-1).Result()
	if err != nil || len(stale) == 0 {
		return err
	}
	keys := make([]string, 0, len(stale))
	members := make([]any, 0, len(stale))
	for _, m := range stale {
		rev, perr := strconv.ParseUint(m, 10, 64)
		if perr != nil {
			continue
		}
		keys = append(keys, RevisionKey(worldID, rev))
		members = append(members, m)
	}
	pipe := s.client.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.ZRem(ctx, idx, members...)
	_, err = pipe.Exec(ctx)
	return err
}

// Load 读取最新快照；并发加载同一世界时合并为一次 Redis 读取
func (s *SnapshotStore) Load(ctx context.Context, worldID string) (*entity.Snapshot, error) {
	return s.load(ctx, worldID, LatestKey(worldID))
}

// LoadRevision 读取指定版本
func (s *SnapshotStore) LoadRevision(ctx context.Context, worldID string, revision uint64) (*entity.Snapshot, error) {
	return s.load(ctx, worldID, RevisionKey(worldID, revision))
}

// Revisions 仍保留在 Redis 中的版本号，从新到旧
func (s *SnapshotStore) Revisions(ctx context.Context, worldID string) ([]uint64, error) {
	ctx, span := tracer.Start(ctx, "snapshot.Revisions")
	defer span.End()

	members, err := s.client.rdb.ZRevRange(ctx, RevisionIndexKey(worldID), 0, -1).Result()
	if err != nil {
		tracer.Fail(span, err)
		return nil, apperrors.ErrCacheUnavailable.WithError(err)
	}
	out := make([]uint64, 0, len(members))
	for _, m := range members {
		if rev, err := strconv.ParseUint(m, 10, 64); err == nil {
			out = append(out, rev)
		}
	}
	return out, nil
}

func (s *SnapshotStore) load(ctx context.Context, worldID, key string) (snap *entity.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "snapshot.Load",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()
	defer func() { observe("load", err) }()

	v, err, shared := s.group.Do(key, func() (any, error) {
		data, err := s.client.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if IsNil(err) {
				return nil, apperrors.ErrSnapshotNotFound.WithDetail(worldID)
			}
			return nil, apperrors.ErrCacheUnavailable.WithError(err)
		}
		var out entity.Snapshot
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
		}
		return &out, nil
	})
	span.SetAttributes(attribute.Bool("snapshot.shared", shared))
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}
	return v.(*entity.Snapshot), nil
}

func observe(op string, err error) {
	status := "success"
	switch {
	case err == nil:
	case apperrors.IsAppError(err) && apperrors.AsAppError(err).Code == apperrors.CodeSnapshotNotFound:
		status = "not_found"
	default:
		status = "error"
	}
	metrics.SnapshotOperationsTotal.WithLabelValues("redis", op, status).Inc()
}
