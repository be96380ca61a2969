// Package lore 世界设定应用服务：在注册表与一致性引擎之上提供追踪、指标、变更通知与快照持久化
package lore

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/internal/domain/repository"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/metrics"
	"z-novel-lore-api/pkg/tracer"
)

// 变更通知队列默认长度
const defaultPublishBuffer = 256

// ChangePublisher 变更与快照通知的发布端
type ChangePublisher interface {
	PublishChange(ctx context.Context, worldID string, change entity.Change) error
	PublishSnapshotSaved(ctx context.Context, snap *entity.Snapshot) error
}

// Option 服务选项
type Option func(*Service)

// WithWorldID 指定世界 id
func WithWorldID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.worldID = id
		}
	}
}

// WithSnapshotStore 热存储
func WithSnapshotStore(store repository.SnapshotStore) Option {
	return func(s *Service) { s.store = store }
}

// WithArchive 冷存储
func WithArchive(archive repository.ArchiveRepository) Option {
	return func(s *Service) { s.archive = archive }
}

// WithPublisher 变更通知发布端
func WithPublisher(p ChangePublisher, buffer int) Option {
	return func(s *Service) {
		if buffer <= 0 {
			buffer = defaultPublishBuffer
		}
		s.publisher = p
		s.changes = make(chan entity.Change, buffer)
	}
}

// Service 世界设定应用服务
type Service struct {
	worldID   string
	reg       *registry.Registry
	engine    *consistency.Engine
	store     repository.SnapshotStore
	archive   repository.ArchiveRepository
	publisher ChangePublisher
	changes   chan entity.Change

	// lastSaved 最近一次持久化时的注册表版本
	lastSaved atomic.Uint64
	dropped   atomic.Uint64
}

// NewService 创建服务并订阅注册表变更
func NewService(reg *registry.Registry, engine *consistency.Engine, opts ...Option) *Service {
	s := &Service{worldID: "default", reg: reg, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	s.refreshGauges()
	reg.OnChange(s.onChange)
	return s
}

// WorldID 当前世界 id
func (s *Service) WorldID() string {
	return s.worldID
}

// Registry 底层注册表
func (s *Service) Registry() *registry.Registry {
	return s.reg
}

// Engine 一致性引擎
func (s *Service) Engine() *consistency.Engine {
	return s.engine
}

// Stats 对象数量与版本
func (s *Service) Stats() registry.Stats {
	return s.reg.Stats()
}

// onChange 在注册表解锁后调用，只做入队，不做网络 IO
func (s *Service) onChange(change entity.Change) {
	s.refreshGauges()
	if s.changes == nil {
		return
	}
	select {
	case s.changes <- change:
	default:
		s.dropped.Add(1)
		logger.Warn(context.Background(), "change notification dropped",
			"kind", change.Kind,
			"object", change.Object,
			"revision", change.Revision,
		)
	}
}

func (s *Service) refreshGauges() {
	st := s.reg.Stats()
	metrics.RegistryObjects.WithLabelValues(string(entity.ObjectEntity)).Set(float64(st.Entities))
	metrics.RegistryObjects.WithLabelValues(string(entity.ObjectRelationship)).Set(float64(st.Relationships))
	metrics.RegistryObjects.WithLabelValues(string(entity.ObjectEvent)).Set(float64(st.Events))
}

// RunPublisher 把排队的变更发布到消息流，直到 ctx 结束；发布失败只记录日志
func (s *Service) RunPublisher(ctx context.Context) {
	if s.publisher == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case change := <-s.changes:
			s.publish(ctx, change)
		}
	}
}

// drain 退出前尽量发完剩余通知
func (s *Service) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case change := <-s.changes:
			s.publish(ctx, change)
		default:
			return
		}
	}
}

func (s *Service) publish(ctx context.Context, change entity.Change) {
	if err := s.publisher.PublishChange(ctx, s.worldID, change); err != nil {
		logger.Error(ctx, "failed to publish registry change", err,
			"kind", change.Kind,
			"revision", change.Revision,
		)
	}
}

// mutation 包装一次注册表变更：span、日志与计数
func mutation[T any](ctx context.Context, object entity.ObjectKind, op string, fn func() (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "lore."+string(object)+"."+op,
		trace.WithAttributes(attribute.String("lore.object", string(object))))
	defer span.End()

	out, err := fn()
	status := statusOf(err)
	if err != nil {
		tracer.Fail(span, err)
		logger.Warn(ctx, "registry mutation rejected",
			"object", object,
			"op", op,
			"error", err.Error(),
		)
	} else {
		logger.Debug(ctx, "registry mutation applied", "object", object, "op", op)
	}
	metrics.RegistryMutationsTotal.WithLabelValues(string(object), op, status).Inc()
	return out, err
}

func statusOf(err error) string {
	if err == nil {
		return "success"
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		return "error"
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case appErr.Code == apperrors.CodeDuplicateID || appErr.Code == apperrors.CodeConflict:
		return "conflict"
	case appErr.HTTPStatus == http.StatusBadRequest || appErr.HTTPStatus == http.StatusUnprocessableEntity:
		return "invalid"
	}
	return "error"
}
