package wire

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/wire"

	"z-novel-lore-api/internal/application/archive"
	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/internal/infrastructure/messaging"
	"z-novel-lore-api/internal/infrastructure/persistence/postgres"
	"z-novel-lore-api/internal/infrastructure/persistence/redis"
	"z-novel-lore-api/internal/interfaces/http/handler"
	"z-novel-lore-api/internal/interfaces/http/middleware"
	"z-novel-lore-api/internal/interfaces/http/router"
	"z-novel-lore-api/pkg/logger"
)

// App lore-api 进程持有的组件
type App struct {
	Router   *router.Router
	Service  *lore.Service
	Postgres *postgres.Client
}

// Worker sync-worker 进程持有的组件
type Worker struct {
	Consumer *messaging.Consumer
	Archiver *archive.Archiver
}

// ErrStorageRequired sync-worker 需要 Redis 与 PostgreSQL
var ErrStorageRequired = errors.New("sync-worker requires redis and postgres to be enabled")

// PostgresSet PostgreSQL 相关依赖
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideTxManager,
	ProvideArchiveRepository,
)

// RedisSet Redis 相关依赖
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideSnapshotStore,
	ProvideRateLimiter,
)

// MessagingSet 消息流依赖
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// LoreSet 领域与应用服务
var LoreSet = wire.NewSet(
	ProvideRegistry,
	ProvideEngine,
	ProvideLoreService,
)

// RouterSet 路由与处理器
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewEntityHandler,
	handler.NewRelationshipHandler,
	handler.NewEventHandler,
	handler.NewConsistencyHandler,
	handler.NewSnapshotHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端，未启用时返回 nil
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Database.Postgres.Enabled {
		logger.Info(ctx, "postgres disabled, snapshot archive unavailable")
		return nil, func() {}, nil
	}
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideTxManager 提供事务管理器
func ProvideTxManager(client *postgres.Client) *postgres.TxManager {
	if client == nil {
		return nil
	}
	return postgres.NewTxManager(client)
}

// ProvideArchiveRepository 提供快照归档仓储
func ProvideArchiveRepository(client *postgres.Client, tx *postgres.TxManager) *postgres.ArchiveRepository {
	if client == nil {
		return nil
	}
	return postgres.NewArchiveRepository(client, tx)
}

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, snapshots and rate limiting unavailable")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSnapshotStore 提供快照热存储
func ProvideSnapshotStore(client *redis.Client, cfg *config.Config) *redis.SnapshotStore {
	if client == nil {
		return nil
	}
	return redis.NewSnapshotStore(client, cfg.Persistence.SnapshotTTL)
}

// ProvideRateLimiter 提供限流器；没有 Redis 时返回 nil 接口
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideMessagingProducer 提供消息生产者，消息流未启用时返回 nil
func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	if client == nil || !cfg.Messaging.RedisStream.Enabled {
		return nil
	}
	return messaging.NewProducer(
		client.Redis(),
		messaging.Stream(cfg.Messaging.RedisStream.Stream),
		int64(cfg.Messaging.RedisStream.MaxLen),
	)
}

// ProvideRegistry 提供空注册表
func ProvideRegistry() *registry.Registry {
	return registry.New()
}

// ProvideEngine 提供一致性引擎
func ProvideEngine(reg *registry.Registry, cfg *config.Config) *consistency.Engine {
	return consistency.NewEngine(reg, lore.EngineOptions(cfg.Consistency)...)
}

// ProvideLoreService 提供应用服务，只挂载已启用的存储与发布端
func ProvideLoreService(
	cfg *config.Config,
	reg *registry.Registry,
	engine *consistency.Engine,
	store *redis.SnapshotStore,
	archiveRepo *postgres.ArchiveRepository,
	producer *messaging.Producer,
) *lore.Service {
	opts := []lore.Option{lore.WithWorldID(cfg.Persistence.WorldID)}
	if store != nil {
		opts = append(opts, lore.WithSnapshotStore(store))
	}
	if archiveRepo != nil {
		opts = append(opts, lore.WithArchive(archiveRepo))
	}
	if producer != nil {
		opts = append(opts, lore.WithPublisher(producer, 0))
	}
	return lore.NewService(reg, engine, opts...)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, svc *lore.Service, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	checks := map[string]handler.HealthChecker{"postgres": nil, "redis": nil}
	if pg != nil {
		checks["postgres"] = pg
	}
	if rc != nil {
		checks["redis"] = rc
	}
	return handler.NewHealthHandler(cfg.App.Version, svc, checks)
}

// ProvideArchiver 提供归档器，需要 Redis 与 PostgreSQL
func ProvideArchiver(store *redis.SnapshotStore, archiveRepo *postgres.ArchiveRepository) (*archive.Archiver, error) {
	if store == nil || archiveRepo == nil {
		return nil, ErrStorageRequired
	}
	return archive.NewArchiver(store, archiveRepo), nil
}

// ProvideConsumer 提供归档消费者组的消费者
func ProvideConsumer(client *redis.Client, cfg *config.Config) (*messaging.Consumer, error) {
	if client == nil {
		return nil, ErrStorageRequired
	}
	rs := cfg.Messaging.RedisStream
	host, _ := os.Hostname()
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.Stream(rs.Stream),
		Group:         messaging.GroupName(rs.ConsumerGroupPrefix, messaging.ConsumerGroupArchiver),
		ConsumerName:  fmt.Sprintf("%s-%d", host, os.Getpid()),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	}), nil
}

// ProvideWorker 组装 sync-worker 并注册消息处理器
func ProvideWorker(consumer *messaging.Consumer, archiver *archive.Archiver) *Worker {
	archiver.Register(consumer)
	return &Worker{Consumer: consumer, Archiver: archiver}
}
