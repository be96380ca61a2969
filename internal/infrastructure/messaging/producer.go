package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream Stream
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream Stream, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Stream 生产者写入的流
func (p *Producer) Stream() Stream {
	return p.stream
}

// Publish 发布消息，并把请求与追踪 id 带入元数据
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(p.stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if traceID := tracer.TraceID(ctx); traceID != "" {
		msg.SetMetadata("trace_id", traceID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		tracer.Fail(span, err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(p.stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		tracer.Fail(span, err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishChange 发布注册表变更
func (p *Producer) PublishChange(ctx context.Context, worldID string, change entity.Change) error {
	msg, err := NewMessage("", TypeRegistryChange, worldID, &ChangeMessage{WorldID: worldID, Change: change})
	if err != nil {
		return err
	}
	msg.SetMetadata("revision", strconv.FormatUint(change.Revision, 10))
	_, err = p.Publish(ctx, msg)
	return err
}

// PublishSnapshotSaved 发布快照写入通知
func (p *Producer) PublishSnapshotSaved(ctx context.Context, snap *entity.Snapshot) error {
	msg, err := NewMessage("", TypeSnapshotSaved, snap.WorldID, NewSnapshotSavedMessage(snap))
	if err != nil {
		return err
	}
	msg.SetMetadata("revision", strconv.FormatUint(snap.Revision, 10))
	_, err = p.Publish(ctx, msg)
	return err
}
