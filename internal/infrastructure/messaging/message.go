// Package messaging 基于 Redis Stream 的注册表变更与快照通知
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"z-novel-lore-api/internal/domain/entity"
)

// 消息类型
const (
	TypeRegistryChange = "registry_change"
	TypeSnapshotSaved  = "snapshot_saved"
)

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	WorldID   string            `json:"world_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息，id 为空时生成 UUID
func NewMessage(id, msgType, worldID string, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		WorldID:   worldID,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ChangeMessage 注册表变更载荷
type ChangeMessage struct {
	WorldID string        `json:"world_id"`
	Change  entity.Change `json:"change"`
}

// SnapshotSavedMessage 快照已写入热存储的通知
type SnapshotSavedMessage struct {
	WorldID       string    `json:"world_id"`
	Revision      uint64    `json:"revision"`
	Entities      int       `json:"entities"`
	Relationships int       `json:"relationships"`
	Events        int       `json:"events"`
	SavedAt       time.Time `json:"saved_at"`
}

// NewSnapshotSavedMessage 从快照生成通知载荷
func NewSnapshotSavedMessage(snap *entity.Snapshot) *SnapshotSavedMessage {
	return &SnapshotSavedMessage{
		WorldID:       snap.WorldID,
		Revision:      snap.Revision,
		Entities:      len(snap.Entities),
		Relationships: len(snap.Relationships),
		Events:        len(snap.Events),
		SavedAt:       snap.SavedAt,
	}
}

// Stream 流名称
type Stream string

// DefaultStream 注册表变更流
const DefaultStream Stream = "stream:lore:changes"

// DLQStream 获取对应的死信队列流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

// ConsumerGroupArchiver 归档消费者组后缀
const ConsumerGroupArchiver ConsumerGroup = "archiver"

// GroupName 带前缀的消费者组名
func GroupName(prefix string, group ConsumerGroup) ConsumerGroup {
	if prefix == "" {
		return group
	}
	return ConsumerGroup(prefix + "-" + string(group))
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 计算第 retryCount 次重试前的等待时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	backoff := c.Initial
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff > c.Max {
			return c.Max
		}
	}
	return backoff
}
