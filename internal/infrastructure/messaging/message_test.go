package messaging

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.CalculateBackoff(tt.retry), "retry %d", tt.retry)
	}
}

func TestNewMessageGeneratesID(t *testing.T) {
	change := entity.Change{Kind: entity.ChangeAdded, Object: entity.ObjectEntity, IDs: []string{"kaelen"}, Revision: 3}
	msg, err := NewMessage("", TypeRegistryChange, "w1", &ChangeMessage{WorldID: "w1", Change: change})
	require.NoError(t, err)
	assert.Len(t, msg.ID, 36)
	assert.Equal(t, "w1", msg.WorldID)

	var got ChangeMessage
	require.NoError(t, msg.UnmarshalPayload(&got))
	assert.Equal(t, change, got.Change)
}

func TestSnapshotSavedMessageCounts(t *testing.T) {
	snap := &entity.Snapshot{
		WorldID:  "w1",
		Revision: 12,
		Entities: []*entity.Entity{{ID: "a"}, {ID: "b"}},
		Events:   []*entity.TimelineEvent{{ID: "e"}},
	}
	m := NewSnapshotSavedMessage(snap)
	assert.Equal(t, uint64(12), m.Revision)
	assert.Equal(t, 2, m.Entities)
	assert.Equal(t, 0, m.Relationships)
	assert.Equal(t, 1, m.Events)
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "dlq:stream:lore:changes", DefaultStream.DLQStream())
	assert.Equal(t, ConsumerGroup("cg-archiver"), GroupName("cg", ConsumerGroupArchiver))
	assert.Equal(t, ConsumerGroupArchiver, GroupName("", ConsumerGroupArchiver))
}

func TestDecodeRejectsMissingData(t *testing.T) {
	_, err := decode(redis.XMessage{ID: "1-0", Values: map[string]any{"other": "x"}})
	assert.Error(t, err)

	_, err = decode(redis.XMessage{ID: "1-1", Values: map[string]any{"data": "{not json"}})
	assert.Error(t, err)

	msg, err := decode(redis.XMessage{ID: "1-2", Values: map[string]any{"data": `{"id":"m","type":"snapshot_saved","world_id":"w"}`}})
	require.NoError(t, err)
	assert.Equal(t, TypeSnapshotSaved, msg.Type)
}
