package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/domain/entity"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRegistry() *Registry {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var mu sync.Mutex
	n := 0
	return New(
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("gen-%03d", n)
		}),
	)
}

func mustAddEntity(t *testing.T, r *Registry, id string, typ entity.EntityType, name string, tags ...string) string {
	t.Helper()
	e := entity.NewEntity(typ, name, tags...)
	e.ID = id
	got, err := r.AddEntity(e)
	require.NoError(t, err)
	return got
}

func mustAddEvent(t *testing.T, r *Registry, ev *entity.TimelineEvent) string {
	t.Helper()
	id, err := r.AddEvent(ev)
	require.NoError(t, err)
	return id
}

func eventAt(id, name string, day float64, involved ...string) *entity.TimelineEvent {
	ev := entity.NewTimelineEvent(name, entity.EventTypeStoryEvent, entity.AtStoryDay(day))
	ev.ID = id
	for _, eid := range involved {
		ev.InvolvedEntities = append(ev.InvolvedEntities, entity.EntityRef{ID: eid})
	}
	return ev
}

func ids[T interface{ *entity.Entity | *entity.TimelineEvent | *entity.Relationship }](list []T) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch x := any(v).(type) {
		case *entity.Entity:
			out = append(out, x.ID)
		case *entity.TimelineEvent:
			out = append(out, x.ID)
		case *entity.Relationship:
			out = append(out, x.ID)
		}
	}
	return out
}

// assertIndexesConsistent 从原始数据重建索引并与增量维护的索引比较
func assertIndexesConsistent(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	fresh := New()
	fresh.entities = r.entities
	fresh.relations = r.relations
	fresh.rebuildIndexes()

	assert.Equal(t, fresh.byType, r.byType, "type index")
	assert.Equal(t, fresh.byTag, r.byTag, "tag index")
	assert.Equal(t, fresh.byName, r.byName, "name index")
	assert.Equal(t, fresh.adjacency, r.adjacency, "adjacency index")
}

func TestChangeListenersAndRevision(t *testing.T) {
	r := newTestRegistry()
	var changes []entity.Change
	r.OnChange(func(c entity.Change) {
		// 监听器在锁外调用，可以安全读取注册表
		_ = r.Stats()
		changes = append(changes, c)
	})

	id := mustAddEntity(t, r, "", entity.EntityTypeCharacter, "Kaelen")
	require.NoError(t, r.RemoveEntity("missing"))
	require.NoError(t, r.RemoveEntity(id))

	require.Len(t, changes, 2)
	assert.Equal(t, entity.ChangeAdded, changes[0].Kind)
	assert.Equal(t, uint64(1), changes[0].Revision)
	assert.Equal(t, entity.ChangeRemoved, changes[1].Kind)
	assert.Equal(t, uint64(2), r.Revision())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := r.AddEntity(entity.NewEntity(entity.EntityTypeItem, fmt.Sprintf("item %d-%d", i, j), "loot"))
				assert.NoError(t, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = r.Search("item", SearchOptions{})
				_ = r.GetEntitiesByTag("loot")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.ListEntities(), 200)
	assertIndexesConsistent(t, r)
}
