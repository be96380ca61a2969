// Package registry 提供世界设定注册表：实体存储、关系图、时间线图与检索
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"z-novel-lore-api/internal/domain/entity"
)

// ChangeListener 变更监听器，在释放锁之后同步调用
type ChangeListener func(change entity.Change)

// Option 注册表选项
type Option func(*Registry)

// WithClock 指定时钟
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator 指定 id 生成器
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// Registry 实体 / 关系 / 时间线事件的内存注册表。
// 所有变更持有写锁直到索引与级联清理全部完成，读操作持有读锁。
type Registry struct {
	mu sync.RWMutex

	entities  map[string]*entity.Entity
	byType    map[entity.EntityType]map[string]struct{}
	byTag     map[string]map[string]struct{}
	byName    map[string]map[string]struct{} // 小写名称 -> id
	relations map[string]*entity.Relationship
	adjacency map[string]map[string]struct{} // 实体 id -> 关系 id
	events    map[string]*entity.TimelineEvent

	// seq 记录插入顺序，实体 / 关系 / 事件共用一个计数器
	seq     map[string]uint64
	nextSeq uint64

	revision  uint64
	listeners []ChangeListener

	now   func() time.Time
	newID func() string
}

// New 创建空注册表
func New(opts ...Option) *Registry {
	r := &Registry{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	r.reset()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) reset() {
	r.entities = make(map[string]*entity.Entity)
	r.byType = make(map[entity.EntityType]map[string]struct{})
	r.byTag = make(map[string]map[string]struct{})
	r.byName = make(map[string]map[string]struct{})
	r.relations = make(map[string]*entity.Relationship)
	r.adjacency = make(map[string]map[string]struct{})
	r.events = make(map[string]*entity.TimelineEvent)
	r.seq = make(map[string]uint64)
	r.nextSeq = 0
}

// OnChange 注册变更监听器
func (r *Registry) OnChange(l ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Revision 当前版本号，每次成功变更加一
func (r *Registry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Stats 对象数量
type Stats struct {
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
	Events        int    `json:"events"`
	Revision      uint64 `json:"revision"`
}

// Stats 返回对象数量
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Entities:      len(r.entities),
		Relationships: len(r.relations),
		Events:        len(r.events),
		Revision:      r.revision,
	}
}

// mutate 在写锁内执行 fn；fn 必须先完成全部校验再修改状态。
// 成功且产生变更时递增版本号，并在解锁后通知监听器。
func (r *Registry) mutate(fn func() (*entity.Change, error)) error {
	change, listeners, err := r.applyLocked(fn)
	if err != nil || change == nil {
		return err
	}
	for _, l := range listeners {
		l(*change)
	}
	return nil
}

func (r *Registry) applyLocked(fn func() (*entity.Change, error)) (*entity.Change, []ChangeListener, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	change, err := fn()
	if err != nil || change == nil {
		return nil, nil, err
	}
	r.revision++
	change.Revision = r.revision
	return change, append([]ChangeListener(nil), r.listeners...), nil
}

func changeOf(kind entity.ChangeKind, obj entity.ObjectKind, ids ...string) *entity.Change {
	return &entity.Change{Kind: kind, Object: obj, IDs: ids}
}

func (r *Registry) track(id string) {
	if _, ok := r.seq[id]; ok {
		return
	}
	r.nextSeq++
	r.seq[id] = r.nextSeq
}

// sortedIDs 将 id 集合按插入顺序排列
func (r *Registry) sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	r.sortBySeq(ids)
	return ids
}

func (r *Registry) sortBySeq(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		si, sj := r.seq[ids[i]], r.seq[ids[j]]
		if si != sj {
			return si < sj
		}
		return ids[i] < ids[j]
	})
}

func addToIndex[K comparable](idx map[K]map[string]struct{}, key K, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex[K comparable](idx map[K]map[string]struct{}, key K, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) indexEntity(e *entity.Entity) {
	addToIndex(r.byType, e.Type, e.ID)
	for _, tag := range e.Tags {
		addToIndex(r.byTag, tag, e.ID)
	}
	addToIndex(r.byName, nameKey(e.Name), e.ID)
}

func (r *Registry) unindexEntity(e *entity.Entity) {
	removeFromIndex(r.byType, e.Type, e.ID)
	for _, tag := range e.Tags {
		removeFromIndex(r.byTag, tag, e.ID)
	}
	removeFromIndex(r.byName, nameKey(e.Name), e.ID)
}

func (r *Registry) linkRelationship(rel *entity.Relationship) {
	addToIndex(r.adjacency, rel.From.ID, rel.ID)
	addToIndex(r.adjacency, rel.To.ID, rel.ID)
}

func (r *Registry) unlinkRelationship(rel *entity.Relationship) {
	removeFromIndex(r.adjacency, rel.From.ID, rel.ID)
	removeFromIndex(r.adjacency, rel.To.ID, rel.ID)
}

// rebuildIndexes 从原始列表重建全部派生索引
func (r *Registry) rebuildIndexes() {
	r.byType = make(map[entity.EntityType]map[string]struct{})
	r.byTag = make(map[string]map[string]struct{})
	r.byName = make(map[string]map[string]struct{})
	r.adjacency = make(map[string]map[string]struct{})
	for _, e := range r.entities {
		r.indexEntity(e)
	}
	for _, rel := range r.relations {
		r.linkRelationship(rel)
	}
}

func (r *Registry) resolveRef(id string) (entity.EntityRef, bool) {
	e, ok := r.entities[id]
	if !ok {
		return entity.EntityRef{}, false
	}
	return e.Ref(), true
}
