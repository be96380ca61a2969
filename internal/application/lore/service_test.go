package lore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/internal/domain/repository"
	apperrors "z-novel-lore-api/pkg/errors"
)

type fakeStore struct {
	mu    sync.Mutex
	snaps map[string]*entity.Snapshot
	err   error
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: make(map[string]*entity.Snapshot)}
}

func (f *fakeStore) Save(_ context.Context, snap *entity.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.snaps[snap.WorldID] = snap
	return nil
}

func (f *fakeStore) Load(_ context.Context, worldID string) (*entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snaps[worldID]
	if !ok {
		return nil, apperrors.ErrSnapshotNotFound.WithDetail(worldID)
	}
	return snap, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakeArchive struct {
	*fakeStore
}

func (a fakeArchive) ListRevisions(_ context.Context, worldID string, p repository.Pagination) (*repository.PagedResult[*repository.SnapshotSummary], error) {
	snap, err := a.Load(context.Background(), worldID)
	if err != nil {
		return repository.NewPagedResult[*repository.SnapshotSummary](nil, 0, p), nil
	}
	items := []*repository.SnapshotSummary{{WorldID: worldID, Revision: snap.Revision}}
	return repository.NewPagedResult(items, 1, p), nil
}

func (a fakeArchive) LoadRevision(ctx context.Context, worldID string, revision uint64) (*entity.Snapshot, error) {
	snap, err := a.Load(ctx, worldID)
	if err != nil || snap.Revision != revision {
		return nil, apperrors.ErrSnapshotNotFound
	}
	return snap, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	changes   []entity.Change
	snapshots []uint64
}

func (p *fakePublisher) PublishChange(_ context.Context, _ string, change entity.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *fakePublisher) PublishSnapshotSaved(_ context.Context, snap *entity.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snap.Revision)
	return nil
}

func (p *fakePublisher) changeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}

func newService(opts ...Option) *Service {
	n := 0
	reg := registry.New(registry.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}))
	return NewService(reg, consistency.NewEngine(reg), opts...)
}

func character(id, name string) *entity.Entity {
	e := entity.NewEntity(entity.EntityTypeCharacter, name)
	e.ID = id
	e.Description = name + " of the north"
	return e
}

func TestAddEntityValidates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	bad := character("kaelen", "Kaelen")
	bad.Metadata = map[string]any{"age": -3}
	_, err := svc.AddEntity(ctx, bad)
	require.Error(t, err)
	assert.True(t, apperrors.AsAppError(err).Code == apperrors.CodeValidationFailed)
	assert.False(t, svc.Registry().HasEntity("kaelen"))

	got, err := svc.AddEntity(ctx, character("kaelen", "Kaelen"))
	require.NoError(t, err)
	assert.Equal(t, "kaelen", got.ID)
	assert.Equal(t, uint64(1), svc.Stats().Revision)
}

func TestUpdateEntityRejectsInvalidResult(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.AddEntity(ctx, character("kaelen", "Kaelen"))
	require.NoError(t, err)

	empty := ""
	_, err = svc.UpdateEntity(ctx, "kaelen", entity.EntityPatch{Name: &empty})
	require.Error(t, err)

	e, err := svc.GetEntity(ctx, "kaelen")
	require.NoError(t, err)
	assert.Equal(t, "Kaelen", e.Name)
}

func TestListEntitiesCombinesFilters(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	a := character("a", "Aria Stone")
	a.Tags = []string{"mage"}
	b := character("b", "Bran Stone")
	c := entity.NewEntity(entity.EntityTypeLocation, "Stonehold")
	c.ID = "c"
	c.Tags = []string{"mage"}
	for _, e := range []*entity.Entity{a, b, c} {
		_, err := svc.AddEntity(ctx, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query EntityQuery
		want  []string
	}{
		{"all", EntityQuery{}, []string{"a", "b", "c"}},
		{"type", EntityQuery{Type: entity.EntityTypeCharacter}, []string{"a", "b"}},
		{"type and tag", EntityQuery{Type: entity.EntityTypeCharacter, Tag: "mage"}, []string{"a"}},
		{"name", EntityQuery{Name: "stone"}, []string{"a", "b", "c"}},
		{"tag and name", EntityQuery{Tag: "mage", Name: "hold"}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, e := range svc.ListEntities(ctx, tt.query) {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestImportEntitiesRejectsWholeBatch(t *testing.T) {
	svc := newService()
	bad := character("b", "")
	_, err := svc.ImportEntities(context.Background(), []*entity.Entity{character("a", "A"), bad}, false)
	require.Error(t, err)
	assert.Contains(t, apperrors.AsAppError(err).Detail, "entities[1]")
	assert.Equal(t, 0, svc.Stats().Entities)
}

func TestRelationshipsForUnknownEntity(t *testing.T) {
	svc := newService()
	_, err := svc.RelationshipsFor(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPublisherReceivesChanges(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(WithPublisher(pub, 8))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunPublisher(ctx)
		close(done)
	}()

	_, err := svc.AddEntity(ctx, character("a", "A"))
	require.NoError(t, err)
	_, err = svc.AddEntity(ctx, character("b", "B"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return pub.changeCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, entity.ChangeAdded, pub.changes[0].Kind)
	assert.Equal(t, []string{"b"}, pub.changes[1].IDs)
	assert.Equal(t, uint64(2), pub.changes[1].Revision)
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	svc := newService(WithPublisher(&fakePublisher{}, 1))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.AddEntity(ctx, character(fmt.Sprintf("e%d", i), "E"))
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(2), svc.dropped.Load())
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := newService(WithSnapshotStore(store), WithPublisher(pub, 16), WithWorldID("aster"))
	ctx := context.Background()

	_, err := svc.AddEntity(ctx, character("kaelen", "Kaelen"))
	require.NoError(t, err)
	assert.True(t, svc.Dirty())

	snap, err := svc.SaveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "aster", snap.WorldID)
	assert.NotEmpty(t, snap.WorldRules)
	assert.False(t, svc.Dirty())
	assert.Equal(t, []uint64{snap.Revision}, pub.snapshots)

	other := newService(WithSnapshotStore(store), WithWorldID("aster"))
	loaded, err := other.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Revision, loaded.Revision)
	assert.True(t, other.Registry().HasEntity("kaelen"))
	assert.Equal(t, snap.Revision, other.Stats().Revision)
	assert.False(t, other.Dirty())
}

func TestLoadSnapshotFallsBackToArchive(t *testing.T) {
	store := newFakeStore()
	store.err = apperrors.ErrCacheUnavailable
	archive := fakeArchive{newFakeStore()}

	writer := newService(WithArchive(archive), WithWorldID("w"))
	ctx := context.Background()
	_, err := writer.AddEntity(ctx, character("a", "A"))
	require.NoError(t, err)
	_, err = writer.SaveSnapshot(ctx)
	require.NoError(t, err)

	reader := newService(WithSnapshotStore(store), WithArchive(archive), WithWorldID("w"))
	_, err = reader.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, reader.Registry().HasEntity("a"))

	page, err := reader.ListRevisions(ctx, repository.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestLoadSnapshotWithoutStores(t *testing.T) {
	svc := newService()
	_, err := svc.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	_, err = svc.SaveSnapshot(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestRestoreRejectsInvalidWorldRules(t *testing.T) {
	svc := newService()
	before := svc.WorldRules(context.Background())
	snap := &entity.Snapshot{Version: entity.SnapshotVersion, WorldRules: []entity.WorldRule{{ID: "x", Name: "X", EnforcementLevel: "sometimes"}}}
	err := svc.RestoreSnapshot(context.Background(), snap)
	require.Error(t, err)
	assert.Equal(t, before, svc.WorldRules(context.Background()))
}

func TestRunAutosaveSkipsUnchangedRevision(t *testing.T) {
	store := newFakeStore()
	svc := newService(WithSnapshotStore(store))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunAutosave(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, store.count())

	_, err := svc.AddEntity(context.Background(), character("a", "A"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, store.count())
}

func TestWorldRuleManagement(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	rule := entity.WorldRule{ID: "no-guns", Name: "No guns", EnforcementLevel: entity.EnforcementStrict, Keywords: []string{"gun"}}
	rules, err := svc.PutWorldRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "no-guns", rules[len(rules)-1].ID)

	rule.Name = "No firearms"
	rules, err = svc.PutWorldRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "No firearms", rules[len(rules)-1].Name)

	removed, err := svc.RemoveWorldRule(ctx, "no-guns")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RemoveWorldRule(ctx, "no-guns")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestValidateWorldRules(t *testing.T) {
	tests := []struct {
		name      string
		rules     []entity.WorldRule
		wantValid bool
		wantField string
	}{
		{"defaults", entity.DefaultWorldRules(), true, ""},
		{"missing id", []entity.WorldRule{{Name: "n", EnforcementLevel: entity.EnforcementStrict}}, false, "world_rules[0].id"},
		{"duplicate", []entity.WorldRule{
			{ID: "a", Name: "A", EnforcementLevel: entity.EnforcementStrict},
			{ID: "a", Name: "B", EnforcementLevel: entity.EnforcementStrict},
		}, false, "world_rules[1].id"},
		{"bad scope", []entity.WorldRule{{ID: "a", Name: "A", EnforcementLevel: entity.EnforcementFlexible, Scope: "galactic"}}, false, "world_rules[0].scope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateWorldRules(tt.rules)
			assert.Equal(t, tt.wantValid, res.IsValid)
			if tt.wantField != "" {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
			}
		})
	}
}

func TestEngineOptionsDisableRules(t *testing.T) {
	reg := registry.New()
	engine := consistency.NewEngine(reg, EngineOptions(config.ConsistencyConfig{
		DisabledRules: []string{consistency.RuleEmotion, consistency.RuleKnowledge},
		CacheEnabled:  true,
		CacheSize:     4,
		WorldRules: []config.WorldRuleConfig{
			{ID: "r1", Name: "R1", EnforcementLevel: "strict", Keywords: []string{"dragon"}},
		},
	})...)

	assert.NotContains(t, engine.RuleIDs(), consistency.RuleEmotion)
	assert.NotContains(t, engine.RuleIDs(), consistency.RuleKnowledge)
	assert.Contains(t, engine.RuleIDs(), consistency.RuleMortality)
	require.Len(t, engine.WorldRules(), 1)
	assert.Equal(t, entity.EnforcementStrict, engine.WorldRules()[0].EnforcementLevel)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "success", statusOf(nil))
	assert.Equal(t, "not_found", statusOf(apperrors.ErrEntityNotFound))
	assert.Equal(t, "conflict", statusOf(apperrors.ErrDuplicateID))
	assert.Equal(t, "invalid", statusOf(apperrors.ErrValidationFailed))
	assert.Equal(t, "error", statusOf(fmt.Errorf("boom")))
}
