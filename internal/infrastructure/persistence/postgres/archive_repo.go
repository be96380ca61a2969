package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"z-novel-lore-api/internal/domain/entity"
	"z-novel-lore-api/internal/domain/repository"
	apperrors "z-novel-lore-api/pkg/errors"
	"z-novel-lore-api/pkg/metrics"
	"z-novel-lore-api/pkg/tracer"
)

// 批量写入大小
const batchSize = 200

// ArchiveRepository 快照归档仓储实现
type ArchiveRepository struct {
	client *Client
	tx     *TxManager
}

var _ repository.ArchiveRepository = (*ArchiveRepository)(nil)

// NewArchiveRepository 创建快照归档仓储
func NewArchiveRepository(client *Client, tx *TxManager) *ArchiveRepository {
	return &ArchiveRepository{client: client, tx: tx}
}

// Save 在一个事务中写入快照头和全部明细，同一版本重复保存时覆盖
func (r *ArchiveRepository) Save(ctx context.Context, snap *entity.Snapshot) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.ArchiveRepository.Save",
		trace.WithAttributes(
			attribute.String("lore.world_id", snap.WorldID),
			attribute.Int64("lore.revision", int64(snap.Revision)),
		))
	defer span.End()
	defer func() { observe("save", err) }()

	err = r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := getDB(ctx, r.client.db)
		where := "world_id = ? AND revision = ?"
		for _, m := range []any{&entityModel{}, &relationshipModel{}, &eventModel{}, &snapshotModel{}} {
			if err := db.Where(where, snap.WorldID, snap.Revision).Delete(m).Error; err != nil {
				return err
			}
		}

		head := &snapshotModel{
			WorldID:           snap.WorldID,
			Revision:          snap.Revision,
			Version:           snap.Version,
			EntityCount:       len(snap.Entities),
			RelationshipCount: len(snap.Relationships),
			EventCount:        len(snap.Events),
			WorldRules:        snap.WorldRules,
			SavedAt:           snap.SavedAt,
		}
		if err := db.Create(head).Error; err != nil {
			return err
		}

		entities := make([]*entityModel, 0, len(snap.Entities))
		for i, e := range snap.Entities {
			entities = append(entities, toEntityModel(snap.WorldID, snap.Revision, i, e))
		}
		if len(entities) > 0 {
			if err := db.CreateInBatches(entities, batchSize).Error; err != nil {
				return err
			}
		}

		rels := make([]*relationshipModel, 0, len(snap.Relationships))
		for i, rel := range snap.Relationships {
			rels = append(rels, toRelationshipModel(snap.WorldID, snap.Revision, i, rel))
		}
		if len(rels) > 0 {
			if err := db.CreateInBatches(rels, batchSize).Error; err != nil {
				return err
			}
		}

		events := make([]*eventModel, 0, len(snap.Events))
		for i, ev := range snap.Events {
			events = append(events, toEventModel(snap.WorldID, snap.Revision, i, ev))
		}
		if len(events) > 0 {
			if err := db.CreateInBatches(events, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracer.Fail(span, err)
		return apperrors.ErrDatabase.WithError(err)
	}
	return nil
}

// Load 读取世界的最新归档快照
func (r *ArchiveRepository) Load(ctx context.Context, worldID string) (snap *entity.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "postgres.ArchiveRepository.Load",
		trace.WithAttributes(attribute.String("lore.world_id", worldID)))
	defer span.End()
	defer func() { observe("load", err) }()

	var head snapshotModel
	err = getDB(ctx, r.client.db).
		Where("world_id = ?", worldID).
		Order("revision DESC").
		First(&head).Error
	if err != nil {
		tracer.Fail(span, err)
		return nil, notFoundOr(err, worldID)
	}
	return r.assemble(ctx, &head)
}

// LoadRevision 读取指定版本
func (r *ArchiveRepository) LoadRevision(ctx context.Context, worldID string, revision uint64) (snap *entity.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "postgres.ArchiveRepository.LoadRevision",
		trace.WithAttributes(
			attribute.String("lore.world_id", worldID),
			attribute.Int64("lore.revision", int64(revision)),
		))
	defer span.End()
	defer func() { observe("load", err) }()

	var head snapshotModel
	err = getDB(ctx, r.client.db).
		Where("world_id = ? AND revision = ?", worldID, revision).
		First(&head).Error
	if err != nil {
		tracer.Fail(span, err)
		return nil, notFoundOr(err, fmt.Sprintf("%s@%d", worldID, revision))
	}
	return r.assemble(ctx, &head)
}

func (r *ArchiveRepository) assemble(ctx context.Context, head *snapshotModel) (*entity.Snapshot, error) {
	db := getDB(ctx, r.client.db)
	where := "world_id = ? AND revision = ?"

	var entities []*entityModel
	if err := db.Where(where, head.WorldID, head.Revision).Order("position").Find(&entities).Error; err != nil {
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	var rels []*relationshipModel
	if err := db.Where(where, head.WorldID, head.Revision).Order("position").Find(&rels).Error; err != nil {
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	var events []*eventModel
	if err := db.Where(where, head.WorldID, head.Revision).Order("position").Find(&events).Error; err != nil {
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	return assembleSnapshot(head, entities, rels, events), nil
}

func assembleSnapshot(head *snapshotModel, entities []*entityModel, rels []*relationshipModel, events []*eventModel) *entity.Snapshot {
	snap := &entity.Snapshot{
		Version:       head.Version,
		WorldID:       head.WorldID,
		Revision:      head.Revision,
		Entities:      make([]*entity.Entity, 0, len(entities)),
		Relationships: make([]*entity.Relationship, 0, len(rels)),
		Events:        make([]*entity.TimelineEvent, 0, len(events)),
		WorldRules:    head.WorldRules,
		SavedAt:       head.SavedAt,
	}
	refs := make(map[string]entity.EntityRef, len(entities))
	for _, m := range entities {
		e := m.toEntity()
		refs[e.ID] = e.Ref()
		snap.Entities = append(snap.Entities, e)
	}
	for _, m := range rels {
		snap.Relationships = append(snap.Relationships, m.toRelationship(refs))
	}
	for _, m := range events {
		if m.Payload != nil {
			snap.Events = append(snap.Events, m.Payload)
		}
	}
	return snap
}

// ListRevisions 分页列出历史快照，从新到旧
func (r *ArchiveRepository) ListRevisions(ctx context.Context, worldID string, pagination repository.Pagination) (*repository.PagedResult[*repository.SnapshotSummary], error) {
	ctx, span := tracer.Start(ctx, "postgres.ArchiveRepository.ListRevisions",
		trace.WithAttributes(attribute.String("lore.world_id", worldID)))
	defer span.End()

	db := getDB(ctx, r.client.db).Model(&snapshotModel{}).Where("world_id = ?", worldID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		tracer.Fail(span, err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}

	var heads []*snapshotModel
	if err := db.Order("revision DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&heads).Error; err != nil {
		tracer.Fail(span, err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}

	items := make([]*repository.SnapshotSummary, 0, len(heads))
	for _, h := range heads {
		items = append(items, &repository.SnapshotSummary{
			WorldID:       h.WorldID,
			Revision:      h.Revision,
			Entities:      h.EntityCount,
			Relationships: h.RelationshipCount,
			Events:        h.EventCount,
			SavedAt:       h.SavedAt.UTC().Format(time.RFC3339),
		})
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

func notFoundOr(err error, detail string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrSnapshotNotFound.WithDetail(detail)
	}
	return apperrors.ErrDatabase.WithError(err)
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
	metrics.SnapshotOperationsTotal.WithLabelValues("postgres", op, status).Inc()
}
