package entity

import "time"

// SnapshotVersion 当前快照格式版本
const SnapshotVersion = 1

// Snapshot 注册表的可持久化形态，只含原始列表，索引在加载时重建
type Snapshot struct {
	Version       int              `json:"version"`
	WorldID       string           `json:"world_id"`
	Revision      uint64           `json:"revision"`
	Entities      []*Entity        `json:"entities"`
	Relationships []*Relationship  `json:"relationships"`
	Events        []*TimelineEvent `json:"events"`
	WorldRules    []WorldRule      `json:"world_rules,omitempty"`
	SavedAt       time.Time        `json:"saved_at"`
}

// ChangeKind 注册表变更类型
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeUpdated  ChangeKind = "updated"
	ChangeRemoved  ChangeKind = "removed"
	ChangeMerged   ChangeKind = "merged"
	ChangeImported ChangeKind = "imported"
	ChangeRestored ChangeKind = "restored"
)

// ObjectKind 变更对象类型
type ObjectKind string

const (
	ObjectEntity       ObjectKind = "entity"
	ObjectRelationship ObjectKind = "relationship"
	ObjectEvent        ObjectKind = "event"
	ObjectRegistry     ObjectKind = "registry"
)

// Change 注册表变更通知
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Object   ObjectKind `json:"object"`
	IDs      []string   `json:"ids"`
	Revision uint64     `json:"revision"`
}
