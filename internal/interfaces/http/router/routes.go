package router

import (
	"github.com/gin-gonic/gin"

	"z-novel-lore-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由；写操作要求编辑权限
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	write := middleware.RequireWrite()

	// 实体
	entities := v1.Group("/entities")
	{
		entities.GET("", h.Entity.ListEntities)
		entities.POST("", write, h.Entity.CreateEntity)
		entities.GET("/duplicates", h.Entity.FindDuplicates)
		entities.GET("/export", h.Entity.ExportEntities)
		entities.POST("/import", write, h.Entity.ImportEntities)
		entities.POST("/merge", write, h.Entity.MergeEntities)
		entities.GET("/:id", h.Entity.GetEntity)
		entities.PATCH("/:id", write, h.Entity.UpdateEntity)
		entities.DELETE("/:id", write, h.Entity.DeleteEntity)
		entities.GET("/:id/similar", h.Entity.FindSimilar)
		entities.GET("/:id/validate", h.Entity.ValidateEntity)
		entities.GET("/:id/relationships", h.Entity.ListRelationships)
		entities.GET("/:id/cross-references", h.Entity.CrossReferences)
		entities.GET("/:id/events", h.Entity.ListEvents)
	}

	// 关系
	relationships := v1.Group("/relationships")
	{
		relationships.GET("", h.Relationship.ListRelationships)
		relationships.POST("", write, h.Relationship.CreateRelationship)
		relationships.GET("/between", h.Relationship.Between)
		relationships.POST("/import", write, h.Relationship.ImportRelationships)
		relationships.GET("/:id", h.Relationship.GetRelationship)
		relationships.DELETE("/:id", write, h.Relationship.DeleteRelationship)
	}

	// 时间线事件；query/analyze/export 只读，用 POST 传视图
	events := v1.Group("/events")
	{
		events.GET("", h.Event.ListEvents)
		events.POST("", write, h.Event.CreateEvent)
		events.POST("/query", h.Event.Query)
		events.POST("/analyze", h.Event.Analyze)
		events.POST("/export", h.Event.Export)
		events.POST("/import", write, h.Event.Import)
		events.POST("/merge", write, h.Event.MergeEvents)
		events.GET("/:id", h.Event.GetEvent)
		events.PATCH("/:id", write, h.Event.UpdateEvent)
		events.DELETE("/:id", write, h.Event.DeleteEvent)
		events.POST("/:id/move", write, h.Event.MoveEvent)
		events.POST("/:id/duplicate", write, h.Event.DuplicateEvent)
		events.GET("/:id/similar", h.Event.FindSimilar)
		events.POST("/:id/dependencies", write, h.Event.AddDependency)
		events.DELETE("/:id/dependencies/:target", write, h.Event.RemoveDependency)
	}

	// 检索
	v1.GET("/search", h.Consistency.SearchQuery)
	v1.POST("/search", h.Consistency.Search)

	// 一致性
	consistency := v1.Group("/consistency")
	{
		consistency.POST("/analyze", h.Consistency.Analyze)
		consistency.GET("/rules", h.Consistency.Rules)
	}

	// 世界规则
	worldRules := v1.Group("/world-rules")
	{
		worldRules.GET("", h.Consistency.ListWorldRules)
		worldRules.PUT("", write, h.Consistency.ReplaceWorldRules)
		worldRules.PUT("/:id", write, h.Consistency.PutWorldRule)
		worldRules.DELETE("/:id", write, h.Consistency.DeleteWorldRule)
	}

	// 快照
	v1.GET("/stats", h.Snapshot.Stats)
	snapshot := v1.Group("/snapshot")
	{
		snapshot.GET("", h.Snapshot.Export)
		snapshot.POST("/save", write, h.Snapshot.Save)
		snapshot.POST("/load", write, h.Snapshot.Load)
		snapshot.POST("/restore", write, h.Snapshot.Restore)
		snapshot.GET("/revisions", h.Snapshot.ListRevisions)
		snapshot.GET("/revisions/:revision", h.Snapshot.GetRevision)
	}
}
