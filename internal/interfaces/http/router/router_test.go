package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-lore-api/internal/application/lore"
	"z-novel-lore-api/internal/config"
	"z-novel-lore-api/internal/domain/consistency"
	"z-novel-lore-api/internal/domain/registry"
	"z-novel-lore-api/internal/interfaces/http/handler"
	"z-novel-lore-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, mutate func(*config.Config)) (*gin.Engine, *lore.Service) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Name = "lore-api-test"
	cfg.Persistence.WorldID = "test"
	if mutate != nil {
		mutate(cfg)
	}

	reg := registry.New()
	svc := lore.NewService(reg, consistency.NewEngine(reg), lore.WithWorldID("test"))
	r := New(cfg, &Handlers{
		Health:       handler.NewHealthHandler("test", svc, nil),
		Entity:       handler.NewEntityHandler(svc),
		Relationship: handler.NewRelationshipHandler(svc),
		Event:        handler.NewEventHandler(svc),
		Consistency:  handler.NewConsistencyHandler(svc),
		Snapshot:     handler.NewSnapshotHandler(svc),
	}, nil)
	return r.Engine(), svc
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
		Details   string `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestEntityLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	status, env := call(t, r, "POST", "/v1/entities", map[string]any{
		"id": "kaelen", "type": "character", "name": "Kaelen", "tags": []string{"hero"},
		"description": "A knight of the north",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[map[string]any](t, env.Data)
	assert.Equal(t, "kaelen", created["id"])

	status, _ = call(t, r, "POST", "/v1/entities", map[string]any{"id": "kaelen", "type": "character", "name": "Again"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = call(t, r, "GET", "/v1/entities/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "3003", env.Error.ErrorCode)

	status, env = call(t, r, "PATCH", "/v1/entities/kaelen", map[string]any{"name": "Kaelen the Bold"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Kaelen the Bold", decode[map[string]any](t, env.Data)["name"])

	status, env = call(t, r, "GET", "/v1/entities?tag=hero&page_size=5", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Entities []map[string]any `json:"entities"`
	}](t, env.Data)
	assert.Len(t, list.Entities, 1)

	status, _ = call(t, r, "DELETE", "/v1/entities/kaelen", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestCreateEntityValidation(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	status, _ := call(t, r, "POST", "/v1/entities", map[string]any{"type": "character"})
	assert.Equal(t, http.StatusBadRequest, status, "binding rejects missing name")

	status, env := call(t, r, "POST", "/v1/entities", map[string]any{"type": "dragon", "name": "Smaug"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "type")
}

func TestRelationshipsAndEvents(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, e := range []map[string]any{
		{"id": "a", "type": "character", "name": "Aria", "description": "archer"},
		{"id": "b", "type": "location", "name": "Brightwater", "description": "a lake town"},
	} {
		status, _ := call(t, r, "POST", "/v1/entities", e)
		require.Equal(t, http.StatusCreated, status)
	}

	status, _ := call(t, r, "POST", "/v1/relationships", map[string]any{"from_id": "a", "to_id": "b", "type": "located_in", "strength": 42})
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, r, "POST", "/v1/relationships", map[string]any{"from_id": "a", "to_id": "nope", "type": "knows"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := call(t, r, "GET", "/v1/relationships/between?a=b&b=a", nil)
	require.Equal(t, http.StatusOK, status)
	rels := decode[struct {
		Relationships []struct {
			Strength int `json:"strength"`
		} `json:"relationships"`
	}](t, env.Data)
	require.Len(t, rels.Relationships, 1)
	assert.Equal(t, 10, rels.Relationships[0].Strength)

	status, env = call(t, r, "POST", "/v1/events", map[string]any{
		"id": "e1", "name": "Arrival", "timestamp": map[string]any{"story_day": 1},
		"involved_entity_ids": []string{"a"},
	})
	require.Equal(t, http.StatusCreated, status)
	ev := decode[struct {
		InvolvedEntities []struct {
			Name string `json:"name"`
		} `json:"involved_entities"`
	}](t, env.Data)
	require.Len(t, ev.InvolvedEntities, 1)
	assert.Equal(t, "Aria", ev.InvolvedEntities[0].Name)

	status, _ = call(t, r, "POST", "/v1/events", map[string]any{"id": "e2", "name": "Departure", "timestamp": map[string]any{"story_day": 3}})
	require.Equal(t, http.StatusCreated, status)

	status, _ = call(t, r, "POST", "/v1/events/e2/dependencies", map[string]any{"target_event_id": "e1", "type": "must_happen_after"})
	require.Equal(t, http.StatusNoContent, status)

	status, env = call(t, r, "GET", "/v1/entities/a/events", nil)
	require.Equal(t, http.StatusOK, status)
	evs := decode[struct {
		Events []map[string]any `json:"events"`
	}](t, env.Data)
	assert.Len(t, evs.Events, 1)

	status, env = call(t, r, "POST", "/v1/events/query", map[string]any{"group_by": "scope"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"key":"story"`)

	status, env = call(t, r, "POST", "/v1/consistency/analyze", nil)
	require.Equal(t, http.StatusOK, status)
	report := decode[consistency.Report](t, env.Data)
	assert.Equal(t, 2, report.EventsAnalyzed)

	status, env = call(t, r, "GET", "/v1/search?q=aria", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"id":"a"`)
}

func TestWorldRulesEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	status, _ := call(t, r, "PUT", "/v1/world-rules/no-magic", map[string]any{
		"name": "No magic", "scope": "global", "enforcement_level": "strict", "keywords": []string{"spell"},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, r, "PUT", "/v1/world-rules/bad", map[string]any{"name": "Bad", "enforcement_level": "sometimes"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = call(t, r, "DELETE", "/v1/world-rules/no-magic", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, r, "DELETE", "/v1/world-rules/no-magic", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSnapshotWithoutStorage(t *testing.T) {
	r, svc := newTestRouter(t, nil)

	status, _ := call(t, r, "POST", "/v1/snapshot/save", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = call(t, r, "GET", "/v1/snapshot/revisions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, env := call(t, r, "GET", "/v1/snapshot", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"world_id":"test"`)

	status, _ = call(t, r, "POST", "/v1/snapshot/restore", map[string]any{
		"version": 1, "revision": 7,
		"entities": []map[string]any{{"id": "x", "type": "item", "name": "Lantern", "tags": []string{}}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, svc.Stats().Entities)
}

func TestJWTProtectsWrites(t *testing.T) {
	r, _ := newTestRouter(t, func(cfg *config.Config) {
		cfg.Security.JWT = config.JWTConfig{Enabled: true, Secret: "k", Issuer: "lore"}
	})

	status, _ := call(t, r, "GET", "/v1/entities", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, r, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	jwt := utils.NewJWTManager("k", "lore")
	reader, err := jwt.GenerateToken("r", utils.RoleReader, time.Hour)
	require.NoError(t, err)

	status, _ = call(t, r, "GET", "/v1/entities", nil, "Authorization", "Bearer "+reader)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, r, "POST", "/v1/entities", map[string]any{"type": "item", "name": "Key"}, "Authorization", "Bearer "+reader)
	assert.Equal(t, http.StatusForbidden, status)
}
