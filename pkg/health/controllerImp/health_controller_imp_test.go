package controllerImp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/database"
)

func get(t *testing.T, h *HealthCtrl) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	e.GET("/health", h.Health)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_OK(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	h := NewHealthCtrl(db, Status{
		LLMModel: "mock", EmbModel: "text-embedding-004", EmbEnabled: true,
		QueueDepth: func() int { return 3 }, QueueLimit: 256,
	})

	code, body := get(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"ok": true, "state": "up"}, body["status"])
	assert.Equal(t, map[string]any{"configured": false, "model": "mock"}, body["ai"])
	assert.Equal(t, map[string]any{"configured": true, "model": "text-embedding-004"}, body["embedder"])
	assert.Equal(t, map[string]any{"queued": float64(3), "capacity": float64(256)}, body["jobs"])
}

func TestHealth_NoDatabase(t *testing.T) {
	code, body := get(t, NewHealthCtrl(nil, Status{}))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, map[string]any{"ok": false, "err": "gorm db is nil"}, checks["database"])
	assert.Equal(t, "down", body["status"].(map[string]any)["state"])
}

func TestHealth_FullQueueIsDegraded(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	h := NewHealthCtrl(db, Status{QueueDepth: func() int { return 4 }, QueueLimit: 4})

	code, body := get(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"ok": true, "state": "degraded"}, body["status"])
	assert.Equal(t, map[string]any{"queued": float64(4), "capacity": float64(4), "full": true}, body["jobs"])
}
