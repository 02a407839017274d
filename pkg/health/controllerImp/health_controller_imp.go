package controllerImp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

var appStart = time.Now()

// Status describes the optional collaborators next to the database check.
type Status struct {
	LLMModel   string
	LLMEnabled bool
	EmbModel   string
	EmbEnabled bool
	EventsOn   bool
	QueueDepth func() int
	QueueLimit int
}

type HealthCtrl struct {
	db *gorm.DB
	st Status
}

func NewHealthCtrl(db *gorm.DB, st Status) *HealthCtrl { return &HealthCtrl{db: db, st: st} }

type check struct {
	OK  bool   `json:"ok"`
	Err string `json:"err,omitempty"`
}

type provider struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

type queue struct {
	Queued   int  `json:"queued"`
	Capacity int  `json:"capacity"`
	Full     bool `json:"full,omitempty"`
}

func (h *HealthCtrl) pingDB(ctx context.Context) error {
	if h.db == nil {
		return errors.New("gorm db is nil")
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return fmt.Errorf("db.DB(): %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health answers 503 only when the database is unreachable. A saturated job
// queue is reported as degraded with 200.
func (h *HealthCtrl) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	db := check{OK: true}
	if err := h.pingDB(ctx); err != nil {
		db = check{Err: err.Error()}
	}

	q := queue{Capacity: h.st.QueueLimit}
	if h.st.QueueDepth != nil {
		q.Queued = h.st.QueueDepth()
	}
	q.Full = q.Capacity > 0 && q.Queued >= q.Capacity

	state, code := "up", http.StatusOK
	switch {
	case !db.OK:
		state, code = "down", http.StatusServiceUnavailable
	case q.Full:
		state = "degraded"
	}

	return c.JSON(code, map[string]any{
		"status":     map[string]any{"ok": db.OK, "state": state},
		"uptime_sec": int(time.Since(appStart).Seconds()),
		"checks":     map[string]check{"database": db},
		"ai":         provider{Configured: h.st.LLMEnabled, Model: h.st.LLMModel},
		"embedder":   provider{Configured: h.st.EmbEnabled, Model: h.st.EmbModel},
		"events":     map[string]bool{"nats": h.st.EventsOn},
		"jobs":       q,
		"time":       time.Now().Format(time.RFC3339),
	})
}
