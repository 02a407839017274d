package controllerImp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"umbra/pkg/ai"
	"umbra/pkg/gaps/service"
	"umbra/pkg/middleware"
)

type GapCtrl struct{ s service.GapService }

func New(s service.GapService) *GapCtrl { return &GapCtrl{s: s} }

func (h *GapCtrl) Identify(c echo.Context) error {
	gs, err := h.s.Identify(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": gs})
}

func (h *GapCtrl) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	gs, err := h.s.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("status")), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": gs})
}

func (h *GapCtrl) Upvote(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	g, err := h.s.Upvote(c.Request().Context(), uint(id), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GapCtrl) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	g, err := h.s.UpdateStatus(c.Request().Context(), uint(id), body.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrBadModelOutput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrDailyQuota):
		status = http.StatusTooManyRequests
	case ai.IsTransient(err), ai.IsFatal(err):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
