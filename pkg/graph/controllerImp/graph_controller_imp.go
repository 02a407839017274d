package controllerImp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"umbra/pkg/graph/service"
	"umbra/pkg/jobs"
)

type GraphCtrl struct{ s service.GraphService }

func New(s service.GraphService) *GraphCtrl { return &GraphCtrl{s: s} }

func (h *GraphCtrl) Graph(c echo.Context) error {
	g, err := h.s.Graph(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GraphCtrl) Temporal(c echo.Context) error {
	g, err := h.s.GraphWithTemporalData(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GraphCtrl) Filter(c echo.Context) error {
	from := strings.TrimSpace(c.QueryParam("from"))
	to := strings.TrimSpace(c.QueryParam("to"))
	g, err := h.s.Filter(c.Request().Context(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GraphCtrl) SearchNodes(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ns, err := h.s.SearchNodes(c.Request().Context(), c.QueryParam("q"), strings.TrimSpace(c.QueryParam("type")), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": ns})
}

func (h *GraphCtrl) Neighbors(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	nb, err := h.s.Neighbors(c.Request().Context(), uint(id))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, nb)
}

func (h *GraphCtrl) Build(c echo.Context) error {
	j, err := h.s.ScheduleBuild(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{"job": j})
}

func (h *GraphCtrl) Layout(c echo.Context) error {
	var req service.LayoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	g, err := h.s.Layout(c.Request().Context(), req)
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
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
