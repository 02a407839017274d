package controllerImp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"umbra/pkg/ai"
	"umbra/pkg/jobs"
	"umbra/pkg/publication/repository"
	"umbra/pkg/publication/service"
	"umbra/pkg/textkit"
)

type PublicationCtrl struct{ s service.PublicationService }

func New(s service.PublicationService) *PublicationCtrl { return &PublicationCtrl{s: s} }

func (h *PublicationCtrl) List(c echo.Context) error {
	f := repository.ListFilter{
		Query:        c.QueryParam("q"),
		Organisms:    textkit.SplitList(c.QueryParam("organism"), ","),
		Environments: textkit.SplitList(c.QueryParam("environment"), ","),
		Status:       strings.TrimSpace(c.QueryParam("status")),
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	page, err := h.s.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *PublicationCtrl) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	p, err := h.s.Detail(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PublicationCtrl) Create(c echo.Context) error {
	var in service.CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	p, err := h.s.Create(c.Request().Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PublicationCtrl) Process(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	j, err := h.s.ScheduleProcessing(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{"job": j})
}

func (h *PublicationCtrl) Summarize(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	sum, err := h.s.Summarize(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"publication_id": id, "summary": sum})
}

func (h *PublicationCtrl) Citation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	cit, err := h.s.Citation(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"publication_id": id, "citation": cit})
}

func parseID(c echo.Context) (uint, error) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(v), err
}

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrBadModelOutput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrDailyQuota):
		status = http.StatusTooManyRequests
	case ai.IsTransient(err), ai.IsFatal(err):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
