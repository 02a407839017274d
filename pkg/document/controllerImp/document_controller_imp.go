package controllerImp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"umbra/pkg/ai"
	"umbra/pkg/document/service"
	"umbra/pkg/middleware"
	searchservice "umbra/pkg/search/service"
)

type DocumentCtrl struct{ s service.DocumentService }

func New(s service.DocumentService) *DocumentCtrl { return &DocumentCtrl{s: s} }

func (h *DocumentCtrl) Create(c echo.Context) error {
	var in service.CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	d, err := h.s.Create(c.Request().Context(), in, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DocumentCtrl) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	d, err := h.s.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DocumentCtrl) UpdateContent(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	var body struct {
		Content *string `json:"content"`
	}
	if err := c.Bind(&body); err != nil || body.Content == nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "content is required"})
	}
	d, err := h.s.UpdateContent(c.Request().Context(), id, *body.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DocumentCtrl) SuggestCitations(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	var body struct {
		Context string `json:"context"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	res, err := h.s.SuggestCitations(c.Request().Context(), id, body.Context)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *DocumentCtrl) ReviewSuggestion(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	s, err := h.s.ReviewSuggestion(c.Request().Context(), id, body.Status, middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func parseID(c echo.Context) (uint, error) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(v), err
}

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrSuggestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, searchservice.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ai.ErrDailyQuota):
		status = http.StatusTooManyRequests
	case ai.IsTransient(err), ai.IsFatal(err):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
