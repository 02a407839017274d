package controllerImp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"umbra/pkg/ai"
	"umbra/pkg/middleware"
	"umbra/pkg/search/service"
)

type SearchCtrl struct{ s service.SearchService }

func New(s service.SearchService) *SearchCtrl { return &SearchCtrl{s: s} }

func (h *SearchCtrl) Search(c echo.Context) error {
	var req service.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	req.UserID = middleware.UserID(c)
	res, err := h.s.Search(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *SearchCtrl) History(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	qs, err := h.s.History(c.Request().Context(), middleware.UserID(c), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": qs})
}

func (h *SearchCtrl) Click(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid id"})
	}
	var body struct {
		PublicationID uint `json:"publication_id"`
	}
	if err := c.Bind(&body); err != nil || body.PublicationID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "publication_id is required"})
	}
	if err := h.s.RecordClick(c.Request().Context(), uint(id), body.PublicationID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ai.ErrDailyQuota):
		status = http.StatusTooManyRequests
	case ai.IsTransient(err), ai.IsFatal(err):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
