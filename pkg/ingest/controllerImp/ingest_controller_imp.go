package controllerImp

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"umbra/pkg/ingest/service"
)

// maxSeedBytes caps the CSV accepted by Seed.
const maxSeedBytes = 10 << 20

type IngestCtrl struct{ s service.IngestService }

func New(s service.IngestService) *IngestCtrl { return &IngestCtrl{s: s} }

func (h *IngestCtrl) IngestURL(c echo.Context) error {
	var in service.URLInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
	}
	p, err := h.s.IngestURL(c.Request().Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Seed takes the CSV either as the raw request body or as {"csv_content": "..."}.
func (h *IngestCtrl) Seed(c echo.Context) error {
	var content string
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var body struct {
			CSVContent string `json:"csv_content"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json: " + err.Error()})
		}
		content = body.CSVContent
	} else {
		b, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSeedBytes))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "read body: " + err.Error()})
		}
		content = string(b)
	}
	res, err := h.s.SeedFromCSV(c.Request().Context(), content)
	if err != nil {
		return fail(c, err)
	}
	if !res.Success {
		return c.JSON(http.StatusBadRequest, res)
	}
	return c.JSON(http.StatusOK, res)
}

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrURLRejected):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, service.ErrFetch):
		status = http.StatusBadGateway
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}
