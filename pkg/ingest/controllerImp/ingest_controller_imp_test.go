package controllerImp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"umbra/entities"
	"umbra/pkg/ingest/service"
)

type fakeSvc struct{ seeded string }

func (f *fakeSvc) Run(context.Context, string) (service.RunReport, error) {
	return service.RunReport{}, nil
}

func (f *fakeSvc) IngestURL(_ context.Context, in service.URLInput) (*entities.Publication, error) {
	switch in.URL {
	case "http://localhost/":
		return nil, fmt.Errorf("%w: local host", service.ErrURLRejected)
	case "https://example.org/dup":
		return nil, service.ErrDuplicate
	case "https://example.org/down":
		return nil, fmt.Errorf("%w: status 503", service.ErrFetch)
	case "":
		return nil, service.ErrInvalidInput
	}
	return &entities.Publication{PublicationID: 5, Title: "T", SourceURL: in.URL, ProcessingStatus: entities.StatusCompleted}, nil
}

func (f *fakeSvc) SeedFromCSV(_ context.Context, content string) (service.SeedResult, error) {
	f.seeded = content
	if content == "" {
		return service.SeedResult{Error: "Empty or invalid CSV."}, nil
	}
	return service.SeedResult{Success: true, Seeded: 1, TotalRecords: 1}, nil
}

func newServer(svc service.IngestService) *echo.Echo {
	e := echo.New()
	h := New(svc)
	e.POST("/api/ingest/url", h.IngestURL)
	e.POST("/api/ingest/seed", h.Seed)
	return e
}

func post(e *echo.Echo, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIngestURL_StatusMapping(t *testing.T) {
	e := newServer(&fakeSvc{})
	cases := []struct {
		url  string
		want int
	}{
		{"https://example.org/paper", http.StatusCreated},
		{"http://localhost/", http.StatusForbidden},
		{"https://example.org/dup", http.StatusConflict},
		{"https://example.org/down", http.StatusBadGateway},
		{"", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := post(e, "/api/ingest/url", echo.MIMEApplicationJSON, `{"url":"`+tc.url+`"}`)
		assert.Equal(t, tc.want, rec.Code, tc.url)
	}

	rec := post(e, "/api/ingest/url", echo.MIMEApplicationJSON, `{"url":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeed_RawAndJSONBodies(t *testing.T) {
	svc := &fakeSvc{}
	e := newServer(svc)

	rec := post(e, "/api/ingest/seed", "text/csv", "title\nA\n")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "title\nA\n", svc.seeded)
	assert.JSONEq(t, `{"success":true,"seeded":1,"skipped":0,"total_records":1}`, rec.Body.String())

	rec = post(e, "/api/ingest/seed", echo.MIMEApplicationJSON, `{"csv_content":"title\nB\n"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "title\nB\n", svc.seeded)

	rec = post(e, "/api/ingest/seed", "text/csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"seeded":0,"skipped":0,"total_records":0,"error":"Empty or invalid CSV."}`, rec.Body.String())
}
