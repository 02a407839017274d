package controllerImp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/entities"
	"umbra/pkg/graph/service"
	"umbra/pkg/jobs"
)

type fakeSvc struct {
	from, to string
	layout   service.LayoutRequest
	full     bool
}

func (f *fakeSvc) Build(context.Context) (*service.BuildReport, error) { return &service.BuildReport{}, nil }

func (f *fakeSvc) ScheduleBuild(context.Context) (jobs.Job, error) {
	if f.full {
		return jobs.Job{}, jobs.ErrQueueFull
	}
	return jobs.Job{ID: "b1", Kind: jobs.KindBuildGraph}, nil
}

func (f *fakeSvc) Graph(context.Context) (*service.Graph, error) {
	return &service.Graph{Nodes: []entities.KnowledgeNode{{NodeID: 1, Name: "Mice"}}, Edges: []entities.KnowledgeEdge{}}, nil
}

func (f *fakeSvc) GraphWithTemporalData(ctx context.Context) (*service.TemporalGraph, error) {
	g, _ := f.Graph(ctx)
	return &service.TemporalGraph{Graph: *g, PublicationDates: map[uint]string{3: "2020-01-01"}}, nil
}

func (f *fakeSvc) Filter(_ context.Context, from, to string) (*service.Graph, error) {
	f.from, f.to = from, to
	if from == "bad" {
		return nil, service.ErrInvalidInput
	}
	return &service.Graph{}, nil
}

func (f *fakeSvc) Neighbors(_ context.Context, id uint) (*service.Neighborhood, error) {
	if id != 1 {
		return nil, service.ErrNotFound
	}
	return &service.Neighborhood{Node: entities.KnowledgeNode{NodeID: 1}}, nil
}

func (f *fakeSvc) SearchNodes(context.Context, string, string, int) ([]entities.KnowledgeNode, error) {
	return []entities.KnowledgeNode{}, nil
}

func (f *fakeSvc) Layout(_ context.Context, req service.LayoutRequest) (*service.Graph, error) {
	f.layout = req
	return &service.Graph{}, nil
}

func (f *fakeSvc) Stats(context.Context) (*service.Stats, error) { return &service.Stats{}, nil }

func newServer(svc service.GraphService) *echo.Echo {
	e := echo.New()
	h := New(svc)
	e.GET("/api/graph", h.Graph)
	e.GET("/api/graph/temporal", h.Temporal)
	e.GET("/api/graph/filter", h.Filter)
	e.GET("/api/graph/nodes", h.SearchNodes)
	e.GET("/api/graph/nodes/:id/neighbors", h.Neighbors)
	e.POST("/api/graph/build", h.Build)
	e.POST("/api/graph/layout", h.Layout)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGraphCtrl_Reads(t *testing.T) {
	svc := &fakeSvc{}
	e := newServer(svc)

	rec := do(e, http.MethodGet, "/api/graph/temporal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tg))
	assert.Contains(t, tg, "nodes")
	assert.Equal(t, map[string]any{"3": "2020-01-01"}, tg["publicationDates"])

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/graph/filter?from=2019-01-01&to=%202021-01-01", "").Code)
	assert.Equal(t, "2019-01-01", svc.from)
	assert.Equal(t, "2021-01-01", svc.to)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/graph/filter?from=bad", "").Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/graph/nodes/1/neighbors", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/graph/nodes/2/neighbors", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/graph/nodes/x/neighbors", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/graph/nodes?q=mice&type=organism", "").Code)
}

func TestGraphCtrl_BuildAndLayout(t *testing.T) {
	svc := &fakeSvc{}
	e := newServer(svc)

	rec := do(e, http.MethodPost, "/api/graph/build", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"build_graph"`)

	svc.full = true
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodPost, "/api/graph/build", "").Code)

	rec = do(e, http.MethodPost, "/api/graph/layout", `{"width":1000,"reset":true,"pinned":[4]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000.0, svc.layout.Width)
	assert.True(t, svc.layout.Reset)
	assert.Equal(t, []uint{4}, svc.layout.Pinned)

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/graph/layout", "").Code)
}
