package service

import (
	"context"
	"errors"

	"umbra/entities"
	"umbra/pkg/graph/layout"
	"umbra/pkg/graph/repository"
	"umbra/pkg/jobs"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

const (
	MaxSnippets      = 5
	SnippetChars     = 240
	StrengthEvidence = 5
	ImportanceFloor  = 0.1
)

// BuildReport counts what one pass over the completed publications changed.
type BuildReport struct {
	Publications  int `json:"publications"`
	NodesCreated  int `json:"nodesCreated"`
	NodesUpdated  int `json:"nodesUpdated"`
	EdgesCreated  int `json:"edgesCreated"`
	EdgesUpdated  int `json:"edgesUpdated"`
	Relationships int `json:"relationships"`
	Failures      int `json:"failures"`
}

type Graph struct {
	Nodes []entities.KnowledgeNode `json:"nodes"`
	Edges []entities.KnowledgeEdge `json:"edges"`
}

type TemporalGraph struct {
	Graph
	PublicationDates map[uint]string `json:"publicationDates"`
}

type Neighborhood struct {
	Node      entities.KnowledgeNode   `json:"node"`
	Neighbors []entities.KnowledgeNode `json:"neighbors"`
	Edges     []entities.KnowledgeEdge `json:"edges"`
}

// Stats summarises the graph for gap analysis.
type Stats struct {
	Organisms   []string       `json:"organisms"`
	Conditions  []string       `json:"conditions"`
	Processes   []string       `json:"processes"`
	TotalNodes  int            `json:"totalNodes"`
	TotalEdges  int            `json:"totalEdges"`
	NodesByType map[string]int `json:"nodesByType"`
}

type LayoutRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ticks  int     `json:"ticks"`
	// Reset ignores stored positions and starts from the spiral.
	Reset bool `json:"reset"`
	// Pinned nodes keep their stored position.
	Pinned []uint `json:"pinned"`
}

func (r LayoutRequest) Options() layout.Options {
	o := layout.DefaultOptions()
	if r.Width > 0 {
		o.Width = r.Width
	}
	if r.Height > 0 {
		o.Height = r.Height
	}
	if r.Ticks > 0 {
		o.Ticks = r.Ticks
	}
	return o
}

type GraphService interface {
	Build(ctx context.Context) (*BuildReport, error)
	ScheduleBuild(ctx context.Context) (jobs.Job, error)
	Graph(ctx context.Context) (*Graph, error)
	GraphWithTemporalData(ctx context.Context) (*TemporalGraph, error)
	// Filter keeps edges backed by a publication dated within [from, to]; an empty
	// bound is open.
	Filter(ctx context.Context, from, to string) (*Graph, error)
	Neighbors(ctx context.Context, nodeID uint) (*Neighborhood, error)
	SearchNodes(ctx context.Context, q, nodeType string, limit int) ([]entities.KnowledgeNode, error)
	Layout(ctx context.Context, req LayoutRequest) (*Graph, error)
	Stats(ctx context.Context) (*Stats, error)
}
