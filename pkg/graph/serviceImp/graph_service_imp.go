package serviceImp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	"umbra/pkg/events"
	"umbra/pkg/graph/layout"
	"umbra/pkg/graph/repository"
	"umbra/pkg/graph/service"
	"umbra/pkg/jobs"
	pubrepo "umbra/pkg/publication/repository"
	"umbra/pkg/textkit"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	statsNames         = 50
)

type Svc struct {
	r           repository.GraphRepository
	pubs        pubrepo.PublicationRepository
	llm         ai.Client
	prompts     ai.Prompts
	q           jobs.Enqueuer
	ev          events.Publisher
	log         *slog.Logger
	concurrency int
}

func New(r repository.GraphRepository, pubs pubrepo.PublicationRepository, llm ai.Client, prompts ai.Prompts,
	q jobs.Enqueuer, ev events.Publisher, log *slog.Logger) *Svc {
	if ev == nil {
		ev = events.NewNoop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Svc{
		r: r, pubs: pubs, llm: llm, prompts: prompts, q: q, ev: ev,
		log:         log.With("component", "graph"),
		concurrency: 4,
	}
}

var _ service.GraphService = (*Svc)(nil)

func (s *Svc) ScheduleBuild(_ context.Context) (jobs.Job, error) {
	return s.q.Enqueue(jobs.KindBuildGraph, 0)
}

func (s *Svc) Graph(ctx context.Context) (*service.Graph, error) {
	nodes, err := s.r.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.r.Edges(ctx)
	if err != nil {
		return nil, err
	}
	return &service.Graph{Nodes: nonNil(nodes), Edges: nonNil(edges)}, nil
}

func (s *Svc) GraphWithTemporalData(ctx context.Context) (*service.TemporalGraph, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := s.pubs.PublicationDates(ctx, edgePublications(g.Edges))
	if err != nil {
		return nil, err
	}
	return &service.TemporalGraph{Graph: *g, PublicationDates: dates}, nil
}

func edgePublications(edges []entities.KnowledgeEdge) []uint {
	seen := map[uint]bool{}
	var ids []uint
	for _, e := range edges {
		for _, id := range e.PublicationIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (s *Svc) Filter(ctx context.Context, from, to string) (*service.Graph, error) {
	if from == "" && to == "" {
		return s.Graph(ctx)
	}
	tFrom, okFrom := citation.ParseDate(from)
	if from != "" && !okFrom {
		return nil, fmt.Errorf("%w: unreadable from date %q", service.ErrInvalidInput, from)
	}
	tTo, okTo := citation.ParseDate(to)
	if to != "" && !okTo {
		return nil, fmt.Errorf("%w: unreadable to date %q", service.ErrInvalidInput, to)
	}
	if okFrom && okTo && tTo.Before(tFrom) {
		return nil, fmt.Errorf("%w: from is after to", service.ErrInvalidInput)
	}

	tg, err := s.GraphWithTemporalData(ctx)
	if err != nil {
		return nil, err
	}
	inRange := func(pubID uint) bool {
		d, ok := citation.ParseDate(tg.PublicationDates[pubID])
		if !ok {
			return false
		}
		return !(okFrom && d.Before(tFrom)) && !(okTo && d.After(tTo))
	}

	out := &service.Graph{Nodes: []entities.KnowledgeNode{}, Edges: []entities.KnowledgeEdge{}}
	keep := map[uint]bool{}
	for _, e := range tg.Edges {
		for _, id := range e.PublicationIDs {
			if inRange(id) {
				out.Edges = append(out.Edges, e)
				keep[e.SourceNodeID] = true
				keep[e.TargetNodeID] = true
				break
			}
		}
	}
	for _, n := range tg.Nodes {
		if keep[n.NodeID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out, nil
}

func (s *Svc) Neighbors(ctx context.Context, nodeID uint) (*service.Neighborhood, error) {
	n, err := s.r.FindNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	edges, err := s.r.EdgesOf(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	var ids []uint
	seen := map[uint]bool{nodeID: true}
	for _, e := range edges {
		for _, id := range []uint{e.SourceNodeID, e.TargetNodeID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	nbrs, err := s.r.NodesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &service.Neighborhood{Node: *n, Neighbors: nonNil(nbrs), Edges: nonNil(edges)}, nil
}

func (s *Svc) SearchNodes(ctx context.Context, q, nodeType string, limit int) ([]entities.KnowledgeNode, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)
	ns, err := s.r.SearchNodes(ctx, textkit.Canonical(q), nodeType, limit)
	return nonNil(ns), err
}

func (s *Svc) Layout(ctx context.Context, req service.LayoutRequest) (*service.Graph, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	pinned := map[uint]bool{}
	for _, id := range req.Pinned {
		pinned[id] = true
	}
	nodes := make([]layout.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = layout.Node{ID: n.NodeID}
		if !req.Reset || pinned[n.NodeID] {
			nodes[i].X, nodes[i].Y = n.XPosition, n.YPosition
			nodes[i].Pinned = pinned[n.NodeID]
		}
	}
	links := make([]layout.Link, len(g.Edges))
	for i, e := range g.Edges {
		links[i] = layout.Link{Source: e.SourceNodeID, Target: e.TargetNodeID}
	}

	pos := layout.Run(nodes, links, req.Options())
	stored := make(map[uint][2]float64, len(pos))
	for i := range g.Nodes {
		p := pos[g.Nodes[i].NodeID]
		x, y := p.X, p.Y
		g.Nodes[i].XPosition, g.Nodes[i].YPosition = &x, &y
		stored[g.Nodes[i].NodeID] = [2]float64{x, y}
	}
	if err := s.r.UpdatePositions(ctx, stored); err != nil {
		return nil, err
	}
	s.log.Info("layout applied", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

func (s *Svc) Stats(ctx context.Context) (*service.Stats, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return nil, err
	}
	nodes := append([]entities.KnowledgeNode(nil), g.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Frequency > nodes[j].Frequency })

	st := &service.Stats{
		Organisms:   []string{},
		Conditions:  []string{},
		Processes:   []string{},
		TotalNodes:  len(g.Nodes),
		TotalEdges:  len(g.Edges),
		NodesByType: map[string]int{},
	}
	for _, n := range nodes {
		st.NodesByType[n.NodeType]++
		switch n.NodeType {
		case entities.NodeOrganism:
			st.Organisms = appendCapped(st.Organisms, n.Name)
		case entities.NodeExperimentalCondition:
			st.Conditions = appendCapped(st.Conditions, n.Name)
		case entities.NodeBiologicalProcess:
			st.Processes = appendCapped(st.Processes, n.Name)
		}
	}
	return st, nil
}

func appendCapped(list []string, v string) []string {
	if len(list) >= statsNames {
		return list
	}
	return append(list, v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
