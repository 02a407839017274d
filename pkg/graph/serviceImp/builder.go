package serviceImp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	"umbra/pkg/events"
	"umbra/pkg/graph/service"
	"umbra/pkg/textkit"
)

// pubEntities is one publication's slice of the graph: its entity node ids by
// canonical name and the display names shown to the model.
type pubEntities struct {
	pub   entities.Publication
	ids   map[string]uint
	names []string
}

type relation struct {
	source, target uint
	relType        string
	confidence     float64
}

func (s *Svc) Build(ctx context.Context) (*service.BuildReport, error) {
	start := time.Now()
	pubs, err := s.pubs.ListByStatus(ctx, entities.StatusCompleted)
	if err != nil {
		return nil, err
	}

	rep := &service.BuildReport{}
	work := make([]*pubEntities, 0, len(pubs))
	for i := range pubs {
		pe, err := s.upsertNodes(ctx, &pubs[i], rep)
		if err != nil {
			return rep, fmt.Errorf("nodes for publication %d: %w", pubs[i].PublicationID, err)
		}
		if len(pe.names) == 0 {
			continue
		}
		rep.Publications++
		work = append(work, pe)
	}

	// model calls fan out; edge writes below stay in publication order
	rels := make([][]relation, len(work))
	var failures atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pe := range work {
		g.Go(func() error {
			r, err := s.relationships(gctx, pe)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures.Add(1)
				s.log.Warn("relationship inference failed", "publication_id", pe.pub.PublicationID, "err", err)
				return nil
			}
			rels[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	rep.Failures = int(failures.Load())

	for i, pe := range work {
		for _, rel := range rels[i] {
			rep.Relationships++
			if err := s.upsertEdge(ctx, pe, rel, rep); err != nil {
				return rep, fmt.Errorf("edge for publication %d: %w", pe.pub.PublicationID, err)
			}
		}
	}

	if err := s.recomputeImportance(ctx); err != nil {
		return rep, err
	}

	if err := s.ev.Publish(ctx, events.SubjectGraphBuilt, rep); err != nil {
		s.log.Warn("publish graph event", "err", err)
	}
	s.log.Info("graph built",
		"publications", rep.Publications,
		"nodes_created", rep.NodesCreated, "nodes_updated", rep.NodesUpdated,
		"edges_created", rep.EdgesCreated, "edges_updated", rep.EdgesUpdated,
		"failures", rep.Failures, "took", time.Since(start))
	return rep, nil
}

type category struct {
	nodeType string
	names    []string
}

func categories(p *entities.Publication) []category {
	return []category{
		{entities.NodeOrganism, p.Organisms},
		{entities.NodeExperimentalCondition, p.ExperimentalConditions},
		{entities.NodeBiologicalProcess, p.BiologicalProcesses},
		{entities.NodeSpaceEnvironment, p.SpaceEnvironments},
	}
}

func (s *Svc) upsertNodes(ctx context.Context, p *entities.Publication, rep *service.BuildReport) (*pubEntities, error) {
	pe := &pubEntities{pub: *p, ids: map[string]uint{}}
	for _, cat := range categories(p) {
		for _, name := range cat.names {
			display := strings.Join(strings.Fields(name), " ")
			canon := textkit.Canonical(name)
			if canon == "" {
				continue
			}
			if _, seen := pe.ids[canon]; seen {
				continue
			}

			n, err := s.r.FindNodeByCanonical(ctx, canon)
			switch {
			case errors.Is(err, service.ErrNotFound):
				n = &entities.KnowledgeNode{
					NodeType:       cat.nodeType,
					Name:           display,
					CanonicalName:  canon,
					Aliases:        []string{},
					Frequency:      1,
					Importance:     service.ImportanceFloor,
					PublicationIDs: []uint{p.PublicationID},
				}
				if err := s.r.SaveNode(ctx, n); err != nil {
					return nil, err
				}
				rep.NodesCreated++
			case err != nil:
				return nil, err
			default:
				if mergeNode(n, display, cat.nodeType, p.PublicationID) {
					if err := s.r.SaveNode(ctx, n); err != nil {
						return nil, err
					}
					rep.NodesUpdated++
				}
			}
			pe.ids[canon] = n.NodeID
			pe.names = append(pe.names, display)
		}
	}
	return pe, nil
}

// mergeNode folds one more mention into n and reports whether anything changed.
func mergeNode(n *entities.KnowledgeNode, display, nodeType string, pubID uint) bool {
	changed := false
	if display != n.Name && !slices.Contains(n.Aliases, display) {
		n.Aliases = append(n.Aliases, display)
		changed = true
	}
	if !slices.Contains(n.PublicationIDs, pubID) {
		n.PublicationIDs = append(n.PublicationIDs, pubID)
		n.Frequency = len(n.PublicationIDs)
		changed = true
	}
	if n.NodeType == entities.NodeUnknown && nodeType != "" {
		n.NodeType = nodeType
		changed = true
	}
	return changed
}

func (s *Svc) relationships(ctx context.Context, pe *pubEntities) ([]relation, error) {
	reply, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskFindRelationships,
		SystemPrompt: s.prompts.RelationshipFinder,
		UserPrompt:   ai.RelationshipUserPrompt(pe.names, pe.pub.Abstract),
		Temperature:  ai.Float(0.2),
	})
	if err != nil {
		return nil, err
	}
	var raw [][]any
	if err := ai.DecodeArray(reply, &raw); err != nil {
		return nil, err
	}
	return parseRelations(raw, pe.ids), nil
}

// parseRelations keeps well-formed [source, type, target, confidence] tuples that
// name known entities and a known relationship type. Missing confidence is 0.5.
func parseRelations(raw [][]any, ids map[string]uint) []relation {
	var out []relation
	seen := map[relation]bool{}
	for _, item := range raw {
		if len(item) < 3 {
			continue
		}
		src, ok1 := item[0].(string)
		typ, ok2 := item[1].(string)
		tgt, ok3 := item[2].(string)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		typ = normalizeRelType(typ)
		if !entities.ValidRelationship(typ) {
			continue
		}
		sid, ok1 := ids[textkit.Canonical(src)]
		tid, ok2 := ids[textkit.Canonical(tgt)]
		if !ok1 || !ok2 || sid == tid {
			continue
		}
		conf := 0.5
		if len(item) > 3 {
			v, ok := item[3].(float64)
			if !ok {
				continue
			}
			conf = min(max(v, 0), 1)
		}
		key := relation{source: sid, target: tid, relType: typ}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, relation{source: sid, target: tid, relType: typ, confidence: conf})
	}
	return out
}

func normalizeRelType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(t)
}

func (s *Svc) upsertEdge(ctx context.Context, pe *pubEntities, rel relation, rep *service.BuildReport) error {
	pubID := pe.pub.PublicationID
	date := strings.TrimSpace(pe.pub.PublicationDate)
	snippet := textkit.Truncate(strings.TrimSpace(pe.pub.Abstract), service.SnippetChars)

	e, err := s.r.FindEdge(ctx, rel.source, rel.target, rel.relType)
	switch {
	case errors.Is(err, service.ErrNotFound):
		e = &entities.KnowledgeEdge{
			SourceNodeID:     rel.source,
			TargetNodeID:     rel.target,
			RelationshipType: rel.relType,
			Confidence:       rel.confidence,
			PublicationIDs:   []uint{pubID},
			EvidenceCount:    1,
			ContextSnippets:  []string{},
			FirstObserved:    date,
			LastObserved:     date,
		}
		if snippet != "" {
			e.ContextSnippets = append(e.ContextSnippets, snippet)
		}
		e.Strength = strength(e.EvidenceCount)
		if err := s.r.SaveEdge(ctx, e); err != nil {
			return err
		}
		rep.EdgesCreated++
		return nil
	case err != nil:
		return err
	}

	if slices.Contains(e.PublicationIDs, pubID) {
		return nil
	}
	e.PublicationIDs = append(e.PublicationIDs, pubID)
	e.EvidenceCount = len(e.PublicationIDs)
	n := float64(e.EvidenceCount)
	e.Confidence = (e.Confidence*(n-1) + rel.confidence) / n
	e.Strength = strength(e.EvidenceCount)
	if snippet != "" && len(e.ContextSnippets) < service.MaxSnippets && !slices.Contains(e.ContextSnippets, snippet) {
		e.ContextSnippets = append(e.ContextSnippets, snippet)
	}
	if date != "" {
		if e.FirstObserved == "" || dateBefore(date, e.FirstObserved) {
			e.FirstObserved = date
		}
		if e.LastObserved == "" || dateBefore(e.LastObserved, date) {
			e.LastObserved = date
		}
	}
	if err := s.r.SaveEdge(ctx, e); err != nil {
		return err
	}
	rep.EdgesUpdated++
	return nil
}

func strength(evidence int) float64 {
	return min(1, float64(evidence)/service.StrengthEvidence)
}

// dateBefore compares parsed dates when both parse and the raw strings otherwise.
func dateBefore(a, b string) bool {
	ta, okA := citation.ParseDate(a)
	tb, okB := citation.ParseDate(b)
	if okA && okB {
		return ta.Before(tb)
	}
	return a < b
}

// recomputeImportance scores every node by degree plus frequency, scaled so the
// top node is 1 and none falls below the floor.
func (s *Svc) recomputeImportance(ctx context.Context) error {
	nodes, err := s.r.Nodes(ctx)
	if err != nil {
		return err
	}
	edges, err := s.r.Edges(ctx)
	if err != nil {
		return err
	}
	degree := map[uint]int{}
	for _, e := range edges {
		degree[e.SourceNodeID]++
		degree[e.TargetNodeID]++
	}
	top := 0
	for _, n := range nodes {
		top = max(top, degree[n.NodeID]+n.Frequency)
	}
	out := make(map[uint]float64, len(nodes))
	for _, n := range nodes {
		v := service.ImportanceFloor
		if top > 0 {
			v = max(v, float64(degree[n.NodeID]+n.Frequency)/float64(top))
		}
		out[n.NodeID] = v
	}
	return s.r.UpdateImportance(ctx, out)
}
