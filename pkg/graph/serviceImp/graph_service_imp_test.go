package serviceImp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/database"
	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/events"
	"umbra/pkg/graph/repository"
	"umbra/pkg/graph/repositoryImp"
	"umbra/pkg/graph/service"
	"umbra/pkg/jobs"
	pubrepo "umbra/pkg/publication/repository"
	pubrepoImp "umbra/pkg/publication/repositoryImp"
)

// routedLLM answers by the first key found in the user prompt.
type routedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   int
}

func (l *routedLLM) Model() string { return "stub" }

func (l *routedLLM) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	for k, err := range l.errs {
		if strings.Contains(req.UserPrompt, k) {
			return "", err
		}
	}
	for k, v := range l.replies {
		if strings.Contains(req.UserPrompt, k) {
			return v, nil
		}
	}
	return "[]", nil
}

type fakeQueue struct{ jobs []jobs.Job }

func (f *fakeQueue) Enqueue(kind jobs.Kind, id uint) (jobs.Job, error) {
	j := jobs.Job{ID: "j1", Kind: kind, PublicationID: id}
	f.jobs = append(f.jobs, j)
	return j, nil
}

type fixture struct {
	pubs pubrepo.PublicationRepository
	repo repository.GraphRepository
	llm  *routedLLM
	q    *fakeQueue
	ev   *events.Memory
	svc  *Svc
	p1   *entities.Publication
	p2   *entities.Publication
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	f := &fixture{
		pubs: pubrepoImp.New(db),
		repo: repositoryImp.New(db),
		llm: &routedLLM{replies: map[string]string{
			"reduces bone density": `[["Microgravity","affects","bone density",0.8],["Mice","studied_in","Nowhere",0.9],["Mice","eats","Microgravity",0.5],["Mice","affects","Mice",0.5]]`,
			"ISS mice lose bone": "```json\n" + `[["microgravity", "Affects", "MICE", 1.4], ["ISS", "studied in", "mice"], ["Microgravity","affects","Bone Density",0.4],]` + "\n```",
		}},
		q:  &fakeQueue{},
		ev: events.NewMemory(),
	}
	f.svc = New(f.repo, f.pubs, f.llm, ai.DefaultPrompts(), f.q, f.ev, nil)

	ctx := context.Background()
	f.p1 = &entities.Publication{
		Title: "Bone in orbit", Abstract: "Microgravity reduces bone density in mice.", PublicationDate: "2019-01-01",
		Organisms: []string{"Mice"}, ExperimentalConditions: []string{"Microgravity"}, BiologicalProcesses: []string{"bone density"},
		ProcessingStatus: entities.StatusCompleted,
	}
	f.p2 = &entities.Publication{
		Title: "Station mice", Abstract: "ISS mice lose bone.", PublicationDate: "2022-06-01",
		Organisms: []string{"mice"}, ExperimentalConditions: []string{"microgravity"}, BiologicalProcesses: []string{"Bone  Density"},
		SpaceEnvironments: []string{"ISS"},
		ProcessingStatus:  entities.StatusCompleted,
	}
	pending := &entities.Publication{Title: "Later", Organisms: []string{"Yeast"}, ProcessingStatus: entities.StatusPending}
	for _, p := range []*entities.Publication{f.p1, f.p2, pending} {
		require.NoError(t, f.pubs.Create(ctx, p))
	}
	return f
}

func (f *fixture) node(t *testing.T, canonical string) *entities.KnowledgeNode {
	t.Helper()
	n, err := f.repo.FindNodeByCanonical(context.Background(), canonical)
	require.NoError(t, err)
	return n
}

func TestBuild_MergesNodesAndEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.svc.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.BuildReport{
		Publications: 2, NodesCreated: 4, NodesUpdated: 3,
		EdgesCreated: 3, EdgesUpdated: 1, Relationships: 4,
	}, *rep)

	mice := f.node(t, "mice")
	assert.Equal(t, "Mice", mice.Name)
	assert.Equal(t, entities.NodeOrganism, mice.NodeType)
	assert.Equal(t, []string{"mice"}, mice.Aliases)
	assert.Equal(t, 2, mice.Frequency)
	assert.Equal(t, []uint{f.p1.PublicationID, f.p2.PublicationID}, mice.PublicationIDs)
	assert.InDelta(t, 1.0, mice.Importance, 1e-9)

	bone := f.node(t, "bone density")
	assert.Equal(t, []string{"Bone Density"}, bone.Aliases)
	assert.InDelta(t, 0.75, bone.Importance, 1e-9)
	iss := f.node(t, "iss")
	assert.Equal(t, entities.NodeSpaceEnvironment, iss.NodeType)
	assert.InDelta(t, 0.5, iss.Importance, 1e-9)

	micro := f.node(t, "microgravity")
	e, err := f.repo.FindEdge(ctx, micro.NodeID, bone.NodeID, entities.RelAffects)
	require.NoError(t, err)
	assert.Equal(t, 2, e.EvidenceCount)
	assert.InDelta(t, 0.6, e.Confidence, 1e-9)
	assert.InDelta(t, 0.4, e.Strength, 1e-9)
	assert.Equal(t, []string{f.p1.Abstract, f.p2.Abstract}, e.ContextSnippets)
	assert.Equal(t, "2019-01-01", e.FirstObserved)
	assert.Equal(t, "2022-06-01", e.LastObserved)

	clamped, err := f.repo.FindEdge(ctx, micro.NodeID, mice.NodeID, entities.RelAffects)
	require.NoError(t, err)
	assert.Equal(t, 1.0, clamped.Confidence)
	studied, err := f.repo.FindEdge(ctx, iss.NodeID, mice.NodeID, entities.RelStudiedIn)
	require.NoError(t, err)
	assert.Equal(t, 0.5, studied.Confidence)
	assert.InDelta(t, 0.2, studied.Strength, 1e-9)

	require.Len(t, f.ev.Events(), 1)
	assert.Equal(t, events.SubjectGraphBuilt, f.ev.Events()[0].Subject)
}

func TestBuild_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Build(ctx)
	require.NoError(t, err)

	rep, err := f.svc.Build(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.NodesCreated+rep.NodesUpdated+rep.EdgesCreated+rep.EdgesUpdated)

	g, err := f.svc.Graph(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
	for _, e := range g.Edges {
		assert.LessOrEqual(t, e.EvidenceCount, 2)
	}
}

func TestBuild_ModelFailureIsCountedAndSkipped(t *testing.T) {
	f := newFixture(t)
	f.llm.errs = map[string]error{"ISS mice lose bone": ai.NewTransientError(errors.New("503"))}

	rep, err := f.svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failures)
	assert.Equal(t, 1, rep.EdgesCreated)
	assert.Equal(t, 4, rep.NodesCreated)
}

func TestBuild_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRelations(t *testing.T) {
	ids := map[string]uint{"mice": 1, "radiation": 2}
	got := parseRelations([][]any{
		{"Radiation", "causes", "mice", 0.7},
		{"Radiation", "causes", "mice", 0.1},
		{"radiation", "part-of", "Mice", "high"},
		{"radiation", "contradicts"},
		{"radiation", 3.0, "mice"},
		{"mice", "Correlates With", "radiation", -2.0},
	}, ids)
	assert.Equal(t, []relation{
		{source: 2, target: 1, relType: entities.RelCauses, confidence: 0.7},
		{source: 1, target: 2, relType: entities.RelCorrelatesWith, confidence: 0},
	}, got)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Build(ctx)
	require.NoError(t, err)
	mice, micro, bone := f.node(t, "mice"), f.node(t, "microgravity"), f.node(t, "bone density")

	tg, err := f.svc.GraphWithTemporalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{f.p1.PublicationID: "2019-01-01", f.p2.PublicationID: "2022-06-01"}, tg.PublicationDates)

	early, err := f.svc.Filter(ctx, "", "2020-01-01")
	require.NoError(t, err)
	require.Len(t, early.Edges, 1)
	assert.Equal(t, bone.NodeID, early.Edges[0].TargetNodeID)
	assert.ElementsMatch(t, []uint{micro.NodeID, bone.NodeID}, nodeIDs(early.Nodes))

	late, err := f.svc.Filter(ctx, "2020-01-01", "")
	require.NoError(t, err)
	assert.Len(t, late.Edges, 3)
	assert.Len(t, late.Nodes, 4)

	none, err := f.svc.Filter(ctx, "2030-01-01", "2031-01-01")
	require.NoError(t, err)
	assert.Empty(t, none.Edges)
	assert.Empty(t, none.Nodes)

	_, err = f.svc.Filter(ctx, "yesterday", "")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = f.svc.Filter(ctx, "2022-01-01", "2020-01-01")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	nb, err := f.svc.Neighbors(ctx, mice.NodeID)
	require.NoError(t, err)
	assert.Len(t, nb.Edges, 2)
	assert.ElementsMatch(t, []string{"Microgravity", "ISS"}, nodeNames(nb.Neighbors))
	_, err = f.svc.Neighbors(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	found, err := f.svc.SearchNodes(ctx, "MIC", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mice", "Microgravity"}, nodeNames(found))
	found, err = f.svc.SearchNodes(ctx, "mic", entities.NodeOrganism, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mice"}, nodeNames(found))

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalNodes)
	assert.Equal(t, 3, st.TotalEdges)
	assert.Equal(t, []string{"Mice"}, st.Organisms)
	assert.Equal(t, []string{"Microgravity"}, st.Conditions)
	assert.Equal(t, 1, st.NodesByType[entities.NodeSpaceEnvironment])
}

func TestLayout_PersistsAndRespectsPins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Build(ctx)
	require.NoError(t, err)

	g, err := f.svc.Layout(ctx, service.LayoutRequest{Ticks: 60})
	require.NoError(t, err)
	for _, n := range g.Nodes {
		require.NotNil(t, n.XPosition)
		require.NotNil(t, n.YPosition)
	}
	mice := f.node(t, "mice")
	require.NotNil(t, mice.XPosition)
	x, y := *mice.XPosition, *mice.YPosition

	g, err = f.svc.Layout(ctx, service.LayoutRequest{Ticks: 60, Reset: true, Pinned: []uint{mice.NodeID}})
	require.NoError(t, err)
	mice = f.node(t, "mice")
	assert.Equal(t, x, *mice.XPosition)
	assert.Equal(t, y, *mice.YPosition)
}

func TestScheduleBuild(t *testing.T) {
	f := newFixture(t)
	j, err := f.svc.ScheduleBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobs.KindBuildGraph, j.Kind)
	assert.Len(t, f.q.jobs, 1)
}

func nodeIDs(ns []entities.KnowledgeNode) []uint {
	out := []uint{}
	for _, n := range ns {
		out = append(out, n.NodeID)
	}
	return out
}

func nodeNames(ns []entities.KnowledgeNode) []string {
	out := []string{}
	for _, n := range ns {
		out = append(out, n.Name)
	}
	return out
}
