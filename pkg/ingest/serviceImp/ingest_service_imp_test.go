package serviceImp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/database"
	"umbra/entities"
	"umbra/pkg/ai"
	embservice "umbra/pkg/embedding/service"
	"umbra/pkg/events"
	"umbra/pkg/ingest/service"
	pubrepo "umbra/pkg/publication/repository"
	"umbra/pkg/publication/repositoryImp"
)

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []ai.GenerateRequest
}

func (s *stubLLM) Model() string { return "stub" }

func (s *stubLLM) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

type fakeEmbeddings struct {
	calls []uint
	err   error
}

func (f *fakeEmbeddings) GenerateForPublication(_ context.Context, id uint) (int, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return 0, f.err
	}
	return 6, nil
}

type fixture struct {
	repo     pubrepo.PublicationRepository
	llm      *stubLLM
	emb      *fakeEmbeddings
	ev       *events.Memory
	srv      *httptest.Server
	progress string
	svc      *Svc
}

func fastRetry() ai.RetryConfig {
	return ai.RetryConfig{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffMultiplier: 1, MaxBackoff: time.Millisecond}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)

	page, err := os.ReadFile("testdata/paper.html")
	require.NoError(t, err)
	mux := http.NewServeMux()
	mux.HandleFunc("/paper/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/paper/moved", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := &fixture{
		repo:     repositoryImp.New(db),
		llm:      &stubLLM{},
		emb:      &fakeEmbeddings{},
		ev:       events.NewMemory(),
		srv:      srv,
		progress: filepath.Join(t.TempDir(), "progress.json"),
	}
	guard := URLGuard{AllowPrivate: true}
	f.svc = New(f.repo, f.emb, f.llm, ai.DefaultPrompts(), f.ev, Options{
		Guard:        guard,
		ProgressPath: f.progress,
		Fetcher:      NewFetcher(guard, 1<<20, nil).WithRetry(fastRetry()),
	}, nil)
	return f
}

func TestIngestURL_StoresCompletedPublication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.reply = "```json\n{\"organisms\": [\"mice\"], \"experimental_conditions\": [\"microgravity\"], \"spaceEnvironments\": [\"ISS\"]}\n```"

	p, err := f.svc.IngestURL(ctx, service.URLInput{URL: f.srv.URL + "/paper/1"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, p.ProcessingStatus)

	got, err := f.repo.FindByID(ctx, p.PublicationID)
	require.NoError(t, err)
	assert.Equal(t, "Bone loss in mice aboard the ISS", got.Title)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, got.Authors)
	assert.Equal(t, "10.1234/bone.2021.001", got.DOI)
	assert.Equal(t, f.srv.URL+"/paper/1", got.SourceURL)
	assert.Equal(t, f.srv.URL+"/paper/pdf/bone.pdf", got.PDFURL)
	assert.Equal(t, entities.StatusCompleted, got.ProcessingStatus)
	assert.NotNil(t, got.LastProcessed)
	assert.Contains(t, got.FullText, "Bone density fell by 12 percent.")
	assert.Equal(t, []string{"mice"}, got.Organisms)
	assert.Equal(t, []string{"microgravity"}, got.ExperimentalConditions)
	assert.Equal(t, []string{"ISS"}, got.SpaceEnvironments)
	assert.Empty(t, got.BiologicalProcesses)

	require.Len(t, f.llm.reqs, 1)
	assert.Equal(t, ai.TaskExtractEntities, f.llm.reqs[0].Task)
	assert.Contains(t, f.llm.reqs[0].UserPrompt, "Paper Content:")
	assert.Equal(t, []uint{p.PublicationID}, f.emb.calls)
	require.Len(t, f.ev.Events(), 1)
	assert.Equal(t, events.SubjectPublicationProcessed, f.ev.Events()[0].Subject)

	_, err = f.svc.IngestURL(ctx, service.URLInput{URL: f.srv.URL + "/paper/1"})
	assert.ErrorIs(t, err, service.ErrDuplicate)
}

func TestIngestURL_FollowsRedirects(t *testing.T) {
	f := newFixture(t)
	f.llm.reply = `{"organisms": []}`

	p, err := f.svc.IngestURL(context.Background(), service.URLInput{URL: f.srv.URL + "/moved"})
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/paper/pdf/bone.pdf", p.PDFURL)
}

func TestIngestURL_ExtractionFailureKeepsEmptyEntities(t *testing.T) {
	f := newFixture(t)
	f.llm.err = ai.NewFatalError(errors.New("400 bad request"))

	p, err := f.svc.IngestURL(context.Background(), service.URLInput{URL: f.srv.URL + "/paper/2"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, p.ProcessingStatus)
	assert.Empty(t, p.Organisms)
	assert.NotNil(t, p.Organisms)
}

func TestIngestURL_EmbeddingFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.reply = `{}`
	f.emb.err = errors.New("embedding provider down")

	_, err := f.svc.IngestURL(ctx, service.URLInput{URL: f.srv.URL + "/paper/3"})
	require.Error(t, err)

	got, err := f.repo.FindBySourceURL(ctx, f.srv.URL+"/paper/3")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusFailed, got.ProcessingStatus)
	assert.Contains(t, got.LastError, "embedding provider down")
}

func TestIngestURL_EmbeddingsDisabledStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.llm.reply = `{}`
	f.emb.err = embservice.ErrDisabled

	p, err := f.svc.IngestURL(context.Background(), service.URLInput{URL: f.srv.URL + "/paper/4"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, p.ProcessingStatus)
}

func TestIngestURL_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestURL(ctx, service.URLInput{URL: "  "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.svc.IngestURL(ctx, service.URLInput{URL: f.srv.URL + "/missing"})
	assert.ErrorIs(t, err, service.ErrFetch)

	strict := New(f.repo, nil, f.llm, ai.DefaultPrompts(), nil, Options{ProgressPath: f.progress}, nil)
	_, err = strict.IngestURL(ctx, service.URLInput{URL: f.srv.URL + "/paper/1"})
	assert.ErrorIs(t, err, service.ErrURLRejected)

	all, err := f.repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRun_RecordsProgressAndResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.reply = `{"organisms": ["mice"]}`
	src := writeFile(t, "papers.csv", "Title,Link\n"+
		"Bone,"+f.srv.URL+"/paper/1\n"+
		"Gone,"+f.srv.URL+"/missing\n"+
		"Bone again,"+f.srv.URL+"/paper/1\n"+
		"Plants,"+f.srv.URL+"/paper/2\n")

	rep, err := f.svc.Run(ctx, src)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 4, rep.TotalRows)
	assert.Equal(t, 0, rep.StartRow)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Failed)

	prog, err := NewProgressFile(f.progress).Load()
	require.NoError(t, err)
	assert.Equal(t, 3, prog.LastProcessedRow)
	assert.Equal(t, 4, prog.TotalRows)
	assert.Equal(t, "Plants", prog.LastProcessedTitle)
	require.Len(t, prog.FailedPapers, 1)
	assert.Equal(t, 1, prog.FailedPapers[0].Row)
	assert.Equal(t, "Gone", prog.FailedPapers[0].Title)
	assert.Contains(t, prog.FailedPapers[0].Error, "404")

	rep, err = f.svc.Run(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.StartRow)
	assert.Zero(t, rep.Processed+rep.Skipped+rep.Failed)

	all, err := f.repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t)
	src := writeFile(t, "papers.csv", "title,link\nBone,"+f.srv.URL+"/paper/1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Run(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)

	prog, err := NewProgressFile(f.progress).Load()
	require.NoError(t, err)
	assert.Equal(t, -1, prog.LastProcessedRow)
}

func TestSeedFromCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := "title,authors,abstract,publicationDate,doi,pdfUrl,keywords\n" +
		"Mice in microgravity,Doe J; Roe R,\"Mice aboard the ISS showed bone density loss, again\",,10.1234/x1,,bone; ISS\n" +
		",Nobody,No title here,2020-01-01,,,\n"

	res, err := f.svc.SeedFromCSV(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, service.SeedResult{Success: true, Seeded: 1, TotalRecords: 2}, res)

	all, err := f.repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got, err := f.repo.FindByID(ctx, all[0].PublicationID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doe J", "Roe R"}, got.Authors)
	assert.Equal(t, []string{"bone", "ISS"}, got.Keywords)
	assert.Equal(t, epochDate, got.PublicationDate)
	assert.Equal(t, "10.1234/x1", got.DOI)
	assert.Equal(t, entities.StatusPending, got.ProcessingStatus)
	assert.Equal(t, []string{"mice"}, got.Organisms)
	assert.Equal(t, []string{"microgravity"}, got.ExperimentalConditions)
	assert.Equal(t, []string{"ISS"}, got.SpaceEnvironments)
	assert.Equal(t, []string{"bone density"}, got.BiologicalProcesses)
	assert.Empty(t, f.llm.reqs)
}

func TestSeedFromCSV_EmptyOrInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, content := range []string{"", "   \n", "title,authors\n", "authors,doi\nA,10.1/x\n"} {
		res, err := f.svc.SeedFromCSV(ctx, content)
		require.NoError(t, err)
		assert.False(t, res.Success, "content %q", content)
		assert.Zero(t, res.Seeded)
	}
}

func TestSeedFromCSV_SkipsKnownLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := "title,link\n" +
		"Bone loss in mice,https://example.org/pmc/1\n" +
		"Roots in orbit,https://example.org/pmc/2\n" +
		"No link yet,\n"

	first, err := f.svc.SeedFromCSV(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, service.SeedResult{Success: true, Seeded: 3, TotalRecords: 3}, first)

	again, err := f.svc.SeedFromCSV(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, service.SeedResult{Success: true, Seeded: 1, Skipped: 2, TotalRecords: 3}, again)

	all, err := f.repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4, "rows without a link are not deduplicated")
}
