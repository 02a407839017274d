package serviceImp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	embservice "umbra/pkg/embedding/service"
	"umbra/pkg/events"
	"umbra/pkg/ingest/service"
	"umbra/pkg/metrics"
	pubrepo "umbra/pkg/publication/repository"
	"umbra/pkg/textkit"
)

// epochDate stands in for a missing publication date on seeded rows.
const epochDate = "1970-01-01T00:00:00.000Z"

type Options struct {
	Guard        URLGuard
	MaxBytes     int
	ProgressPath string
	// FetchInterval spaces page requests; zero does not wait.
	FetchInterval time.Duration
	// Fetcher overrides the fetcher built from Guard and MaxBytes.
	Fetcher *Fetcher
}

type Svc struct {
	pubs     pubrepo.PublicationRepository
	embed    embservice.EmbeddingService
	llm      ai.Client
	prompts  ai.Prompts
	guard    URLGuard
	fetch    *Fetcher
	progress *ProgressFile
	pace     *rate.Limiter
	ev       events.Publisher
	log      *slog.Logger
}

// New accepts a nil embedding service; ingested publications then complete
// without section embeddings.
func New(pubs pubrepo.PublicationRepository, embed embservice.EmbeddingService, llm ai.Client, prompts ai.Prompts, ev events.Publisher, opt Options, log *slog.Logger) *Svc {
	if log == nil {
		log = slog.Default()
	}
	if ev == nil {
		ev = events.NewNoop()
	}
	log = log.With("component", "ingest")
	f := opt.Fetcher
	if f == nil {
		f = NewFetcher(opt.Guard, opt.MaxBytes, log)
	}
	pace := rate.NewLimiter(rate.Inf, 1)
	if opt.FetchInterval > 0 {
		pace = rate.NewLimiter(rate.Every(opt.FetchInterval), 1)
	}
	if opt.ProgressPath == "" {
		opt.ProgressPath = "progress.json"
	}
	return &Svc{
		pubs:     pubs,
		embed:    embed,
		llm:      llm,
		prompts:  prompts,
		guard:    opt.Guard,
		fetch:    f,
		progress: NewProgressFile(opt.ProgressPath),
		pace:     pace,
		ev:       ev,
		log:      log,
	}
}

var _ service.IngestService = (*Svc)(nil)

func (s *Svc) Run(ctx context.Context, sourcePath string) (service.RunReport, error) {
	rows, err := ReadSource(sourcePath)
	if err != nil {
		return service.RunReport{}, err
	}
	prog, err := s.progress.Load()
	if err != nil {
		return service.RunReport{}, err
	}
	rep := service.RunReport{
		RunID:     uuid.NewString(),
		TotalRows: len(rows),
		StartRow:  prog.LastProcessedRow + 1,
	}
	log := s.log.With("run_id", rep.RunID)
	log.Info("ingest run started", "source", sourcePath, "total_rows", rep.TotalRows, "start_row", rep.StartRow)

	for idx := rep.StartRow; idx < len(rows); idx++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		row := rows[idx]
		log.Info("processing paper", "row", idx+1, "total_rows", len(rows), "title", textkit.Truncate(row.Title, 50))

		_, err := s.ingest(ctx, row.Link, row.Title)
		switch {
		case err == nil:
			rep.Processed++
		case errors.Is(err, service.ErrDuplicate):
			rep.Skipped++
			log.Info("paper already ingested", "row", idx+1, "link", row.Link)
		default:
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			rep.Failed++
			log.Error("paper failed", "row", idx+1, "error", err)
			if perr := s.progress.AddFailure(idx, row.Title, err); perr != nil {
				return rep, perr
			}
			continue
		}
		if err := s.progress.Advance(idx, row.Title, len(rows)); err != nil {
			return rep, err
		}
		if (idx+1)%10 == 0 {
			log.Info("ingest progress", "row", idx+1, "total_rows", len(rows))
		}
	}
	log.Info("ingest run finished", "processed", rep.Processed, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

func (s *Svc) IngestURL(ctx context.Context, in service.URLInput) (*entities.Publication, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", service.ErrInvalidInput)
	}
	return s.ingest(ctx, in.URL, in.Title)
}

// ingest fetches one page and stores it as a completed publication. fallbackTitle
// is used when the page has no recognisable title.
func (s *Svc) ingest(ctx context.Context, link, fallbackTitle string) (*entities.Publication, error) {
	if strings.TrimSpace(link) == "" {
		return nil, fmt.Errorf("%w: empty link", service.ErrInvalidInput)
	}
	u, err := s.guard.Check(ctx, link)
	if err != nil {
		return nil, err
	}
	src := u.String()
	if _, err := s.pubs.FindBySourceURL(ctx, src); err == nil {
		return nil, service.ErrDuplicate
	} else if !errors.Is(err, pubrepo.ErrNotFound) {
		return nil, err
	}

	if err := s.pace.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := s.fetch.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	paper, err := ParsePaper(page.Body, page.URL)
	if err != nil {
		return nil, err
	}
	if paper.Title == "" {
		paper.Title = strings.TrimSpace(fallbackTitle)
	}
	if paper.Title == "" {
		return nil, fmt.Errorf("%w: page has no title", service.ErrInvalidInput)
	}
	if paper.DOI != "" && !citation.ValidDOI(paper.DOI) {
		s.log.Debug("dropping malformed doi", "doi", paper.DOI, "url", src)
		paper.DOI = ""
	}

	ext := s.extract(ctx, paper)
	p := &entities.Publication{
		Title:                  paper.Title,
		Authors:                paper.Authors,
		Abstract:               paper.Abstract,
		PublicationDate:        paper.PublicationDate,
		DOI:                    paper.DOI,
		PDFURL:                 paper.PDFURL,
		SourceURL:              src,
		Keywords:               paper.Keywords,
		FullText:               paper.FullText,
		Methods:                paper.Methods,
		Results:                paper.Results,
		Discussion:             paper.Discussion,
		Conclusions:            paper.Conclusions,
		CitationCount:          paper.CitationCount,
		Organisms:              ext.Organisms,
		ExperimentalConditions: ext.ExperimentalConditions,
		BiologicalProcesses:    ext.BiologicalProcesses,
		SpaceEnvironments:      ext.SpaceEnvironments,
		ProcessingStatus:       entities.StatusProcessing,
	}
	if err := s.pubs.Create(ctx, p); err != nil {
		if errors.Is(err, pubrepo.ErrDuplicate) {
			return nil, service.ErrDuplicate
		}
		return nil, fmt.Errorf("store publication: %w", err)
	}
	if err := s.complete(ctx, p); err != nil {
		metrics.PublicationsProcessed.WithLabelValues(entities.StatusFailed).Inc()
		if uerr := s.pubs.UpdateStatus(context.WithoutCancel(ctx), p.PublicationID, entities.StatusFailed, err.Error()); uerr != nil {
			s.log.Error("mark publication failed", "publication_id", p.PublicationID, "error", uerr)
		}
		return nil, err
	}
	return p, nil
}

func (s *Svc) complete(ctx context.Context, p *entities.Publication) error {
	log := s.log.With("publication_id", p.PublicationID)
	if s.embed != nil {
		n, err := s.embed.GenerateForPublication(ctx, p.PublicationID)
		switch {
		case errors.Is(err, embservice.ErrDisabled):
			log.Debug("embeddings skipped", "reason", err)
		case err != nil:
			return fmt.Errorf("embeddings: %w", err)
		default:
			log.Info("embeddings generated", "count", n)
		}
	}
	if err := s.pubs.UpdateStatus(ctx, p.PublicationID, entities.StatusCompleted, ""); err != nil {
		return err
	}
	p.ProcessingStatus = entities.StatusCompleted
	metrics.PublicationsProcessed.WithLabelValues(entities.StatusCompleted).Inc()
	log.Info("publication ingested", "title", textkit.Truncate(p.Title, 50), "entities", p.Entities().Count())

	if err := s.ev.Publish(ctx, events.SubjectPublicationProcessed, map[string]any{
		"publication_id": p.PublicationID,
		"entities":       p.Entities(),
	}); err != nil {
		log.Warn("publish event", "error", err)
	}
	return nil
}

// paperEntities accepts both key spellings models answer with.
type paperEntities struct {
	Organisms                   []string `json:"organisms"`
	ExperimentalConditions      []string `json:"experimentalConditions"`
	BiologicalProcesses         []string `json:"biologicalProcesses"`
	SpaceEnvironments           []string `json:"spaceEnvironments"`
	ExperimentalConditionsSnake []string `json:"experimental_conditions"`
	BiologicalProcessesSnake    []string `json:"biological_processes"`
	SpaceEnvironmentsSnake      []string `json:"space_environments"`
}

// extract asks the model for the paper's entities. Failures yield empty lists.
func (s *Svc) extract(ctx context.Context, paper Paper) entities.ExtractedEntities {
	empty := entities.ExtractedEntities{
		Organisms:              []string{},
		ExperimentalConditions: []string{},
		BiologicalProcesses:    []string{},
		SpaceEnvironments:      []string{},
	}
	if s.llm == nil {
		return empty
	}
	text := paper.FullText
	if strings.TrimSpace(text) == "" {
		text = paper.Abstract
	}
	out, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskExtractEntities,
		SystemPrompt: s.prompts.EntityExtractor,
		UserPrompt:   ai.PaperUserPrompt(paper.Title, textkit.Truncate(text, service.ExtractionChars)),
		Temperature:  ai.Float(0.2),
	})
	if err != nil {
		s.log.Warn("entity extraction failed", "title", textkit.Truncate(paper.Title, 50), "error", err)
		return empty
	}
	var raw paperEntities
	if err := ai.DecodeObject(out, &raw); err != nil {
		s.log.Warn("entity extraction output unusable", "title", textkit.Truncate(paper.Title, 50), "error", err)
		return empty
	}
	return entities.ExtractedEntities{
		Organisms:              textkit.Dedupe(raw.Organisms),
		ExperimentalConditions: textkit.Dedupe(append(raw.ExperimentalConditions, raw.ExperimentalConditionsSnake...)),
		BiologicalProcesses:    textkit.Dedupe(append(raw.BiologicalProcesses, raw.BiologicalProcessesSnake...)),
		SpaceEnvironments:      textkit.Dedupe(append(raw.SpaceEnvironments, raw.SpaceEnvironmentsSnake...)),
	}
}

func (s *Svc) SeedFromCSV(ctx context.Context, content string) (service.SeedResult, error) {
	invalid := service.SeedResult{Success: false, Seeded: 0, Error: "Empty or invalid CSV."}
	records, err := readCSV(strings.NewReader(strings.TrimSpace(content)))
	if err != nil || len(records) < 2 {
		s.log.Warn("seed content empty or unparseable", "error", err)
		return invalid, nil
	}
	t, err := newTable(records)
	if err != nil || !t.has("title") {
		s.log.Warn("seed content has no title column")
		return invalid, nil
	}

	res := service.SeedResult{Success: true, TotalRecords: len(t.rows)}
	for _, row := range t.rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		title := t.get(row, "title")
		if title == "" {
			s.log.Warn("skipping seed record with no title")
			continue
		}
		abstract := t.get(row, "abstract")
		keywords := t.get(row, "keywords")
		date := t.get(row, "publicationDate", "date")
		if date == "" {
			date = epochDate
		}
		ext := textkit.ExtractEntities(title + " " + abstract + " " + keywords)
		p := &entities.Publication{
			Title:                  title,
			Authors:                textkit.SplitList(t.get(row, "authors"), ";"),
			Abstract:               abstract,
			PublicationDate:        date,
			DOI:                    t.get(row, "doi"),
			PDFURL:                 t.get(row, "pdfUrl"),
			SourceURL:              t.get(row, "link", "url"),
			Keywords:               textkit.SplitList(keywords, ";"),
			Organisms:              ext.Organisms,
			ExperimentalConditions: ext.ExperimentalConditions,
			BiologicalProcesses:    ext.BiologicalProcesses,
			SpaceEnvironments:      ext.SpaceEnvironments,
			ProcessingStatus:       entities.StatusPending,
		}
		if err := s.pubs.Create(ctx, p); err != nil {
			if errors.Is(err, pubrepo.ErrDuplicate) {
				s.log.Debug("seed record already stored", "title", title, "source_url", p.SourceURL)
				res.Skipped++
				continue
			}
			s.log.Error("seed insert failed", "title", title, "error", err)
			continue
		}
		res.Seeded++
	}
	s.log.Info("seeded publications", "seeded", res.Seeded, "skipped", res.Skipped, "total", res.TotalRecords)
	return res, nil
}
