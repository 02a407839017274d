package serviceImp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	"umbra/pkg/events"
	"umbra/pkg/jobs"
	"umbra/pkg/metrics"
	"umbra/pkg/publication/repository"
	"umbra/pkg/publication/service"
	"umbra/pkg/textkit"
)

type pubSvc struct {
	r       repository.PublicationRepository
	llm     ai.Client
	prompts ai.Prompts
	q       jobs.Enqueuer
	ev      events.Publisher
	log     *slog.Logger
}

func New(r repository.PublicationRepository, llm ai.Client, prompts ai.Prompts, q jobs.Enqueuer, ev events.Publisher, log *slog.Logger) service.PublicationService {
	if ev == nil {
		ev = events.NewNoop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &pubSvc{r: r, llm: llm, prompts: prompts, q: q, ev: ev, log: log.With("component", "publication")}
}

func (s *pubSvc) Create(ctx context.Context, in service.CreateInput) (*entities.Publication, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", service.ErrInvalidInput)
	}
	doi := strings.TrimSpace(in.DOI)
	if doi != "" && !citation.ValidDOI(doi) {
		return nil, fmt.Errorf("%w: malformed DOI %q", service.ErrInvalidInput, doi)
	}
	src := strings.TrimSpace(in.SourceURL)
	if src != "" {
		if _, err := s.r.FindBySourceURL(ctx, src); err == nil {
			return nil, service.ErrConflict
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	p := &entities.Publication{
		Title:            title,
		Authors:          textkit.Dedupe(in.Authors),
		Abstract:         strings.TrimSpace(in.Abstract),
		PublicationDate:  strings.TrimSpace(in.PublicationDate),
		DOI:              doi,
		PDFURL:           strings.TrimSpace(in.PDFURL),
		SourceURL:        src,
		JournalName:      strings.TrimSpace(in.JournalName),
		Keywords:         textkit.Dedupe(in.Keywords),
		ProcessingStatus: entities.StatusPending,
	}
	if err := s.r.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, service.ErrConflict
		}
		return nil, err
	}
	if in.Process {
		if _, err := s.ScheduleProcessing(ctx, p.PublicationID); err != nil {
			s.log.Warn("could not schedule processing", "publication_id", p.PublicationID, "error", err)
		} else {
			p.ProcessingStatus = entities.StatusProcessing
		}
	}
	return p, nil
}

func (s *pubSvc) List(ctx context.Context, f repository.ListFilter) (service.Page, error) {
	f = f.Normalize()
	items, total, err := s.r.List(ctx, f)
	if err != nil {
		return service.Page{}, err
	}
	if items == nil {
		items = []entities.Publication{}
	}
	return service.Page{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (s *pubSvc) Detail(ctx context.Context, id uint) (*entities.Publication, error) {
	p, err := s.r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.r.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	p.ViewCount++
	return p, nil
}

func (s *pubSvc) ScheduleProcessing(ctx context.Context, id uint) (jobs.Job, error) {
	if _, err := s.r.FindByID(ctx, id); err != nil {
		return jobs.Job{}, err
	}
	if err := s.r.UpdateStatus(ctx, id, entities.StatusProcessing, ""); err != nil {
		return jobs.Job{}, err
	}
	j, err := s.q.Enqueue(jobs.KindProcessPublication, id)
	if err != nil {
		_ = s.r.UpdateStatus(ctx, id, entities.StatusPending, "")
		return jobs.Job{}, err
	}
	return j, nil
}

type extractedJSON struct {
	Organisms              *[]string `json:"organisms"`
	ExperimentalConditions []string  `json:"experimentalConditions"`
	BiologicalProcesses    []string  `json:"biologicalProcesses"`
	SpaceEnvironments      []string  `json:"spaceEnvironments"`
}

// ProcessPublication runs LLM entity extraction and records the outcome on the
// publication. Every failure leaves the publication in the failed state.
func (s *pubSvc) ProcessPublication(ctx context.Context, id uint) error {
	log := s.log.With("publication_id", id)
	p, err := s.r.FindByID(ctx, id)
	if err != nil {
		log.Error("publication not found for processing", "error", err)
		return err
	}
	if p.ProcessingStatus != entities.StatusProcessing {
		if err := s.r.UpdateStatus(ctx, id, entities.StatusProcessing, ""); err != nil {
			return err
		}
	}

	out, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskExtractEntities,
		SystemPrompt: s.prompts.EntityExtractor,
		UserPrompt:   ai.EntityUserPrompt(p.Title, p.Abstract),
		Temperature:  ai.Float(0.2),
	})
	if err != nil {
		return s.fail(ctx, id, fmt.Errorf("entity extraction: %w", err))
	}

	var raw extractedJSON
	if err := ai.DecodeObject(out, &raw); err != nil {
		return s.fail(ctx, id, fmt.Errorf("%w: %v", service.ErrBadModelOutput, err))
	}
	if raw.Organisms == nil {
		return s.fail(ctx, id, fmt.Errorf("%w: no organisms array", service.ErrBadModelOutput))
	}
	ext := entities.ExtractedEntities{
		Organisms:              textkit.Dedupe(*raw.Organisms),
		ExperimentalConditions: textkit.Dedupe(raw.ExperimentalConditions),
		BiologicalProcesses:    textkit.Dedupe(raw.BiologicalProcesses),
		SpaceEnvironments:      textkit.Dedupe(raw.SpaceEnvironments),
	}
	if err := s.r.UpdateExtracted(ctx, id, ext); err != nil {
		return s.fail(ctx, id, err)
	}
	metrics.PublicationsProcessed.WithLabelValues(entities.StatusCompleted).Inc()
	log.Info("publication processed", "entities", ext.Count())

	if s.q != nil {
		if _, err := s.q.Enqueue(jobs.KindEmbedPublication, id); err != nil && !errors.Is(err, jobs.ErrUnknownKind) {
			log.Warn("could not schedule embeddings", "error", err)
		}
	}
	if err := s.ev.Publish(ctx, events.SubjectPublicationProcessed, map[string]any{
		"publication_id": id,
		"entities":       ext,
	}); err != nil {
		log.Warn("publish event", "error", err)
	}
	return nil
}

func (s *pubSvc) fail(ctx context.Context, id uint, cause error) error {
	metrics.PublicationsProcessed.WithLabelValues(entities.StatusFailed).Inc()
	s.log.Error("publication processing failed", "publication_id", id, "error", cause)
	// the job context may already be cancelled; the status write must still land
	if err := s.r.UpdateStatus(context.WithoutCancel(ctx), id, entities.StatusFailed, cause.Error()); err != nil {
		s.log.Error("mark publication failed", "publication_id", id, "error", err)
	}
	return cause
}

func (s *pubSvc) Summarize(ctx context.Context, id uint) (string, error) {
	p, err := s.r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Abstract) == "" && strings.TrimSpace(p.Results) == "" {
		return "", fmt.Errorf("%w: publication has no abstract or results to summarize", service.ErrInvalidInput)
	}
	out, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskSummarize,
		SystemPrompt: s.prompts.Summarizer,
		UserPrompt:   ai.SummaryUserPrompt(p.Title, p.Abstract, textkit.Truncate(p.Results, 4000)),
		Temperature:  ai.Float(0.3),
		MaxTokens:    512,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(out)
	if err := s.r.UpdateSummary(ctx, id, summary); err != nil {
		return "", err
	}
	return summary, nil
}

func (s *pubSvc) Citation(ctx context.Context, id uint) (string, error) {
	p, err := s.r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return citation.Format(p), nil
}
