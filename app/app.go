// Package app assembles repositories, services and the job queue from the
// configuration. The HTTP server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"umbra/config"
	"umbra/database"
	"umbra/pkg/ai"
	"umbra/pkg/embedder"
	"umbra/pkg/events"
	"umbra/pkg/jobs"

	docRepoImp "umbra/pkg/document/repositoryImp"
	docSvcImp "umbra/pkg/document/serviceImp"

	embRepoImp "umbra/pkg/embedding/repositoryImp"
	embService "umbra/pkg/embedding/service"
	embSvcImp "umbra/pkg/embedding/serviceImp"

	gapRepoImp "umbra/pkg/gaps/repositoryImp"
	gapSvcImp "umbra/pkg/gaps/serviceImp"

	graphRepoImp "umbra/pkg/graph/repositoryImp"
	graphSvcImp "umbra/pkg/graph/serviceImp"

	ingestSvcImp "umbra/pkg/ingest/serviceImp"

	pubRepo "umbra/pkg/publication/repository"
	pubRepoImp "umbra/pkg/publication/repositoryImp"
	pubService "umbra/pkg/publication/service"
	pubSvcImp "umbra/pkg/publication/serviceImp"

	searchRepoImp "umbra/pkg/search/repositoryImp"
	searchSvcImp "umbra/pkg/search/serviceImp"
)

type App struct {
	Cfg    config.AppConfig
	Log    *slog.Logger
	DB     *gorm.DB
	LLM    ai.Client
	Emb    embedder.Embedder
	Queue  *jobs.Queue
	Events events.Publisher

	PubRepo      pubRepo.PublicationRepository
	Publications pubService.PublicationService
	Embeddings   *embSvcImp.Svc
	Search       *searchSvcImp.Svc
	Graph        *graphSvcImp.Svc
	Gaps         *gapSvcImp.Svc
	Documents    *docSvcImp.Svc
	Ingest       *ingestSvcImp.Svc
}

// New opens the database and builds every service. Workers are not started;
// call StartJobs for that.
func New(cfg config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	prompts, err := ai.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}

	var llm ai.Client
	if cfg.LLMEnabled() {
		llm = ai.NewOpenAI(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel,
			ai.WithLimiter(ai.NewLimiter(cfg.LLMQuota)),
			ai.WithLogger(log.With("component", "llm")))
	} else {
		log.Warn("no LLM provider configured, using the offline client")
		llm = ai.NewMock()
	}

	var emb embedder.Embedder
	if cfg.EmbedderEnabled() {
		emb = embedder.New(cfg.EmbEndpoint, cfg.EmbAPIKey, cfg.EmbModel, cfg.EmbDimensions,
			embedder.WithLimiter(ai.NewLimiter(cfg.EmbQuota)),
			embedder.WithLogger(log.With("component", "embedder")))
	} else {
		log.Warn("no embedding provider configured, search falls back to keywords")
	}

	ev := events.NewNoop()
	if cfg.NATSURL != "" {
		if p, err := events.NewNATS(cfg.NATSURL, log); err != nil {
			log.Warn("events disabled", "error", err)
		} else {
			ev = p
		}
	}

	q := jobs.New(cfg.JobQueueSize, cfg.JobWorkers, log)

	a := &App{Cfg: cfg, Log: log, DB: db, LLM: llm, Emb: emb, Queue: q, Events: ev}

	a.PubRepo = pubRepoImp.New(db)
	embRepo := embRepoImp.New(db)

	a.Publications = pubSvcImp.New(a.PubRepo, llm, prompts, q, ev, log)
	a.Embeddings = embSvcImp.New(embRepo, a.PubRepo, emb, log)
	a.Search = searchSvcImp.New(searchRepoImp.New(db), a.PubRepo, embRepo, emb, llm, prompts, log)
	a.Graph = graphSvcImp.New(graphRepoImp.New(db), a.PubRepo, llm, prompts, q, ev, log)
	a.Gaps = gapSvcImp.New(gapRepoImp.New(db), a.Graph, llm, prompts, ev, log)
	a.Documents = docSvcImp.New(docRepoImp.New(db), a.Search, llm, prompts, log)
	a.Ingest = ingestSvcImp.New(a.PubRepo, a.Embeddings, llm, prompts, ev, ingestSvcImp.Options{
		Guard:         ingestSvcImp.URLGuard{Allowed: cfg.IngestAllowedDomains},
		MaxBytes:      cfg.IngestMaxBytes,
		ProgressPath:  cfg.ProgressFile,
		FetchInterval: cfg.IngestFetchInterval,
	}, log)

	a.registerJobs()
	return a, nil
}

func (a *App) registerJobs() {
	a.Queue.Handle(jobs.KindProcessPublication, func(ctx context.Context, j jobs.Job) error {
		return a.Publications.ProcessPublication(ctx, j.PublicationID)
	})
	a.Queue.Handle(jobs.KindEmbedPublication, func(ctx context.Context, j jobs.Job) error {
		n, err := a.Embeddings.GenerateForPublication(ctx, j.PublicationID)
		if errors.Is(err, embService.ErrDisabled) {
			return nil
		}
		if err != nil {
			return err
		}
		a.Log.Debug("embedding job done", "publication_id", j.PublicationID, "count", n)
		return nil
	})
	a.Queue.Handle(jobs.KindBuildGraph, func(ctx context.Context, _ jobs.Job) error {
		_, err := a.Graph.Build(ctx)
		return err
	})
}

// StartJobs launches the background workers; they stop with ctx or Close.
func (a *App) StartJobs(ctx context.Context) { a.Queue.Start(ctx) }

// Close drains the job queue, then releases events and the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Queue.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain jobs: %w", err))
	}
	a.Events.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
