package serviceImp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	"umbra/pkg/embedder"
	embrepo "umbra/pkg/embedding/repository"
	"umbra/pkg/metrics"
	pubrepo "umbra/pkg/publication/repository"
	"umbra/pkg/search/repository"
	"umbra/pkg/search/service"
	"umbra/pkg/textkit"
)

const (
	vectorTopK  = 16
	keywordTopK = 8
)

// NoResultsAnswer is returned without calling the model when nothing was retrieved.
const NoResultsAnswer = "No relevant publications were found for this question."

type Svc struct {
	r       repository.SearchRepository
	pubs    pubrepo.PublicationRepository
	embs    embrepo.EmbeddingRepository
	emb     embedder.Embedder
	llm     ai.Client
	prompts ai.Prompts
	log     *slog.Logger
	now     func() time.Time
}

// New accepts a nil embedder; retrieval then falls back to keyword relevance.
func New(r repository.SearchRepository, pubs pubrepo.PublicationRepository, embs embrepo.EmbeddingRepository,
	e embedder.Embedder, llm ai.Client, prompts ai.Prompts, log *slog.Logger) *Svc {
	if log == nil {
		log = slog.Default()
	}
	return &Svc{
		r: r, pubs: pubs, embs: embs, emb: e, llm: llm, prompts: prompts,
		log: log.With("component", "search"),
		now: time.Now,
	}
}

var _ service.SearchService = (*Svc)(nil)

func (s *Svc) Search(ctx context.Context, req service.SearchRequest) (*service.Result, error) {
	start := s.now()
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", service.ErrInvalidInput)
	}

	hits, mode, err := s.rank(ctx, q, vectorTopK)
	if err != nil {
		return nil, err
	}
	hits = applyFilters(hits, req.Filters)

	answer := NoResultsAnswer
	if len(hits) > 0 {
		docs := make([]ai.ContextDoc, len(hits))
		for i, h := range hits {
			docs[i] = ai.ContextDoc{Title: h.Publication.Title, Abstract: h.Publication.Abstract}
		}
		answer, err = s.llm.Generate(ctx, ai.GenerateRequest{
			Task:         ai.TaskSynthesize,
			SystemPrompt: s.prompts.SearchSynthesizer,
			UserPrompt:   ai.SearchUserPrompt(docs, q),
		})
		if err != nil {
			return nil, fmt.Errorf("synthesize answer: %w", err)
		}
	}

	elapsed := s.now().Sub(start)
	rec := &entities.SearchQuery{
		UserID:            req.UserID,
		Query:             q,
		QueryType:         queryType(mode),
		Filters:           req.Filters,
		ResultCount:       len(hits),
		ResponseTimeMS:    elapsed.Milliseconds(),
		SynthesizedAnswer: answer,
	}
	for _, h := range hits {
		rec.ResultPublicationIDs = append(rec.ResultPublicationIDs, h.Publication.PublicationID)
		rec.SourceAttribution = append(rec.SourceAttribution, entities.SourceAttribution{
			PublicationID:  h.Publication.PublicationID,
			RelevanceScore: h.RelevanceScore,
		})
	}
	if err := s.r.Create(ctx, rec); err != nil {
		return nil, err
	}
	metrics.SearchLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	s.log.Info("search", "mode", mode, "results", len(hits), "ms", rec.ResponseTimeMS)

	if hits == nil {
		hits = []service.Source{}
	}
	return &service.Result{
		QueryID:        rec.QueryID,
		Query:          q,
		Answer:         answer,
		Sources:        hits,
		Mode:           mode,
		ResponseTimeMS: rec.ResponseTimeMS,
	}, nil
}

func queryType(mode string) string {
	if mode == service.ModeSemantic {
		return "natural_language"
	}
	return "keyword"
}

func (s *Svc) Retrieve(ctx context.Context, text string, limit int) ([]service.Source, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", fmt.Errorf("%w: text is required", service.ErrInvalidInput)
	}
	hits, mode, err := s.rank(ctx, text, vectorTopK)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, mode, nil
}

// rank tries vector retrieval first and degrades to keyword relevance.
func (s *Svc) rank(ctx context.Context, q string, k int) ([]service.Source, string, error) {
	if s.emb != nil {
		hits, err := s.semantic(ctx, q, k)
		if err == nil {
			return hits, service.ModeSemantic, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		s.log.Warn("semantic retrieval failed, using keyword relevance", "err", err)
	}
	hits, err := s.keyword(ctx, q, keywordTopK)
	return hits, service.ModeKeyword, err
}

type scored struct {
	e     entities.Embedding
	score float64
}

func (s *Svc) semantic(ctx context.Context, q string, k int) ([]service.Source, error) {
	vecs, err := s.emb.Embed(ctx, []string{q})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	all, err := s.embs.All(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]scored, len(all))
	for i := range all {
		ranked[i] = scored{all[i], embedder.Cosine(vecs[0], embedder.BytesToFloats(all[i].Vector))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	var ids []uint
	scores := map[uint]float64{}
	for _, r := range ranked {
		if r.e.Section != entities.SectionAbstract {
			continue
		}
		if _, dup := scores[r.e.PublicationID]; dup {
			continue
		}
		scores[r.e.PublicationID] = r.score
		ids = append(ids, r.e.PublicationID)
	}
	pubs, err := s.pubs.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]service.Source, 0, len(ids))
	for _, id := range ids {
		if p, ok := pubs[id]; ok {
			out = append(out, service.Source{Publication: p, RelevanceScore: scores[id]})
		}
	}
	return out, nil
}

func (s *Svc) keyword(ctx context.Context, q string, k int) ([]service.Source, error) {
	pubs, err := s.pubs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []service.Source
	for _, p := range pubs {
		if sc := textkit.RelevanceScore(q, p.Title+" "+p.Abstract); sc > 0 {
			out = append(out, service.Source{Publication: p, RelevanceScore: sc})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func applyFilters(hits []service.Source, f entities.SearchFilters) []service.Source {
	from, hasFrom := citation.ParseDate(f.DateFrom)
	to, hasTo := citation.ParseDate(f.DateTo)
	out := hits[:0]
	for _, h := range hits {
		p := h.Publication
		if !anyMatch(p.Organisms, f.Organisms) || !anyMatch(p.SpaceEnvironments, f.SpaceEnvironments) {
			continue
		}
		if hasFrom || hasTo {
			d, ok := citation.ParseDate(p.PublicationDate)
			if !ok || (hasFrom && d.Before(from)) || (hasTo && d.After(to)) {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

// anyMatch is true when want is empty or shares a canonical name with have.
func anyMatch(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[textkit.Canonical(h)] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[textkit.Canonical(w)]; ok {
			return true
		}
	}
	return false
}

func (s *Svc) History(ctx context.Context, userID string, limit int) ([]entities.SearchQuery, error) {
	if limit <= 0 {
		limit = service.DefaultHistoryLimit
	}
	if limit > service.MaxHistoryLimit {
		limit = service.MaxHistoryLimit
	}
	return s.r.History(ctx, userID, limit)
}

func (s *Svc) RecordClick(ctx context.Context, queryID, publicationID uint) error {
	q, err := s.r.FindByID(ctx, queryID)
	if err != nil {
		return err
	}
	if !slices.Contains(q.ResultPublicationIDs, publicationID) {
		return fmt.Errorf("%w: publication %d was not a result of query %d", service.ErrInvalidInput, publicationID, queryID)
	}
	return s.r.AddClick(ctx, queryID, publicationID)
}
