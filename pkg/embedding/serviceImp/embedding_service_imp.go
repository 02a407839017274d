package serviceImp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"umbra/entities"
	"umbra/pkg/embedder"
	"umbra/pkg/embedding/repository"
	"umbra/pkg/embedding/service"
	pubrepo "umbra/pkg/publication/repository"
	"umbra/pkg/textkit"
)

type Svc struct {
	r    repository.EmbeddingRepository
	pubs pubrepo.PublicationRepository
	emb  embedder.Embedder
	log  *slog.Logger
}

// New accepts a nil embedder; generation then fails with service.ErrDisabled.
func New(r repository.EmbeddingRepository, pubs pubrepo.PublicationRepository, e embedder.Embedder, log *slog.Logger) *Svc {
	if log == nil {
		log = slog.Default()
	}
	return &Svc{r: r, pubs: pubs, emb: e, log: log.With("component", "embedding")}
}

var _ service.EmbeddingService = (*Svc)(nil)

type section struct {
	name string
	text string
}

func sectionsOf(p *entities.Publication) []section {
	all := []section{
		{entities.SectionTitle, p.Title},
		{entities.SectionAbstract, p.Abstract},
		{entities.SectionMethods, p.Methods},
		{entities.SectionResults, p.Results},
		{entities.SectionDiscussion, p.Discussion},
		{entities.SectionConclusion, p.Conclusions},
	}
	out := all[:0]
	for _, s := range all {
		if t := strings.TrimSpace(s.text); t != "" {
			out = append(out, section{s.name, textkit.Truncate(t, service.MaxSectionChars)})
		}
	}
	return out
}

func (s *Svc) GenerateForPublication(ctx context.Context, publicationID uint) (int, error) {
	if s.emb == nil {
		return 0, service.ErrDisabled
	}
	p, err := s.pubs.FindByID(ctx, publicationID)
	if err != nil {
		return 0, err
	}
	secs := sectionsOf(p)
	if len(secs) == 0 {
		return 0, s.r.ReplaceForPublication(ctx, publicationID, nil)
	}

	texts := make([]string, len(secs))
	for i := range secs {
		texts[i] = secs[i].text
	}
	vecs, err := s.emb.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed publication %d: %w", publicationID, err)
	}
	if len(vecs) != len(secs) {
		return 0, fmt.Errorf("embed publication %d: got %d vectors for %d sections", publicationID, len(vecs), len(secs))
	}

	rows := make([]entities.Embedding, len(secs))
	for i, sec := range secs {
		rows[i] = entities.Embedding{
			PublicationID: publicationID,
			Section:       sec.name,
			Vector:        embedder.FloatsToBytes(vecs[i]),
			TextContent:   sec.text,
		}
		// sections lifted from the scraped page can be located in the full text
		if p.FullText != "" {
			if at := strings.Index(p.FullText, sec.text); at >= 0 {
				start, end := at, at+len(sec.text)
				rows[i].StartPosition, rows[i].EndPosition = &start, &end
			}
		}
	}
	if err := s.r.ReplaceForPublication(ctx, publicationID, rows); err != nil {
		return 0, err
	}
	s.log.Info("embeddings stored", "publication_id", publicationID, "sections", len(rows))
	return len(rows), nil
}
