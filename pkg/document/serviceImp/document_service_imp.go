package serviceImp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"umbra/entities"
	"umbra/pkg/ai"
	"umbra/pkg/citation"
	"umbra/pkg/document/repository"
	"umbra/pkg/document/service"
	"umbra/pkg/textkit"
)

const (
	maxContextChars    = 2000
	storedContextChars = 500
)

type Svc struct {
	r       repository.DocumentRepository
	find    service.Retriever
	llm     ai.Client
	prompts ai.Prompts
	log     *slog.Logger
}

func New(r repository.DocumentRepository, find service.Retriever, llm ai.Client, prompts ai.Prompts, log *slog.Logger) *Svc {
	if log == nil {
		log = slog.Default()
	}
	return &Svc{r: r, find: find, llm: llm, prompts: prompts, log: log.With("component", "document")}
}

var _ service.DocumentService = (*Svc)(nil)

func (s *Svc) Create(ctx context.Context, in service.CreateInput, ownerID string) (*entities.Document, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", service.ErrInvalidInput)
	}
	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		docType = "notes"
	}
	if !slices.Contains(entities.DocumentTypes, docType) {
		return nil, fmt.Errorf("%w: unknown document type %q", service.ErrInvalidInput, docType)
	}
	d := &entities.Document{
		Title:               title,
		Content:             in.Content,
		DocumentType:        docType,
		OwnerID:             ownerID,
		Status:              "draft",
		WordCount:           textkit.WordCount(in.Content),
		CitedPublicationIDs: []uint{},
	}
	if err := s.r.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Svc) Get(ctx context.Context, id uint) (*service.DocumentView, error) {
	d, err := s.r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sug, err := s.r.ListSuggestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if sug == nil {
		sug = []entities.CitationSuggestion{}
	}
	return &service.DocumentView{Document: *d, Suggestions: sug}, nil
}

func (s *Svc) UpdateContent(ctx context.Context, id uint, content string) (*entities.Document, error) {
	return s.r.UpdateContent(ctx, id, content, textkit.WordCount(content))
}

// flexID accepts a publication id written as a number or a numeric string.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || v < 0 {
		return fmt.Errorf("publication id %s: not a number", b)
	}
	*f = flexID(v)
	return nil
}

type modelSuggestion struct {
	PublicationID        flexID  `json:"publicationId"`
	RelevanceScore       float64 `json:"relevanceScore"`
	RelevanceExplanation string  `json:"relevanceExplanation"`
	SuggestedCitation    string  `json:"suggestedCitation"`
}

func (s *Svc) SuggestCitations(ctx context.Context, documentID uint, passage string) (*service.SuggestionResult, error) {
	d, err := s.r.FindByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	passage = strings.TrimSpace(passage)
	if passage == "" {
		passage = tail(strings.TrimSpace(d.Content), maxContextChars)
	}
	if passage == "" {
		return nil, fmt.Errorf("%w: context is required for an empty document", service.ErrInvalidInput)
	}

	hits, _, err := s.find.Retrieve(ctx, passage, service.MaxCandidates)
	if err != nil {
		return nil, err
	}
	res := &service.SuggestionResult{Success: true, Suggestions: []entities.CitationSuggestion{}}
	if len(hits) == 0 {
		return res, nil
	}

	cands := make([]ai.CitationCandidate, len(hits))
	byID := make(map[uint]entities.Publication, len(hits))
	for i, h := range hits {
		cands[i] = ai.CitationCandidate{ID: h.Publication.PublicationID, Title: h.Publication.Title}
		byID[h.Publication.PublicationID] = h.Publication
	}
	reply, err := s.llm.Generate(ctx, ai.GenerateRequest{
		Task:         ai.TaskSuggestCitations,
		SystemPrompt: s.prompts.CitationSuggester,
		UserPrompt:   ai.CitationUserPrompt(passage, cands),
		Temperature:  ai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("suggest citations: %w", err)
	}

	var raw []json.RawMessage
	if err := ai.DecodeArray(reply, &raw); err != nil {
		s.log.Warn("citation suggestions unreadable", "document_id", documentID, "err", err)
		return &service.SuggestionResult{Success: false, Suggestions: []entities.CitationSuggestion{}, Raw: reply}, nil
	}

	stored := textkit.Truncate(passage, storedContextChars)
	seen := map[uint]bool{}
	for _, item := range raw {
		var m modelSuggestion
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		pubID := uint(m.PublicationID)
		pub, ok := byID[pubID]
		if !ok || seen[pubID] {
			continue
		}
		seen[pubID] = true
		text := strings.TrimSpace(m.SuggestedCitation)
		if text == "" {
			text = citation.Format(&pub)
		}
		res.Suggestions = append(res.Suggestions, entities.CitationSuggestion{
			DocumentID:     documentID,
			Context:        stored,
			PublicationID:  pubID,
			RelevanceScore: min(max(m.RelevanceScore, 0), 1),
			SuggestedText:  text,
			Explanation:    strings.TrimSpace(m.RelevanceExplanation),
			SuggestionType: "citation",
			Status:         "pending",
		})
	}
	if err := s.r.CreateSuggestions(ctx, res.Suggestions); err != nil {
		return nil, err
	}
	s.log.Info("citations suggested", "document_id", documentID, "candidates", len(hits), "stored", len(res.Suggestions))
	return res, nil
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func (s *Svc) ReviewSuggestion(ctx context.Context, id uint, status, userID string) (*entities.CitationSuggestion, error) {
	status = strings.TrimSpace(status)
	if !slices.Contains(service.ReviewStatuses, status) {
		return nil, fmt.Errorf("%w: status must be one of %s", service.ErrInvalidInput, strings.Join(service.ReviewStatuses, ", "))
	}
	return s.r.ReviewSuggestion(ctx, id, status, userID)
}
