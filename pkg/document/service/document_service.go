package service

import (
	"context"
	"errors"

	"umbra/entities"
	"umbra/pkg/document/repository"
	searchservice "umbra/pkg/search/service"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrSuggestionNotFound = repository.ErrSuggestionNotFound
	ErrInvalidInput       = errors.New("invalid input")
)

// MaxCandidates bounds the publications offered to the model per request.
const MaxCandidates = 10

var ReviewStatuses = []string{"accepted", "rejected", "modified"}

// Retriever ranks publications for a passage of text.
type Retriever interface {
	Retrieve(ctx context.Context, text string, limit int) ([]searchservice.Source, string, error)
}

type CreateInput struct {
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

type DocumentView struct {
	entities.Document
	Suggestions []entities.CitationSuggestion `json:"suggestions"`
}

// SuggestionResult carries the stored suggestions, or the raw model text when it
// could not be read.
type SuggestionResult struct {
	Success     bool                          `json:"success"`
	Suggestions []entities.CitationSuggestion `json:"suggestions"`
	Raw         string                        `json:"raw,omitempty"`
}

type DocumentService interface {
	Create(ctx context.Context, in CreateInput, ownerID string) (*entities.Document, error)
	Get(ctx context.Context, id uint) (*DocumentView, error)
	// UpdateContent replaces the whole content and recounts words.
	UpdateContent(ctx context.Context, id uint, content string) (*entities.Document, error)
	SuggestCitations(ctx context.Context, documentID uint, passage string) (*SuggestionResult, error)
	ReviewSuggestion(ctx context.Context, id uint, status, userID string) (*entities.CitationSuggestion, error)
}
