package repository

import (
	"context"
	"errors"

	"umbra/entities"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrSuggestionNotFound = errors.New("citation suggestion not found")
)

type DocumentRepository interface {
	Create(ctx context.Context, d *entities.Document) error
	FindByID(ctx context.Context, id uint) (*entities.Document, error)
	UpdateContent(ctx context.Context, id uint, content string, wordCount int) (*entities.Document, error)

	CreateSuggestions(ctx context.Context, s []entities.CitationSuggestion) error
	ListSuggestions(ctx context.Context, documentID uint) ([]entities.CitationSuggestion, error)
	// ReviewSuggestion sets a suggestion's status; accepting it cites the
	// publication in its document once.
	ReviewSuggestion(ctx context.Context, id uint, status, userID string) (*entities.CitationSuggestion, error)
}
