package repository

import (
	"context"
	"errors"

	"umbra/entities"
)

var ErrNotFound = errors.New("search query not found")

type SearchRepository interface {
	Create(ctx context.Context, q *entities.SearchQuery) error
	FindByID(ctx context.Context, id uint) (*entities.SearchQuery, error)
	// History lists a user's queries newest first; an empty userID lists anonymous ones.
	History(ctx context.Context, userID string, limit int) ([]entities.SearchQuery, error)
	// AddClick records publicationID as clicked once per query.
	AddClick(ctx context.Context, id, publicationID uint) error
}
