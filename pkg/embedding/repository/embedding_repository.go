package repository

import (
	"context"

	"umbra/entities"
)

type EmbeddingRepository interface {
	// ReplaceForPublication swaps all embeddings of a publication in one transaction.
	ReplaceForPublication(ctx context.Context, publicationID uint, rows []entities.Embedding) error
	ListByPublication(ctx context.Context, publicationID uint) ([]entities.Embedding, error)
	All(ctx context.Context) ([]entities.Embedding, error)
}
