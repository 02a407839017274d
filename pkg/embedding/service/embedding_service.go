package service

import (
	"context"
	"errors"

	pubrepo "umbra/pkg/publication/repository"
)

var (
	ErrNotFound = pubrepo.ErrNotFound
	ErrDisabled = errors.New("no embedding provider configured")
)

// MaxSectionChars caps the text embedded per section.
const MaxSectionChars = 8000

type EmbeddingService interface {
	// GenerateForPublication embeds the non-empty sections of a publication and
	// replaces its stored embeddings. It returns the number stored.
	GenerateForPublication(ctx context.Context, publicationID uint) (int, error)
}
