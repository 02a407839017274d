package service

import (
	"context"
	"errors"

	"umbra/entities"
	"umbra/pkg/gaps/repository"
	graphservice "umbra/pkg/graph/service"
)

var (
	ErrNotFound       = repository.ErrNotFound
	ErrInvalidInput   = errors.New("invalid input")
	ErrBadModelOutput = errors.New("model output could not be used")
)

// GraphSource is the part of the knowledge graph gap analysis reads.
type GraphSource interface {
	Stats(ctx context.Context) (*graphservice.Stats, error)
	Graph(ctx context.Context) (*graphservice.Graph, error)
}

type GapService interface {
	// Identify asks the model for gaps in the current graph and stores the usable ones.
	Identify(ctx context.Context) ([]entities.ResearchGap, error)
	List(ctx context.Context, status string, limit int) ([]entities.ResearchGap, error)
	Upvote(ctx context.Context, id uint, userID string) (*entities.ResearchGap, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*entities.ResearchGap, error)
}
