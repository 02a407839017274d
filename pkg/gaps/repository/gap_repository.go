package repository

import (
	"context"
	"errors"

	"umbra/entities"
)

var ErrNotFound = errors.New("research gap not found")

type GapRepository interface {
	CreateBatch(ctx context.Context, gaps []entities.ResearchGap) error
	FindByID(ctx context.Context, id uint) (*entities.ResearchGap, error)
	// List orders by priority, highest first. An empty status lists all.
	List(ctx context.Context, status string, limit int) ([]entities.ResearchGap, error)
	// Upvote counts userID once per gap.
	Upvote(ctx context.Context, id uint, userID string) (*entities.ResearchGap, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*entities.ResearchGap, error)
}
