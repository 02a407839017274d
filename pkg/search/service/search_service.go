package service

import (
	"context"
	"errors"

	"umbra/entities"
	"umbra/pkg/search/repository"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// Retrieval modes, also used as the search latency metric label.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type SearchRequest struct {
	Query   string                 `json:"query"`
	UserID  string                 `json:"-"`
	Filters entities.SearchFilters `json:"filters"`
}

// Source is a retrieved publication with its retrieval score.
type Source struct {
	Publication    entities.Publication `json:"publication"`
	RelevanceScore float64              `json:"relevance_score"`
}

type Result struct {
	QueryID        uint     `json:"query_id"`
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	Mode           string   `json:"mode"`
	ResponseTimeMS int64    `json:"response_time_ms"`
}

type SearchService interface {
	// Search retrieves publications for a natural-language question and synthesizes
	// an answer grounded in them.
	Search(ctx context.Context, req SearchRequest) (*Result, error)
	// Retrieve ranks publications for text without synthesis or persistence.
	Retrieve(ctx context.Context, text string, limit int) ([]Source, string, error)
	History(ctx context.Context, userID string, limit int) ([]entities.SearchQuery, error)
	RecordClick(ctx context.Context, queryID, publicationID uint) error
}
