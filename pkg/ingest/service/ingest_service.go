package service

import (
	"context"
	"errors"

	"umbra/entities"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrURLRejected  = errors.New("url not allowed")
	ErrDuplicate    = errors.New("publication already ingested")
	ErrFetch        = errors.New("fetch failed")
)

// ExtractionChars caps the paper text sent for entity extraction.
const ExtractionChars = 40000

// SourceRow is one line of the ingestion source list.
type SourceRow struct {
	Title string
	Link  string
}

type FailedPaper struct {
	Row       int    `json:"row"`
	Title     string `json:"title"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Progress is the resumable state of a batch run, persisted as JSON.
type Progress struct {
	LastProcessedRow   int           `json:"last_processed_row"`
	TotalRows          int           `json:"total_rows"`
	LastProcessedTitle string        `json:"last_processed_title"`
	Timestamp          string        `json:"timestamp"`
	FailedPapers       []FailedPaper `json:"failed_papers"`
}

type RunReport struct {
	RunID     string `json:"run_id"`
	TotalRows int    `json:"total_rows"`
	StartRow  int    `json:"start_row"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

type SeedResult struct {
	Success      bool   `json:"success"`
	Seeded       int    `json:"seeded"`
	Skipped      int    `json:"skipped"`
	TotalRecords int    `json:"total_records"`
	Error        string `json:"error,omitempty"`
}

type URLInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type IngestService interface {
	// Run ingests every row of the source file after the last processed row
	// recorded in the progress file.
	Run(ctx context.Context, sourcePath string) (RunReport, error)
	IngestURL(ctx context.Context, in URLInput) (*entities.Publication, error)
	SeedFromCSV(ctx context.Context, content string) (SeedResult, error)
}
