package service

import (
	"context"
	"errors"

	"umbra/entities"
	"umbra/pkg/jobs"
	"umbra/pkg/publication/repository"
)

var (
	ErrNotFound       = repository.ErrNotFound
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("publication already exists")
	ErrBadModelOutput = errors.New("model output could not be used")
)

type CreateInput struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Abstract        string   `json:"abstract"`
	PublicationDate string   `json:"publication_date"`
	DOI             string   `json:"doi"`
	PDFURL          string   `json:"pdf_url"`
	SourceURL       string   `json:"source_url"`
	JournalName     string   `json:"journal_name"`
	Keywords        []string `json:"keywords"`
	// Process schedules entity extraction right after creation.
	Process bool `json:"process"`
}

type Page struct {
	Items    []entities.Publication `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

type PublicationService interface {
	Create(ctx context.Context, in CreateInput) (*entities.Publication, error)
	List(ctx context.Context, f repository.ListFilter) (Page, error)
	Detail(ctx context.Context, id uint) (*entities.Publication, error)
	ScheduleProcessing(ctx context.Context, id uint) (jobs.Job, error)
	ProcessPublication(ctx context.Context, id uint) error
	Summarize(ctx context.Context, id uint) (string, error)
	Citation(ctx context.Context, id uint) (string, error)
}
