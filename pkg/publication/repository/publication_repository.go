package repository

import (
	"context"
	"errors"

	"umbra/entities"
)

var (
	ErrNotFound = errors.New("publication not found")
	// ErrDuplicate reports a second publication for the same source URL.
	ErrDuplicate = errors.New("publication with this source url already exists")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter narrows List. Organisms and Environments match when any listed value
// appears in the publication's extracted entities.
type ListFilter struct {
	Query        string
	Organisms    []string
	Environments []string
	Status       string
	Page         int
	PageSize     int
}

// Normalize clamps paging to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

type PublicationRepository interface {
	Create(ctx context.Context, p *entities.Publication) error
	Update(ctx context.Context, p *entities.Publication) error
	FindByID(ctx context.Context, id uint) (*entities.Publication, error)
	FindBySourceURL(ctx context.Context, url string) (*entities.Publication, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]entities.Publication, error)
	List(ctx context.Context, f ListFilter) ([]entities.Publication, int64, error)
	ListByStatus(ctx context.Context, status string) ([]entities.Publication, error)
	// ListAll returns every publication without full text.
	ListAll(ctx context.Context) ([]entities.Publication, error)
	UpdateStatus(ctx context.Context, id uint, status, lastErr string) error
	UpdateExtracted(ctx context.Context, id uint, e entities.ExtractedEntities) error
	UpdateSummary(ctx context.Context, id uint, summary string) error
	IncrementViews(ctx context.Context, id uint) error
	PublicationDates(ctx context.Context, ids []uint) (map[uint]string, error)
}
