package repositoryImp

import (
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"umbra/entities"
	"umbra/pkg/document/repository"
)

type docRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.DocumentRepository { return &docRepo{db} }

func (r *docRepo) Create(ctx context.Context, d *entities.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *docRepo) FindByID(ctx context.Context, id uint) (*entities.Document, error) {
	var d entities.Document
	if err := r.db.WithContext(ctx).First(&d, "document_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *docRepo) UpdateContent(ctx context.Context, id uint, content string, wordCount int) (*entities.Document, error) {
	res := r.db.WithContext(ctx).Model(&entities.Document{}).Where("document_id = ?", id).
		Updates(map[string]any{"content": content, "word_count": wordCount})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *docRepo) CreateSuggestions(ctx context.Context, s []entities.CitationSuggestion) error {
	if len(s) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&s).Error
}

func (r *docRepo) ListSuggestions(ctx context.Context, documentID uint) ([]entities.CitationSuggestion, error) {
	var out []entities.CitationSuggestion
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).
		Order("relevance_score DESC, suggestion_id").Find(&out).Error
	return out, err
}

func (r *docRepo) ReviewSuggestion(ctx context.Context, id uint, status, userID string) (*entities.CitationSuggestion, error) {
	var s entities.CitationSuggestion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, "suggestion_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrSuggestionNotFound
			}
			return err
		}
		s.Status = status
		if status == "accepted" || status == "modified" {
			now := time.Now()
			s.AcceptedBy, s.AcceptedAt = userID, &now
		}
		if err := tx.Omit(clause.Associations).Save(&s).Error; err != nil {
			return err
		}
		if status != "accepted" {
			return nil
		}

		var d entities.Document
		if err := tx.First(&d, "document_id = ?", s.DocumentID).Error; err != nil {
			return err
		}
		if slices.Contains(d.CitedPublicationIDs, s.PublicationID) {
			return nil
		}
		d.CitedPublicationIDs = append(d.CitedPublicationIDs, s.PublicationID)
		return tx.Save(&d).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
