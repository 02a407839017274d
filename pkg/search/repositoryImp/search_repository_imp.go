package repositoryImp

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"umbra/entities"
	"umbra/pkg/search/repository"
)

type searchRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.SearchRepository { return &searchRepo{db} }

func (r *searchRepo) Create(ctx context.Context, q *entities.SearchQuery) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *searchRepo) FindByID(ctx context.Context, id uint) (*entities.SearchQuery, error) {
	var q entities.SearchQuery
	if err := r.db.WithContext(ctx).First(&q, "query_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *searchRepo) History(ctx context.Context, userID string, limit int) ([]entities.SearchQuery, error) {
	var qs []entities.SearchQuery
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, query_id DESC").
		Limit(limit).
		Find(&qs).Error
	return qs, err
}

func (r *searchRepo) AddClick(ctx context.Context, id, publicationID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q entities.SearchQuery
		if err := tx.First(&q, "query_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if slices.Contains(q.ClickedResults, publicationID) {
			return nil
		}
		q.ClickedResults = append(q.ClickedResults, publicationID)
		return tx.Save(&q).Error
	})
}
