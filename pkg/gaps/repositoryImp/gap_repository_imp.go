package repositoryImp

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"umbra/entities"
	"umbra/pkg/gaps/repository"
)

type gapRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.GapRepository { return &gapRepo{db} }

func (r *gapRepo) CreateBatch(ctx context.Context, gaps []entities.ResearchGap) error {
	if len(gaps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&gaps).Error
}

func (r *gapRepo) FindByID(ctx context.Context, id uint) (*entities.ResearchGap, error) {
	var g entities.ResearchGap
	if err := r.db.WithContext(ctx).First(&g, "gap_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *gapRepo) List(ctx context.Context, status string, limit int) ([]entities.ResearchGap, error) {
	q := r.db.WithContext(ctx).Order("priority_score DESC, gap_id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var gs []entities.ResearchGap
	return gs, q.Limit(limit).Find(&gs).Error
}

func (r *gapRepo) Upvote(ctx context.Context, id uint, userID string) (*entities.ResearchGap, error) {
	var g entities.ResearchGap
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&g, "gap_id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if slices.Contains(g.UpvotedBy, userID) {
			return nil
		}
		g.UpvotedBy = append(g.UpvotedBy, userID)
		g.Upvotes = len(g.UpvotedBy)
		return tx.Save(&g).Error
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gapRepo) UpdateStatus(ctx context.Context, id uint, status string) (*entities.ResearchGap, error) {
	res := r.db.WithContext(ctx).Model(&entities.ResearchGap{}).Where("gap_id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
