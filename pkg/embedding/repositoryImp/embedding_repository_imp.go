package repositoryImp

import (
	"context"

	"gorm.io/gorm"

	"umbra/entities"
	"umbra/pkg/embedding/repository"
)

type repo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.EmbeddingRepository { return &repo{db} }

func (r *repo) ReplaceForPublication(ctx context.Context, publicationID uint, rows []entities.Embedding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("publication_id = ?", publicationID).Delete(&entities.Embedding{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].PublicationID = publicationID
		}
		return tx.Create(&rows).Error
	})
}

func (r *repo) ListByPublication(ctx context.Context, publicationID uint) ([]entities.Embedding, error) {
	var es []entities.Embedding
	return es, r.db.WithContext(ctx).Where("publication_id = ?", publicationID).Order("embedding_id").Find(&es).Error
}

func (r *repo) All(ctx context.Context) ([]entities.Embedding, error) {
	var es []entities.Embedding
	return es, r.db.WithContext(ctx).Find(&es).Error
}
