package repositoryImp

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"umbra/entities"
	"umbra/pkg/graph/repository"
	"umbra/pkg/textkit"
)

type graphRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.GraphRepository { return &graphRepo{db} }

func (r *graphRepo) FindNode(ctx context.Context, id uint) (*entities.KnowledgeNode, error) {
	var n entities.KnowledgeNode
	if err := r.db.WithContext(ctx).First(&n, "node_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *graphRepo) FindNodeByCanonical(ctx context.Context, canonical string) (*entities.KnowledgeNode, error) {
	var n entities.KnowledgeNode
	if err := r.db.WithContext(ctx).Where("canonical_name = ?", canonical).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *graphRepo) SaveNode(ctx context.Context, n *entities.KnowledgeNode) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *graphRepo) FindEdge(ctx context.Context, source, target uint, relType string) (*entities.KnowledgeEdge, error) {
	var e entities.KnowledgeEdge
	err := r.db.WithContext(ctx).
		Where("source_node_id = ? AND target_node_id = ? AND relationship_type = ?", source, target, relType).
		First(&e).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *graphRepo) SaveEdge(ctx context.Context, e *entities.KnowledgeEdge) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(e).Error
}

func (r *graphRepo) Nodes(ctx context.Context) ([]entities.KnowledgeNode, error) {
	var ns []entities.KnowledgeNode
	return ns, r.db.WithContext(ctx).Order("node_id").Find(&ns).Error
}

func (r *graphRepo) Edges(ctx context.Context) ([]entities.KnowledgeEdge, error) {
	var es []entities.KnowledgeEdge
	return es, r.db.WithContext(ctx).Order("edge_id").Find(&es).Error
}

func (r *graphRepo) NodesByIDs(ctx context.Context, ids []uint) ([]entities.KnowledgeNode, error) {
	var ns []entities.KnowledgeNode
	if len(ids) == 0 {
		return ns, nil
	}
	return ns, r.db.WithContext(ctx).Where("node_id IN ?", ids).Order("node_id").Find(&ns).Error
}

func (r *graphRepo) EdgesOf(ctx context.Context, nodeID uint) ([]entities.KnowledgeEdge, error) {
	var es []entities.KnowledgeEdge
	err := r.db.WithContext(ctx).
		Where("source_node_id = ? OR target_node_id = ?", nodeID, nodeID).
		Order("edge_id").
		Find(&es).Error
	return es, err
}

func (r *graphRepo) SearchNodes(ctx context.Context, q, nodeType string, limit int) ([]entities.KnowledgeNode, error) {
	tx := r.db.WithContext(ctx).Model(&entities.KnowledgeNode{})
	if s := strings.TrimSpace(q); s != "" {
		like := "%" + textkit.EscapeLike(strings.ToLower(s)) + "%"
		tx = tx.Where(`(canonical_name LIKE ? ESCAPE '\' OR LOWER(aliases) LIKE ? ESCAPE '\')`, like, like)
	}
	if nodeType != "" {
		tx = tx.Where("node_type = ?", nodeType)
	}
	var ns []entities.KnowledgeNode
	return ns, tx.Order("importance DESC, node_id").Limit(limit).Find(&ns).Error
}

func (r *graphRepo) UpdateImportance(ctx context.Context, importance map[uint]float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, v := range importance {
			if err := tx.Model(&entities.KnowledgeNode{}).Where("node_id = ?", id).Update("importance", v).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *graphRepo) UpdatePositions(ctx context.Context, pos map[uint][2]float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, p := range pos {
			err := tx.Model(&entities.KnowledgeNode{}).Where("node_id = ?", id).
				Updates(map[string]any{"x_position": p[0], "y_position": p[1]}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
