package repository

import (
	"context"
	"errors"

	"umbra/entities"
)

var ErrNotFound = errors.New("graph element not found")

type GraphRepository interface {
	FindNode(ctx context.Context, id uint) (*entities.KnowledgeNode, error)
	FindNodeByCanonical(ctx context.Context, canonical string) (*entities.KnowledgeNode, error)
	// SaveNode inserts a node without an id and updates it otherwise.
	SaveNode(ctx context.Context, n *entities.KnowledgeNode) error
	FindEdge(ctx context.Context, source, target uint, relType string) (*entities.KnowledgeEdge, error)
	SaveEdge(ctx context.Context, e *entities.KnowledgeEdge) error

	Nodes(ctx context.Context) ([]entities.KnowledgeNode, error)
	Edges(ctx context.Context) ([]entities.KnowledgeEdge, error)
	NodesByIDs(ctx context.Context, ids []uint) ([]entities.KnowledgeNode, error)
	// EdgesOf returns edges with nodeID at either end.
	EdgesOf(ctx context.Context, nodeID uint) ([]entities.KnowledgeEdge, error)
	SearchNodes(ctx context.Context, q, nodeType string, limit int) ([]entities.KnowledgeNode, error)

	UpdateImportance(ctx context.Context, importance map[uint]float64) error
	UpdatePositions(ctx context.Context, pos map[uint][2]float64) error
}
