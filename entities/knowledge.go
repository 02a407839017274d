package entities

import "time"

// Node types.
const (
	NodeOrganism              = "organism"
	NodeBiologicalProcess     = "biological_process"
	NodeExperimentalCondition = "experimental_condition"
	NodeSpaceEnvironment      = "space_environment"
	NodeFinding               = "finding"
	NodeHypothesis            = "hypothesis"
	NodeUnknown               = "unknown"
)

// Relationship types.
const (
	RelAffects        = "affects"
	RelStudiedIn      = "studied_in"
	RelCauses         = "causes"
	RelCorrelatesWith = "correlates_with"
	RelPartOf         = "part_of"
	RelSimilarTo      = "similar_to"
	RelContradicts    = "contradicts"
)

var RelationshipTypes = []string{
	RelAffects, RelStudiedIn, RelCauses, RelCorrelatesWith, RelPartOf, RelSimilarTo, RelContradicts,
}

func ValidRelationship(t string) bool {
	for _, r := range RelationshipTypes {
		if r == t {
			return true
		}
	}
	return false
}

type KnowledgeNode struct {
	NodeID         uint     `gorm:"primaryKey" json:"node_id"`
	NodeType       string   `gorm:"index" json:"node_type"`
	Name           string   `json:"name"`
	CanonicalName  string   `gorm:"uniqueIndex" json:"-"`
	Description    string   `json:"description,omitempty"`
	Aliases        []string `gorm:"serializer:json" json:"aliases"`
	XPosition      *float64 `json:"x,omitempty"`
	YPosition      *float64 `json:"y,omitempty"`
	Frequency      int      `json:"frequency"`
	Importance     float64  `json:"importance"`
	PublicationIDs []uint   `gorm:"serializer:json" json:"publication_ids"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type KnowledgeEdge struct {
	EdgeID           uint     `gorm:"primaryKey" json:"edge_id"`
	SourceNodeID     uint     `gorm:"uniqueIndex:idx_edge_triple;not null" json:"source_node_id"`
	TargetNodeID     uint     `gorm:"uniqueIndex:idx_edge_triple;index;not null" json:"target_node_id"`
	RelationshipType string   `gorm:"uniqueIndex:idx_edge_triple" json:"relationship_type"`
	Strength         float64  `json:"strength"`
	Confidence       float64  `json:"confidence"`
	PublicationIDs   []uint   `gorm:"serializer:json" json:"publication_ids"`
	EvidenceCount    int      `json:"evidence_count"`
	ContextSnippets  []string `gorm:"serializer:json" json:"context_snippets"`
	FirstObserved    string   `json:"first_observed,omitempty"`
	LastObserved     string   `json:"last_observed,omitempty"`

	Source KnowledgeNode `gorm:"foreignKey:SourceNodeID;constraint:OnDelete:CASCADE" json:"-"`
	Target KnowledgeNode `gorm:"foreignKey:TargetNodeID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
