package entities

import "time"

var (
	GapTypes    = []string{"organism_understudied", "condition_untested", "process_unclear", "conflicting_results", "limited_sample_size"}
	GapImpacts  = []string{"critical", "high", "medium", "low"}
	GapStatuses = []string{"identified", "under_investigation", "funded", "resolved"}
)

type ResearchGap struct {
	GapID                 uint      `gorm:"primaryKey" json:"gap_id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	GapType               string    `gorm:"index" json:"gap_type"`
	RelatedNodeIDs        []uint    `gorm:"serializer:json" json:"related_node_ids"`
	RelatedPublicationIDs []uint    `gorm:"serializer:json" json:"related_publication_ids"`
	PriorityScore         float64   `gorm:"index" json:"priority_score"`
	PotentialImpact       string    `gorm:"index" json:"potential_impact"`
	RelevantMissions      []string  `gorm:"serializer:json" json:"relevant_missions"`
	Upvotes               int       `json:"upvotes"`
	UpvotedBy             []string  `gorm:"serializer:json" json:"-"`
	Status                string    `gorm:"index;default:identified" json:"status"`
	IdentifiedAt          time.Time `json:"identified_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
