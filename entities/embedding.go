package entities

import "time"

// Section names an embedded part of a publication.
const (
	SectionTitle        = "title"
	SectionAbstract     = "abstract"
	SectionIntroduction = "introduction"
	SectionMethods      = "methods"
	SectionResults      = "results"
	SectionDiscussion   = "discussion"
	SectionConclusion   = "conclusion"
	SectionFullText     = "full_text"
)

type Embedding struct {
	EmbeddingID   uint   `gorm:"primaryKey" json:"embedding_id"`
	PublicationID uint   `gorm:"index;not null" json:"publication_id"`
	Section       string `gorm:"index" json:"section"`
	Vector        []byte `json:"-"`
	TextContent   string `json:"text_content"`
	StartPosition *int   `json:"start_position,omitempty"`
	EndPosition   *int   `json:"end_position,omitempty"`
	CreatedAt     time.Time
}
