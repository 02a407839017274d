package entities

import "time"

var DocumentTypes = []string{"research_paper", "review_article", "grant_proposal", "mission_plan", "technical_report", "notes"}

type Document struct {
	DocumentID          uint      `gorm:"primaryKey" json:"document_id"`
	Title               string    `json:"title"`
	Content             string    `json:"content"`
	DocumentType        string    `gorm:"default:notes" json:"document_type"`
	OwnerID             string    `gorm:"index" json:"owner_id"`
	Status              string    `gorm:"index;default:draft" json:"status"` // draft|in_review|published|archived
	WordCount           int       `json:"word_count"`
	CitedPublicationIDs []uint    `gorm:"serializer:json" json:"cited_publication_ids"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	Suggestions []CitationSuggestion `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

type CitationSuggestion struct {
	SuggestionID   uint       `gorm:"primaryKey" json:"suggestion_id"`
	DocumentID     uint       `gorm:"index;not null" json:"document_id"`
	Context        string     `json:"context"`
	PublicationID  uint       `gorm:"index;not null" json:"publication_id"`
	RelevanceScore float64    `json:"relevance_score"`
	SuggestedText  string     `json:"suggested_text"`
	Explanation    string     `json:"explanation"`
	SuggestionType string     `gorm:"default:citation" json:"suggestion_type"`
	Status         string     `gorm:"index;default:pending" json:"status"`
	AcceptedBy     string     `json:"accepted_by,omitempty"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
