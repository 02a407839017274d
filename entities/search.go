package entities

import "time"

type SearchFilters struct {
	Organisms         []string `json:"organisms,omitempty"`
	SpaceEnvironments []string `json:"space_environments,omitempty"`
	DateFrom          string   `json:"date_from,omitempty"`
	DateTo            string   `json:"date_to,omitempty"`
}

type SourceAttribution struct {
	PublicationID  uint    `json:"publication_id"`
	RelevanceScore float64 `json:"relevance_score"`
}

type SearchQuery struct {
	QueryID              uint                `gorm:"primaryKey" json:"query_id"`
	UserID               string              `gorm:"index" json:"user_id,omitempty"`
	Query                string              `json:"query"`
	QueryType            string              `json:"query_type"` // natural_language|keyword
	Filters              SearchFilters       `gorm:"serializer:json" json:"filters"`
	ResultCount          int                 `json:"result_count"`
	ResultPublicationIDs []uint              `gorm:"serializer:json" json:"result_publication_ids"`
	ClickedResults       []uint              `gorm:"serializer:json" json:"clicked_results"`
	ResponseTimeMS       int64               `json:"response_time_ms"`
	SynthesizedAnswer    string              `json:"synthesized_answer,omitempty"`
	SourceAttribution    []SourceAttribution `gorm:"serializer:json" json:"source_attribution,omitempty"`
	CreatedAt            time.Time           `gorm:"index" json:"created_at"`
}
