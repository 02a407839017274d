package entities

import "time"

// Processing states of a publication.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Publication struct {
	PublicationID   uint     `gorm:"primaryKey" json:"publication_id"`
	Title           string   `json:"title"`
	Authors         []string `gorm:"serializer:json" json:"authors"`
	Abstract        string   `json:"abstract"`
	PublicationDate string   `gorm:"index" json:"publication_date"`
	DOI             string   `json:"doi,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	SourceURL       string   `gorm:"index" json:"source_url,omitempty"`
	JournalName     string   `json:"journal_name,omitempty"`
	Keywords        []string `gorm:"serializer:json" json:"keywords"`

	FullText    string `json:"-"`
	Methods     string `json:"methods,omitempty"`
	Results     string `json:"results,omitempty"`
	Discussion  string `json:"discussion,omitempty"`
	Conclusions string `json:"conclusions,omitempty"`
	Summary     string `json:"summary,omitempty"`

	// extracted entities
	Organisms              []string `gorm:"serializer:json" json:"organisms"`
	ExperimentalConditions []string `gorm:"serializer:json" json:"experimental_conditions"`
	BiologicalProcesses    []string `gorm:"serializer:json" json:"biological_processes"`
	SpaceEnvironments      []string `gorm:"serializer:json" json:"space_environments"`

	CitationCount int `json:"citation_count"`
	ViewCount     int `json:"view_count"`

	ProcessingStatus string     `gorm:"index;default:pending" json:"processing_status"`
	LastProcessed    *time.Time `json:"last_processed,omitempty"`
	LastError        string     `json:"last_error,omitempty"`

	Embeddings          []Embedding          `gorm:"foreignKey:PublicationID;constraint:OnDelete:CASCADE" json:"-"`
	CitationSuggestions []CitationSuggestion `gorm:"foreignKey:PublicationID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExtractedEntities is the structured output of entity extraction for one publication.
type ExtractedEntities struct {
	Organisms              []string `json:"organisms"`
	ExperimentalConditions []string `json:"experimentalConditions"`
	BiologicalProcesses    []string `json:"biologicalProcesses"`
	SpaceEnvironments      []string `json:"spaceEnvironments"`
}

func (p *Publication) Entities() ExtractedEntities {
	return ExtractedEntities{
		Organisms:              p.Organisms,
		ExperimentalConditions: p.ExperimentalConditions,
		BiologicalProcesses:    p.BiologicalProcesses,
		SpaceEnvironments:      p.SpaceEnvironments,
	}
}

// Count returns the total number of extracted entities across all categories.
func (e ExtractedEntities) Count() int {
	return len(e.Organisms) + len(e.ExperimentalConditions) + len(e.BiologicalProcesses) + len(e.SpaceEnvironments)
}
