// pkg/ai/client.go

package ai

import (
	"context"
	"strings"
)

// Task names what a generation is for; it labels metrics and lets the offline
// client answer in the right shape.
type Task string

const (
	TaskExtractEntities   Task = "extract_entities"
	TaskFindRelationships Task = "find_relationships"
	TaskSummarize         Task = "summarize"
	TaskSuggestCitations  Task = "suggest_citations"
	TaskIdentifyGaps      Task = "identify_gaps"
	TaskSynthesize        Task = "synthesize"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

type GenerateRequest struct {
	Task         Task
	SystemPrompt string
	UserPrompt   string
	Context      string
	// nil uses DefaultTemperature; 0 is deterministic.
	Temperature *float64
	MaxTokens   int
}

func (r GenerateRequest) temperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

func (r GenerateRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Float returns a pointer to v, for GenerateRequest.Temperature.
func Float(v float64) *float64 { return &v }

type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Model() string
}

// FullPrompt folds the system prompt, optional context and user request into the
// single message sent to the provider.
func FullPrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString(req.SystemPrompt)
	b.WriteString("\n\n")
	if req.Context != "" {
		b.WriteString("Context: ")
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("User request: ")
	b.WriteString(req.UserPrompt)
	return b.String()
}
