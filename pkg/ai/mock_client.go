// pkg/ai/mock_client.go

package ai

import (
	"context"
	"encoding/json"
	"strings"

	"umbra/pkg/textkit"
)

type mockClient struct{}

// NewMock returns the offline client used when no provider key is configured.
// Its answers are deterministic and shaped like the real model's for each task.
func NewMock() Client { return &mockClient{} }

func (m *mockClient) Model() string { return "mock" }

func (m *mockClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch req.Task {
	case TaskExtractEntities:
		b, err := json.Marshal(textkit.ExtractEntities(req.UserPrompt))
		if err != nil {
			return "", err
		}
		return string(b), nil
	case TaskFindRelationships, TaskSuggestCitations, TaskIdentifyGaps:
		return "[]", nil
	case TaskSummarize:
		return "Summary (offline): " + firstSentence(afterLabel(req.UserPrompt, "Abstract: ")), nil
	default:
		return "No language model is configured; showing the most relevant publications only.", nil
	}
}

func afterLabel(s, label string) string {
	if i := strings.Index(s, label); i >= 0 {
		s = s[i+len(label):]
	}
	if i := strings.Index(s, "\n\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
