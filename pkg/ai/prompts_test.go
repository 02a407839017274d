package ai

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrompts_AllPresent(t *testing.T) {
	p := DefaultPrompts()
	for name, v := range map[string]string{
		"space_biology_expert":    p.SpaceBiologyExpert,
		"entity_extractor":        p.EntityExtractor,
		"relationship_finder":     p.RelationshipFinder,
		"summarizer":              p.Summarizer,
		"citation_suggester":      p.CitationSuggester,
		"research_gap_identifier": p.ResearchGapIdentifier,
		"search_synthesizer":      p.SearchSynthesizer,
	} {
		assert.NotEmpty(t, v, name)
	}
	assert.Contains(t, p.RelationshipFinder, "studied_in")
}

func TestLoadPrompts_OverridesNonEmptyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summarizer: Be brief.\nsearch_synthesizer: \"\"\n"), 0o644))

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", p.Summarizer)
	assert.Equal(t, DefaultPrompts().SearchSynthesizer, p.SearchSynthesizer)

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSearchPrompt_Golden(t *testing.T) {
	docs := []ContextDoc{
		{Title: "Bone loss in mice aboard the ISS", Abstract: "Mice flown for 30 days lost trabecular bone."},
		{Title: "Arabidopsis root growth in microgravity", Abstract: "Roots showed altered gravitropism."},
	}
	prompt := FullPrompt(GenerateRequest{
		SystemPrompt: DefaultPrompts().SearchSynthesizer,
		UserPrompt:   SearchUserPrompt(docs, "How does spaceflight affect bone?"),
	})

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "search_prompt", []byte(prompt))
}

func TestRelationshipUserPrompt(t *testing.T) {
	got := RelationshipUserPrompt([]string{"mice", "ISS"}, "Mice on the ISS.")
	assert.Equal(t, "Given entities: [\"mice\",\"ISS\"]\nPublication abstract: Mice on the ISS.\n\nIdentify relationships and return them as a JSON array.", got)
}

func TestCitationUserPrompt_ListsIDs(t *testing.T) {
	got := CitationUserPrompt("bone loss", []CitationCandidate{{ID: 4, Title: "A"}, {ID: 9, Title: "B"}})
	assert.Contains(t, got, "Document context: \"bone loss\"")
	assert.Contains(t, got, "- 4: A\n- 9: B\n")
}

func TestGapUserPrompt(t *testing.T) {
	got, err := GapUserPrompt(map[string]int{"totalNodes": 2})
	require.NoError(t, err)
	assert.Equal(t, "Knowledge graph summary:\n{\n  \"totalNodes\": 2\n}", got)
}

func TestMock_ShapesOutputPerTask(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	out, err := m.Generate(ctx, GenerateRequest{Task: TaskExtractEntities, UserPrompt: EntityUserPrompt("Mice on the ISS", "Microgravity and bone density")})
	require.NoError(t, err)
	var ents map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &ents))
	assert.Equal(t, []string{"mice"}, ents["organisms"])
	assert.Equal(t, []string{"microgravity"}, ents["experimentalConditions"])
	assert.Equal(t, []string{"bone density"}, ents["biologicalProcesses"])
	assert.Equal(t, []string{"ISS"}, ents["spaceEnvironments"])

	out, err = m.Generate(ctx, GenerateRequest{Task: TaskFindRelationships, UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = m.Generate(ctx, GenerateRequest{Task: TaskSummarize, UserPrompt: SummaryUserPrompt("T", "First finding. Second.", "")})
	require.NoError(t, err)
	assert.Equal(t, "Summary (offline): First finding.", out)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Generate(cctx, GenerateRequest{UserPrompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
