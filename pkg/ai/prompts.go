package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompts is the system prompt catalogue.
type Prompts struct {
	SpaceBiologyExpert    string `yaml:"space_biology_expert"`
	EntityExtractor       string `yaml:"entity_extractor"`
	RelationshipFinder    string `yaml:"relationship_finder"`
	Summarizer            string `yaml:"summarizer"`
	CitationSuggester     string `yaml:"citation_suggester"`
	ResearchGapIdentifier string `yaml:"research_gap_identifier"`
	SearchSynthesizer     string `yaml:"search_synthesizer"`
}

// DefaultPrompts returns the embedded catalogue.
func DefaultPrompts() Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPromptsYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts.yaml: %v", err))
	}
	return p
}

// LoadPrompts returns the embedded catalogue with any non-empty entries of the YAML
// file at path laid over it. An empty path yields the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read prompts file: %w", err)
	}
	var over Prompts
	if err := yaml.Unmarshal(b, &over); err != nil {
		return p, fmt.Errorf("parse prompts file: %w", err)
	}
	overlay(&p.SpaceBiologyExpert, over.SpaceBiologyExpert)
	overlay(&p.EntityExtractor, over.EntityExtractor)
	overlay(&p.RelationshipFinder, over.RelationshipFinder)
	overlay(&p.Summarizer, over.Summarizer)
	overlay(&p.CitationSuggester, over.CitationSuggester)
	overlay(&p.ResearchGapIdentifier, over.ResearchGapIdentifier)
	overlay(&p.SearchSynthesizer, over.SearchSynthesizer)
	return p, nil
}

func overlay(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func EntityUserPrompt(title, abstract string) string {
	return fmt.Sprintf("Please extract entities from the following text:\n\nTitle: %s\n\nAbstract: %s", title, abstract)
}

func RelationshipUserPrompt(entityNames []string, abstract string) string {
	names, _ := json.Marshal(entityNames)
	return fmt.Sprintf("Given entities: %s\nPublication abstract: %s\n\nIdentify relationships and return them as a JSON array.", names, abstract)
}

func SummaryUserPrompt(title, abstract, results string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following publication.\n\nTitle: %s\n\nAbstract: %s", title, abstract)
	if strings.TrimSpace(results) != "" {
		fmt.Fprintf(&b, "\n\nResults: %s", results)
	}
	return b.String()
}

// ContextDoc is one retrieved publication shown to the synthesizer.
type ContextDoc struct {
	Title    string
	Abstract string
}

// SearchUserPrompt numbers docs from 1 so the answer can cite them as [Doc N].
func SearchUserPrompt(docs []ContextDoc, question string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("[Doc %d] Title: %s\nAbstract: %s", i+1, d.Title, d.Abstract)
	}
	return fmt.Sprintf("Context from publications:\n%s\n\nUser question: %s", strings.Join(parts, "\n\n"), question)
}

// GapUserPrompt renders the graph statistics as indented JSON.
func GapUserPrompt(stats any) (string, error) {
	b, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	return "Knowledge graph summary:\n" + string(b), nil
}

// CitationCandidate is a publication the model may suggest.
type CitationCandidate struct {
	ID    uint
	Title string
}

func CitationUserPrompt(context string, candidates []CitationCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document context: %q\n\nAvailable publications:\n", context)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %d: %s\n", c.ID, c.Title)
	}
	b.WriteString("\nSuggest relevant publications from the list. Use the number before each title as publicationId.")
	return b.String()
}

// PaperUserPrompt asks for the entities of a whole paper body.
func PaperUserPrompt(title, content string) string {
	return fmt.Sprintf("Analyze the following research paper content and extract its entities.\n\nTitle: %s\n\nPaper Content:\n%s", title, content)
}
