// Package textkit holds the small text heuristics shared by seeding, search
// fallback and graph building.
package textkit

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"umbra/entities"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "in": {}, "on": {}, "of": {}, "for": {},
	"to": {}, "and": {}, "is": {}, "with": {}, "as": {}, "were": {}, "was": {},
}

// Seed dictionaries used for offline entity extraction.
var (
	Organisms = []string{"Arabidopsis thaliana", "wheat", "lettuce", "mice", "C. elegans", "fruit flies",
		"E. coli", "yeast", "bacteria", "human", "rodent"}
	Conditions = []string{"microgravity", "radiation", "temperature", "hypergravity", "cosmic radiation",
		"ionizing radiation", "altered gravity", "hypoxia"}
	Environments = []string{"ISS", "International Space Station", "simulated Mars", "LEO", "Low Earth Orbit",
		"parabolic flight", "spaceflight"}
	Processes = []string{"gene expression", "protein synthesis", "cell division", "cell differentiation",
		"bone density", "muscle atrophy", "circadian rhythms", "stress response", "DNA repair"}
)

// ExtractKeywords lowercases text, drops punctuation and returns the words longer
// than three characters that are not stop words, in order of appearance.
func ExtractKeywords(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	out := []string{}
	for _, w := range strings.Fields(b.String()) {
		if len([]rune(w)) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// RelevanceScore is the fraction of the document's words that appear in the query.
func RelevanceScore(query, doc string) float64 {
	docWords := strings.Fields(strings.ToLower(doc))
	if len(docWords) == 0 {
		return 0
	}
	q := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		q[w] = struct{}{}
	}
	hits := 0
	for _, w := range docWords {
		if _, ok := q[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(docWords))
}

// DictionaryEntities returns the entries of list found in text (case-insensitive
// containment), unique, in list order.
func DictionaryEntities(text string, list []string) []string {
	lower := strings.ToLower(text)
	seen := map[string]struct{}{}
	out := []string{}
	for _, e := range list {
		if _, dup := seen[e]; dup {
			continue
		}
		if strings.Contains(lower, strings.ToLower(e)) {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// ExtractEntities runs every seed dictionary over text.
func ExtractEntities(text string) entities.ExtractedEntities {
	return entities.ExtractedEntities{
		Organisms:              DictionaryEntities(text, Organisms),
		ExperimentalConditions: DictionaryEntities(text, Conditions),
		BiologicalProcesses:    DictionaryEntities(text, Processes),
		SpaceEnvironments:      DictionaryEntities(text, Environments),
	}
}

var folder = cases.Fold()

// Canonical is the identity key of an entity name: NFKC, case folded, inner
// whitespace collapsed and trimmed.
func Canonical(name string) string {
	s := norm.NFKC.String(name)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE wildcards in s; pair it with ESCAPE '\'.
func EscapeLike(s string) string { return likeEscaper.Replace(s) }

// WordCount counts whitespace separated words.
func WordCount(s string) int { return len(strings.Fields(s)) }

// SplitList splits on any of seps, trims entries and drops empty ones.
func SplitList(s string, seps string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe trims entries, drops empty ones and keeps the first spelling of names
// that share a canonical form.
func Dedupe(list []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := Canonical(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
