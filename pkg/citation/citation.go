// Package citation formats publication references and validates DOIs.
package citation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"umbra/entities"
)

var doiPattern = regexp.MustCompile(`(?i)^10.\d{4,9}/[-._;()/:A-Z0-9]+$`)

// ValidDOI reports whether doi looks like a registrant-prefixed DOI.
func ValidDOI(doi string) bool {
	return doiPattern.MatchString(strings.TrimSpace(doi))
}

// Format renders a publication as
// `First Author[ et al.] (year). "Title". *NASA Technical Reports Server*. DOI: doi`.
func Format(p *entities.Publication) string {
	author := "Unknown author"
	if len(p.Authors) > 0 {
		author = p.Authors[0]
		if len(p.Authors) > 1 {
			author += " et al."
		}
	}
	return fmt.Sprintf(`%s (%s). "%s". *NASA Technical Reports Server*. DOI: %s`,
		author, Year(p.PublicationDate), p.Title, p.DOI)
}

var yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|2\d{3})\b`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006",
}

// ParseDate reads the loosely formatted dates found on publication pages.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Year extracts a four-digit year from a date string, "n.d." when there is none.
func Year(date string) string {
	if t, ok := ParseDate(date); ok {
		return fmt.Sprint(t.Year())
	}
	if m := yearPattern.FindString(date); m != "" {
		return m
	}
	return "n.d."
}
