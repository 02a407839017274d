package serviceImp

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"umbra/pkg/textkit"
)

// Paper is what a publication page yields before entity extraction.
type Paper struct {
	Title           string
	Authors         []string
	Abstract        string
	PublicationDate string
	DOI             string
	PDFURL          string
	Keywords        []string
	Methods         string
	Results         string
	Discussion      string
	Conclusions     string
	CitationCount   int
	FullText        string
}

var (
	authorSelectors   = []string{`meta[name="citation_author"]`, `meta[name="authors"]`, ".author", ".authors", ".citation-author", `[data-test-id="author-name"]`}
	abstractSelectors = []string{".abstract", ".Abstract", "#abstract", `[id*="abstract"]`, ".abstract-text", ".abstract-title"}
	dateSelectors     = []string{`meta[name="citation_publication_date"]`, `meta[property*="date"]`, ".pub-date", ".publication-date", ".article-date"}
	doiSelectors      = []string{`meta[name="citation_doi"]`, `meta[name="doi"]`, ".doi", ".DOI", `[id*="doi"]`}
	keywordSelectors  = []string{`meta[name="keywords"]`, ".keyword", ".keywords", ".kwd", ".Keyword"}
	pdfSelectors      = []string{`a[href$=".pdf"]`, `a[title*="PDF"]`, `a[title*="pdf"]`, `a[href*="pdf"]`}
	citedSelectors    = []string{".citation-count", ".cited-by", `[data-test-id*="cited"]`}
)

// sectionRule finds a body section first by heading text, then by selector.
type sectionRule struct {
	keywords  []string
	selectors []string
}

var (
	methodsRule = sectionRule{
		keywords:  []string{"methods", "method", "material", "materials", "materials and methods", "methodology"},
		selectors: []string{".methods", ".method", "#methods", "#method", `[id*="methods"]`, `[id*="method"]`},
	}
	resultsRule = sectionRule{
		keywords:  []string{"results", "result", "findings", "outcome", "outcomes"},
		selectors: []string{".results", "#results", `[id*="results"]`, ".result", "#result", `[id*="result"]`},
	}
	discussionRule = sectionRule{
		keywords:  []string{"discussion", "discuss", "interpretation"},
		selectors: []string{".discussion", "#discussion", `[id*="discussion"]`},
	}
	conclusionsRule = sectionRule{
		keywords:  []string{"conclusion", "conclusions", "summary", "concluding", "final remarks"},
		selectors: []string{".conclusion", ".conclusions", "#conclusion", "#conclusions", `[id*="conclusion"]`},
	}
)

var (
	abstractLabelRX = regexp.MustCompile(`(?i)^\s*abstract\s*`)
	keywordLabelRX  = regexp.MustCompile(`^[Kk]eywords:\s*`)
	digitsRX        = regexp.MustCompile(`\d+`)
	blankLinesRX    = regexp.MustCompile(`\n{3,}`)
	spaceRX         = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// ParsePaper extracts publication metadata and sections from an HTML page.
// base resolves relative links and may be nil.
func ParsePaper(html string, base *url.URL) (Paper, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Paper{}, fmt.Errorf("parse html: %w", err)
	}
	p := Paper{
		Title:           pageTitle(doc),
		Authors:         textkit.Dedupe(allValues(doc, authorSelectors)),
		Abstract:        abstractLabelRX.ReplaceAllString(firstText(doc, abstractSelectors), ""),
		PublicationDate: firstValue(doc, dateSelectors),
		DOI:             firstValue(doc, doiSelectors),
		Keywords:        keywords(doc),
		Methods:         section(doc, methodsRule),
		Results:         section(doc, resultsRule),
		Discussion:      section(doc, discussionRule),
		Conclusions:     section(doc, conclusionsRule),
		PDFURL:          pdfURL(doc, base),
		CitationCount:   citationCount(doc),
	}
	p.DOI = strings.TrimPrefix(strings.TrimPrefix(p.DOI, "https://doi.org/"), "doi:")
	p.FullText, err = fullText(doc)
	if err != nil {
		return Paper{}, err
	}
	return p, nil
}

func clean(s string) string {
	return strings.TrimSpace(spaceRX.ReplaceAllString(s, " "))
}

func pageTitle(doc *goquery.Document) string {
	h := doc.Find("h1, h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return strings.Contains(strings.ToLower(class), "title")
	}).First()
	if t := clean(h.Text()); t != "" {
		return t
	}
	return clean(doc.Find("title").First().Text())
}

// value reads a meta tag's content, or the element text otherwise.
func value(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		v, _ := s.Attr("content")
		return clean(v)
	}
	return clean(s.Text())
}

func firstValue(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if v := value(s); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if t := clean(s.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

// allValues returns every match of the first selector that matches anything.
func allValues(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v := value(s); v != "" {
				out = append(out, v)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return []string{}
}

func section(doc *goquery.Document, rule sectionRule) string {
	for _, level := range []string{"h2", "h3", "h4"} {
		var found string
		doc.Find(level).EachWithBreak(func(_ int, h *goquery.Selection) bool {
			heading := strings.ToLower(clean(h.Text()))
			for _, k := range rule.keywords {
				if strings.Contains(heading, k) {
					found = clean(h.Next().Text())
					return found == ""
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return firstText(doc, rule.selectors)
}

func keywords(doc *goquery.Document) []string {
	raw := firstValue(doc, keywordSelectors)
	out := []string{}
	for _, k := range textkit.SplitList(raw, ",;") {
		if k = strings.TrimSpace(keywordLabelRX.ReplaceAllString(k, "")); k != "" {
			out = append(out, k)
		}
	}
	return textkit.Dedupe(out)
}

func pdfURL(doc *goquery.Document, base *url.URL) string {
	for _, sel := range pdfSelectors {
		href, ok := doc.Find(sel).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		return ref.String()
	}
	return ""
}

func citationCount(doc *goquery.Document) int {
	for _, sel := range citedSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if m := digitsRX.FindString(s.Text()); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return 0
}

var converter = func() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}()

// fullText renders the main content area as markdown.
func fullText(doc *goquery.Document) (string, error) {
	root := doc.Find("main, article, [role=main]").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		root = doc.Selection
	}
	root = root.Clone()
	root.Find("script, style, noscript, nav, header, footer, aside, iframe, form, button").Remove()

	html, err := goquery.OuterHtml(root)
	if err != nil {
		return "", fmt.Errorf("render content: %w", err)
	}
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(blankLinesRX.ReplaceAllString(out, "\n\n")), nil
}
