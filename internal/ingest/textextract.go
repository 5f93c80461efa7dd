package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDateFormats are tried in order by ParseDate when an adapter does not
// supply its own list.
var DefaultDateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2006-01-02",
}

var currencyPattern = regexp.MustCompile(`\$\s?([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ParseCurrencyAmount locates the first $-prefixed numeric token in free text
// and returns it as a float, or nil when none is present. Thousands separators
// and surrounding prose are tolerated.
func ParseCurrencyAmount(text string) *float64 {
	m := currencyPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseDate tries each format against the trimmed text, truncated at the
// first " at " occurrence ("March 3, 2026 at 5:00 p.m. ET" parses as the date
// alone). Returns nil when nothing matches; it never fails hard.
func ParseDate(text string, formats []string) *time.Time {
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}
	cleaned := strings.TrimSpace(text)
	if i := strings.Index(cleaned, " at "); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(strings.TrimRight(cleaned, ".,;"))
	if cleaned == "" {
		return nil
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return &t
		}
	}
	return nil
}

// headingTags mark the end of a section when walking forward from an anchor.
var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// FindHeading returns the first node among the given selectors whose text
// contains keyword (case-insensitive), or nil.
func FindHeading(doc *goquery.Document, selector, keyword string) *goquery.Selection {
	lower := strings.ToLower(keyword)
	var found *goquery.Selection
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), lower) {
			found = s
			return false
		}
		return true
	})
	return found
}

// ExtractSection concatenates the text of up to limit following siblings of
// anchor whose tag is in tags, stopping early at the next heading. Returns ""
// when anchor is nil or nothing matches.
func ExtractSection(anchor *goquery.Selection, tags []string, limit int) string {
	if anchor == nil || anchor.Length() == 0 {
		return ""
	}
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[strings.ToLower(t)] = true
	}

	var parts []string
	for sel := anchor.Next(); sel.Length() > 0 && len(parts) < limit; sel = sel.Next() {
		tag := goquery.NodeName(sel)
		if headingTags[tag] {
			break
		}
		if !wanted[tag] {
			continue
		}
		if text := CollapseWhitespace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims and folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
