package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	rpdf "rsc.io/pdf"
)

// Some foundations publish application deadlines only inside guideline PDFs.
// These helpers pull every dated line out of a PDF so an adapter can pick the
// next upcoming deadline when the program page itself carries none.

var pdfDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+20\d{2}\b`),
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`),
}

var pdfDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"2006-01-02",
	"1/2/2006",
}

// extractPDFText renders every page's text fragments into one string. The
// parser panics on some malformed files, so the panic is converted to an
// error here.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// datesInText returns every parseable date mentioned in text, ascending and
// deduplicated.
func datesInText(text string) []time.Time {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, pattern := range pdfDatePatterns {
		for _, token := range pattern.FindAllString(text, -1) {
			for _, layout := range pdfDateLayouts {
				t, err := time.Parse(layout, strings.TrimSpace(token))
				if err != nil {
					continue
				}
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// nextDateOnOrAfter returns the earliest date mentioned in text that falls on
// or after today, or nil when no such date is present.
func nextDateOnOrAfter(text string, today time.Time) *time.Time {
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for _, date := range datesInText(text) {
		if !date.Before(midnight) {
			return &date
		}
	}
	return nil
}

// NextDeadlineFromPDF fetches a guideline PDF and returns the earliest date in
// it that falls on or after today, or nil when the PDF mentions no usable
// date. Fetch and parse failures are returned so the caller can treat them as
// a structure miss rather than aborting the page.
func NextDeadlineFromPDF(ctx context.Context, fetcher Fetcher, pdfURL string, today time.Time) (*time.Time, error) {
	doc, err := fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	defer doc.Body.Close()

	content, err := io.ReadAll(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", pdfURL, err)
	}

	text, err := extractPDFText(content)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text %s: %w", pdfURL, err)
	}

	return nextDateOnOrAfter(text, today), nil
}
