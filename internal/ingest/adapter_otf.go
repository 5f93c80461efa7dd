package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/youreka-ca/grant-directory/internal/models"
)

// OTFAdapter covers the Ontario Trillium Foundation's fixed set of program
// pages. There is no crawlable listing; the program paths live in the source
// config and change rarely.
type OTFAdapter struct {
	cfg     SourceConfig
	fetcher Fetcher
	now     func() time.Time
}

func NewOTFAdapter(cfg SourceConfig, fetcher Fetcher) *OTFAdapter {
	return &OTFAdapter{cfg: cfg, fetcher: fetcher, now: time.Now}
}

func (a *OTFAdapter) ID() string { return a.cfg.ID }

func (a *OTFAdapter) OrganizationDefaults() models.Organization {
	province := "Ontario"
	return models.Organization{
		Name:     "Ontario Trillium Foundation",
		Type:     "Foundation",
		Country:  "Canada",
		Province: &province,
	}
}

func (a *OTFAdapter) ListCandidatePages(ctx context.Context) ([]Page, error) {
	if len(a.cfg.Programs) == 0 {
		return nil, fmt.Errorf("source %s has no programs configured", a.cfg.ID)
	}

	slugs := make([]string, 0, len(a.cfg.Programs))
	for slug := range a.cfg.Programs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	pages := make([]Page, 0, len(slugs))
	for _, slug := range slugs {
		full, err := resolveURL(a.cfg.BaseURL, a.cfg.Programs[slug])
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", slug, err)
		}
		pages = append(pages, Page{Label: slug, URL: full})
	}
	return pages, nil
}

func (a *OTFAdapter) Extract(ctx context.Context, doc *goquery.Document, pageURL string) (*Candidate, error) {
	name := CollapseWhitespace(doc.Find("h1").First().Text())
	if name == "" {
		name = "OTF Grant"
	}

	c := &Candidate{
		Name:        name,
		Description: CollapseWhitespace(doc.Find("p").First().Text()),
		Category:    "Community",
		RegionScope: "Provincial",
		Province:    "Ontario",
		TeamScope:   "Regional",
		DateFormats: []string{"January 2, 2006"},
		SourceURL:   pageURL,
	}

	c.DeadlineText = otfDeadlineText(doc)
	if ParseDate(c.DeadlineText, c.DateFormats) == nil {
		// The page itself carries no usable deadline; program guideline PDFs
		// usually do.
		if d := a.deadlineFromGuidelinePDF(ctx, doc); d != nil {
			c.DeadlineDate = d
		}
	}
	return c, nil
}

// otfDeadlineText finds the first bolded "deadline" label and returns its
// surrounding block text.
func otfDeadlineText(doc *goquery.Document) string {
	var text string
	doc.Find("strong, b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), "deadline") {
			return true
		}
		if parent := s.Parent(); parent.Length() > 0 {
			text = CollapseWhitespace(parent.Text())
		}
		return false
	})
	return text
}

// deadlineFromGuidelinePDF looks for a linked guideline PDF on the page and
// scans it for the next upcoming date. Any failure is swallowed; a missing
// deadline is a structure miss, not an error.
func (a *OTFAdapter) deadlineFromGuidelinePDF(ctx context.Context, doc *goquery.Document) *time.Time {
	var pdfURL string
	doc.Find("a[href$='.pdf']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		full, err := resolveURL(a.cfg.BaseURL, href)
		if err != nil {
			return true
		}
		pdfURL = full
		return false
	})
	if pdfURL == "" {
		return nil
	}

	deadline, err := NextDeadlineFromPDF(ctx, a.fetcher, pdfURL, a.now())
	if err != nil {
		return nil
	}
	return deadline
}
