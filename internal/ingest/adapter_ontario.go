package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/youreka-ca/grant-directory/internal/models"
)

// OntarioAdapter works the provincial funding-opportunities page: each h2 on
// the listing is a program section, filtered through a keyword allow-list,
// and the section's first link leads to the program's dedicated page.
type OntarioAdapter struct {
	cfg     SourceConfig
	fetcher Fetcher
}

func NewOntarioAdapter(cfg SourceConfig, fetcher Fetcher) *OntarioAdapter {
	return &OntarioAdapter{cfg: cfg, fetcher: fetcher}
}

func (a *OntarioAdapter) ID() string { return a.cfg.ID }

func (a *OntarioAdapter) OrganizationDefaults() models.Organization {
	province := "Ontario"
	return models.Organization{
		Name:     "Ontario Government",
		Type:     "Government",
		Country:  "Canada",
		Province: &province,
	}
}

func (a *OntarioAdapter) ListCandidatePages(ctx context.Context) ([]Page, error) {
	doc, err := fetchDocument(ctx, a.fetcher, a.cfg.ListingURL)
	if err != nil {
		return nil, err
	}

	var pages []Page
	doc.Find("h2").Each(func(_ int, h2 *goquery.Selection) {
		title := CollapseWhitespace(h2.Text())
		if title == "" || strings.Contains(title, "Overview") || strings.Contains(title, "On this page") {
			return
		}
		if !a.matchesKeywords(title) {
			return
		}

		href := nextAnchorHref(h2)
		if href == "" {
			return
		}
		full, err := resolveURL(a.cfg.BaseURL, href)
		if err != nil {
			return
		}
		pages = append(pages, Page{Label: title, URL: full})
	})
	return pages, nil
}

// matchesKeywords is the case-insensitive allow-list applied to section
// titles. Tuning for precision/recall happens in the source config.
func (a *OntarioAdapter) matchesKeywords(title string) bool {
	if len(a.cfg.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(title)
	for _, kw := range a.cfg.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// nextAnchorHref returns the href of the first anchor inside the heading or
// its following siblings.
func nextAnchorHref(heading *goquery.Selection) string {
	if href, ok := heading.Find("a").First().Attr("href"); ok {
		return href
	}
	for sel := heading.Next(); sel.Length() > 0; sel = sel.Next() {
		if goquery.NodeName(sel) == "a" {
			href, _ := sel.Attr("href")
			return href
		}
		if href, ok := sel.Find("a").First().Attr("href"); ok {
			return href
		}
		if headingTags[goquery.NodeName(sel)] {
			break
		}
	}
	return ""
}

func (a *OntarioAdapter) Extract(ctx context.Context, doc *goquery.Document, pageURL string) (*Candidate, error) {
	name := CollapseWhitespace(doc.Find("h1").First().Text())
	if name == "" {
		return nil, fmt.Errorf("no title on %s", pageURL)
	}

	description := ExtractSection(FindHeading(doc, "h2", "about"), []string{"p", "ul"}, 8)
	eligibility := ExtractSection(FindHeading(doc, "h2", "eligibility"), []string{"p", "ul"}, 10)

	var deadlineText string
	if anchor := FindHeading(doc, "h2", "deadline"); anchor != nil {
		deadlineText = ExtractSection(anchor, []string{"p"}, 1)
	}

	// Program pages quote a single "up to" figure, so only the upper bound
	// is derivable from the description.
	fundingMax := ParseCurrencyAmount(description)

	return &Candidate{
		Name:         name,
		Description:  description,
		Eligibility:  eligibility,
		Category:     "Education/Technology",
		RegionScope:  "Provincial",
		Province:     "Ontario",
		FundingMax:   fundingMax,
		DeadlineText: deadlineText,
		DateFormats:  []string{"January 2, 2006"},
		SourceURL:    pageURL,
		// Program pages are sometimes shared between variants, so the title
		// keys the identity instead of the URL. The page's own h1 is used
		// rather than the listing label, which keeps the key stable when the
		// listing renames an entry.
		ExternalID: "ontario-" + name,
	}, nil
}
