package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/youreka-ca/grant-directory/internal/models"
)

// CanadaESDCAdapter walks the federal employment-and-social-development
// funding index and extracts one record per linked program page.
type CanadaESDCAdapter struct {
	cfg     SourceConfig
	fetcher Fetcher
}

// Paths the program index links to that are not program pages.
var esdcSkipPaths = []string{"gcos", "userguide", "register", "service-standards", "programs.html"}

const esdcProgramPathPrefix = "/employment-social-development/services/funding/"

func NewCanadaESDCAdapter(cfg SourceConfig, fetcher Fetcher) *CanadaESDCAdapter {
	return &CanadaESDCAdapter{cfg: cfg, fetcher: fetcher}
}

func (a *CanadaESDCAdapter) ID() string { return a.cfg.ID }

func (a *CanadaESDCAdapter) OrganizationDefaults() models.Organization {
	return models.Organization{
		Name:    "Government of Canada - ESDC",
		Type:    "Government",
		Country: "Canada",
	}
}

func (a *CanadaESDCAdapter) ListCandidatePages(ctx context.Context) ([]Page, error) {
	doc, err := fetchDocument(ctx, a.fetcher, a.cfg.ListingURL)
	if err != nil {
		return nil, err
	}

	root := doc.Find("main")
	if root.Length() == 0 {
		root = doc.Selection
	}

	seen := make(map[string]bool)
	var pages []Page
	root.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := CollapseWhitespace(s.Text())
		if href == "" || text == "" {
			return
		}
		for _, skip := range esdcSkipPaths {
			if strings.Contains(href, skip) {
				return
			}
		}
		if !strings.Contains(href, esdcProgramPathPrefix) {
			return
		}
		full, err := resolveURL(a.cfg.BaseURL, href)
		if err != nil || seen[full] {
			return
		}
		seen[full] = true
		pages = append(pages, Page{Label: text, URL: full})
	})
	return pages, nil
}

func (a *CanadaESDCAdapter) Extract(ctx context.Context, doc *goquery.Document, pageURL string) (*Candidate, error) {
	// A missing h1 means the page layout changed; skipping the page keeps
	// URL-named placeholder records out of the directory.
	name := CollapseWhitespace(doc.Find("h1").First().Text())
	if name == "" {
		return nil, fmt.Errorf("no title on %s", pageURL)
	}

	root := doc.Find("main")
	if root.Length() == 0 {
		root = doc.Selection
	}

	return &Candidate{
		Name:        name,
		Description: CollapseWhitespace(root.Find("p").First().Text()),
		RegionScope: "National",
		TeamScope:   "National",
		SourceURL:   pageURL,
	}, nil
}

// fetchDocument fetches a URL and parses it as HTML.
func fetchDocument(ctx context.Context, fetcher Fetcher, pageURL string) (*goquery.Document, error) {
	fetched, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer fetched.Body.Close()

	doc, err := goquery.NewDocumentFromReader(fetched.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func resolveURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
