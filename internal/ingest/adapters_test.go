package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestCanadaESDCListCandidatePages(t *testing.T) {
	const listing = `<html><body><main>
		<a href="/en/employment-social-development/services/funding/youth-employment.html">Youth Employment</a>
		<a href="/en/employment-social-development/services/funding/skills-link.html">Skills Link</a>
		<a href="/en/employment-social-development/services/funding/youth-employment.html">Youth Employment (again)</a>
		<a href="/en/employment-social-development/services/funding/gcos-login.html">GCOS sign in</a>
		<a href="/en/employment-social-development/services/funding/programs.html">All programs</a>
		<a href="/en/contact.html">Contact us</a>
	</main></body></html>`

	cfg := SourceConfig{
		ID:         "canada_esdc",
		Adapter:    "canada_esdc",
		BaseURL:    "https://www.canada.ca",
		ListingURL: "https://www.canada.ca/funding/programs.html",
	}
	fetcher := &fakeFetcher{pages: map[string]string{cfg.ListingURL: listing}}
	adapter := NewCanadaESDCAdapter(cfg, fetcher)

	pages, err := adapter.ListCandidatePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2, "skip list, path filter and URL dedupe applied")
	assert.Equal(t, "Youth Employment", pages[0].Label)
	assert.Equal(t, "https://www.canada.ca/en/employment-social-development/services/funding/youth-employment.html", pages[0].URL)
	assert.Equal(t, "Skills Link", pages[1].Label)
}

func TestCanadaESDCExtract(t *testing.T) {
	const page = `<html><body><main>
		<h1>Youth Employment and Skills Strategy</h1>
		<p>Funding to help young Canadians get work experience.</p>
		<p>Second paragraph ignored.</p>
	</main></body></html>`

	adapter := NewCanadaESDCAdapter(SourceConfig{ID: "canada_esdc"}, nil)
	c, err := adapter.Extract(context.Background(), mustDoc(t, page), "https://www.canada.ca/prog")
	require.NoError(t, err)

	assert.Equal(t, "Youth Employment and Skills Strategy", c.Name)
	assert.Equal(t, "Funding to help young Canadians get work experience.", c.Description)
	assert.Equal(t, "National", c.RegionScope)
	assert.Equal(t, "https://www.canada.ca/prog", c.SourceURL)
	assert.Empty(t, c.ExternalID, "identity defaults to the source URL")
}

func TestCanadaESDCExtractNoTitle(t *testing.T) {
	adapter := NewCanadaESDCAdapter(SourceConfig{ID: "canada_esdc"}, nil)
	_, err := adapter.Extract(context.Background(), mustDoc(t, "<html><body></body></html>"), "https://x.ca")
	assert.Error(t, err)
}

func TestOntarioListCandidatePages(t *testing.T) {
	const listing = `<html><body>
		<h2>Overview</h2>
		<p><a href="/page/overview">About this page</a></p>
		<h2>Student research grants</h2>
		<p>Support for student-led projects. <a href="/page/student-research">Learn more</a></p>
		<h2>Agricultural land programs</h2>
		<p><a href="/page/agriculture">Learn more</a></p>
		<h2>Youth skills initiative</h2>
		<p><a href="/page/youth-skills">Apply</a></p>
	</body></html>`

	cfg := SourceConfig{
		ID:         "ontario",
		Adapter:    "ontario",
		BaseURL:    "https://www.ontario.ca",
		ListingURL: "https://www.ontario.ca/page/funding",
		Keywords:   []string{"student", "youth"},
	}
	fetcher := &fakeFetcher{pages: map[string]string{cfg.ListingURL: listing}}
	adapter := NewOntarioAdapter(cfg, fetcher)

	pages, err := adapter.ListCandidatePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2, "Overview skipped, keyword allow-list applied")
	assert.Equal(t, "Student research grants", pages[0].Label)
	assert.Equal(t, "https://www.ontario.ca/page/student-research", pages[0].URL)
	assert.Equal(t, "Youth skills initiative", pages[1].Label)
}

func TestOntarioExtract(t *testing.T) {
	const page = `<html><body>
		<h1>Student Research Grant</h1>
		<h2>About the program</h2>
		<p>Grants of up to $25,000 for student research teams.</p>
		<ul><li>Open across Ontario</li></ul>
		<h2>Eligibility</h2>
		<p>Applicants must be enrolled full time.</p>
		<h2>Deadline</h2>
		<p>March 3, 2026 at 5:00 p.m. ET</p>
	</body></html>`

	adapter := NewOntarioAdapter(SourceConfig{ID: "ontario"}, nil)
	c, err := adapter.Extract(context.Background(), mustDoc(t, page), "https://www.ontario.ca/page/student-research")
	require.NoError(t, err)

	assert.Equal(t, "Student Research Grant", c.Name)
	assert.Contains(t, c.Description, "student research teams")
	assert.Contains(t, c.Eligibility, "enrolled full time")
	assert.Equal(t, "March 3, 2026 at 5:00 p.m. ET", c.DeadlineText)
	assert.Equal(t, "ontario-Student Research Grant", c.ExternalID)
	require.NotNil(t, c.FundingMax)
	assert.Equal(t, 25000.0, *c.FundingMax)
	assert.Equal(t, "Ontario", c.Province)

	deadline := ResolveDeadline(c)
	require.NotNil(t, deadline)
	assert.Equal(t, "2026-03-03", deadline.Format("2006-01-02"))
}

func TestOntarioExtractMissingSections(t *testing.T) {
	const page = `<html><body><h1>Sparse Program</h1><p>Nothing structured.</p></body></html>`

	adapter := NewOntarioAdapter(SourceConfig{ID: "ontario"}, nil)
	c, err := adapter.Extract(context.Background(), mustDoc(t, page), "https://www.ontario.ca/page/sparse")
	require.NoError(t, err, "missing headings are a structure miss, not an error")
	assert.Empty(t, c.Description)
	assert.Empty(t, c.Eligibility)
	assert.Empty(t, c.DeadlineText)
}

func TestOTFListCandidatePages(t *testing.T) {
	cfg := SourceConfig{
		ID:      "otf",
		Adapter: "otf",
		BaseURL: "https://otf.ca",
		Programs: map[string]string{
			"seed": "/our-grants/seed-grant",
			"grow": "/our-grants/grow-grant",
		},
	}
	adapter := NewOTFAdapter(cfg, nil)

	pages, err := adapter.ListCandidatePages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "grow", pages[0].Label, "deterministic order")
	assert.Equal(t, "https://otf.ca/our-grants/grow-grant", pages[0].URL)
	assert.Equal(t, "seed", pages[1].Label)
}

func TestOTFListCandidatePagesEmpty(t *testing.T) {
	adapter := NewOTFAdapter(SourceConfig{ID: "otf"}, nil)
	_, err := adapter.ListCandidatePages(context.Background())
	assert.Error(t, err)
}

func TestOTFExtract(t *testing.T) {
	const page = `<html><body>
		<h1>Grow Grant</h1>
		<p>Multi-year funding to scale proven programs.</p>
		<p><strong>Application deadline:</strong> June 17, 2026</p>
	</body></html>`

	adapter := NewOTFAdapter(SourceConfig{ID: "otf", BaseURL: "https://otf.ca"}, nil)
	c, err := adapter.Extract(context.Background(), mustDoc(t, page), "https://otf.ca/our-grants/grow-grant")
	require.NoError(t, err)

	assert.Equal(t, "Grow Grant", c.Name)
	assert.Contains(t, c.Description, "scale proven programs")
	assert.Contains(t, c.DeadlineText, "June 17, 2026")
	assert.Equal(t, "Community", c.Category)
	assert.Equal(t, "Regional", c.TeamScope)
}

func TestOTFDeadlineTextLabelParent(t *testing.T) {
	const page = `<html><body>
		<p><b>Deadline</b> to apply is November 5, 2025.</p>
	</body></html>`

	got := otfDeadlineText(mustDoc(t, page))
	assert.Equal(t, "Deadline to apply is November 5, 2025.", got)
}

func TestBuildAdapter(t *testing.T) {
	tests := []struct {
		adapter string
		ok      bool
	}{
		{"canada_esdc", true},
		{"ontario", true},
		{"otf", true},
		{"unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.adapter, func(t *testing.T) {
			a, f, err := BuildAdapter(SourceConfig{ID: "src", Adapter: tt.adapter})
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, a)
			assert.NotNil(t, f)
		})
	}
}
