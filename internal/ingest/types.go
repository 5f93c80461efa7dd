package ingest

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/youreka-ca/grant-directory/internal/models"
)

// Page is one candidate program page discovered on a source's listing.
type Page struct {
	Label string
	URL   string
}

// Candidate is the loosely-typed extraction result an adapter produces before
// normalization. Pointer fields distinguish "unknown" from an empty value;
// string fields left "" are treated as absent by the normalizer.
type Candidate struct {
	Name         string
	Description  string
	Eligibility  string
	Category     string
	RegionScope  string
	Country      string
	Province     string
	TeamScope    string
	Language     string
	Currency     string
	NGOOnly      bool
	FundingMin   *float64
	FundingMax   *float64
	DeadlineText string
	// DeadlineDate is set when the adapter already parsed a date (for example
	// out of a guideline PDF); otherwise the normalizer parses DeadlineText.
	DeadlineDate *time.Time
	// DateFormats are tried in order against DeadlineText. Empty means the
	// default format list.
	DateFormats []string
	SourceURL   string
	// ExternalID overrides the default identity key (the source URL) when the
	// URL alone is not unique across a source's variants.
	ExternalID string
}

// Adapter is the per-funding-source fetch+extract capability. Each adapter is
// hand-tuned to one site's markup; adding a source means adding one adapter.
type Adapter interface {
	ID() string
	// OrganizationDefaults describes the owning funding body; the pipeline
	// creates it lazily on first use.
	OrganizationDefaults() models.Organization
	// ListCandidatePages enumerates (label, url) pairs from the source's
	// listing page. A failure here aborts the whole run for this adapter.
	ListCandidatePages(ctx context.Context) ([]Page, error)
	// Extract pulls a candidate record out of one program page. A failure
	// skips that page only; sibling pages are unaffected.
	Extract(ctx context.Context, doc *goquery.Document, pageURL string) (*Candidate, error)
}

// FetchedDocument is the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
}

// Fetcher retrieves raw content from a URL. Implementations must treat
// timeouts and non-2xx statuses as errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// Storage is the repository capability the pipeline consumes. Lookups return
// (nil, nil) / (false, nil) when the record is absent.
type Storage interface {
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GrantExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	CreateGrant(ctx context.Context, grant *models.Grant) error
	// InTx runs fn against a transaction-scoped Storage; all writes made by fn
	// become visible together on success, or none do.
	InTx(ctx context.Context, fn func(Storage) error) error
}

// RunStats summarizes one adapter run.
type RunStats struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Expired    int `json:"expired"`
	Errors     int `json:"errors"`
}

// Skipped is the total of candidates skipped without error.
func (s RunStats) Skipped() int {
	return s.Duplicates + s.Expired
}
