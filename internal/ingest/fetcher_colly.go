package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches pages through a colly collector, which brings polite
// crawling defaults (per-domain rate limiting, cookie handling) for sources
// that throttle plain clients.
type CollyFetcher struct {
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
}

func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &CollyFetcher{
		UserAgent: defaultUserAgent,
		Timeout:   timeout,
		Delay:     500 * time.Millisecond,
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(f.UserAgent))
	c.SetRequestTimeout(f.Timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: f.Delay}); err != nil {
		return nil, fmt.Errorf("configure collector: %w", err)
	}

	var doc *FetchedDocument
	c.OnResponse(func(r *colly.Response) {
		doc = &FetchedDocument{
			URL:         url,
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        io.NopCloser(bytes.NewReader(r.Body)),
			FetchedAt:   time.Now().UTC(),
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	c.Wait()
	if doc == nil {
		return nil, fmt.Errorf("fetch %s: empty response", url)
	}
	return doc, nil
}
