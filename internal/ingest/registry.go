package ingest

import (
	"embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all funding sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig wires one adapter to its listing URL and fetch settings.
type SourceConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Adapter     string `yaml:"adapter"` // "canada_esdc", "ontario", "otf"
	BaseURL     string `yaml:"base_url"`
	ListingURL  string `yaml:"listing_url,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Fetcher selects the HTTP client: "http" (default) or "colly" for
	// sources that throttle plain clients.
	Fetcher        string `yaml:"fetcher,omitempty"`
	UserAgent      string `yaml:"user_agent,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // Default: 20

	// Keywords is the case-insensitive allow-list matched against listing
	// section titles. Empty means accept everything.
	Keywords []string `yaml:"keywords,omitempty"`

	// Programs maps fixed program slugs to page paths for sources without a
	// crawlable listing.
	Programs map[string]string `yaml:"programs,omitempty"`
}

// Timeout returns the configured fetch timeout, defaulting to 20 seconds.
func (c SourceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return 20 * time.Second
}

// NewFetcher builds the fetcher this source is configured for.
func (c SourceConfig) NewFetcher() Fetcher {
	var f Fetcher
	switch c.Fetcher {
	case "colly":
		cf := NewCollyFetcher(c.Timeout())
		if c.UserAgent != "" {
			cf.UserAgent = c.UserAgent
		}
		f = cf
	default:
		hf := NewHTTPFetcher(c.Timeout())
		if c.UserAgent != "" {
			hf.UserAgent = c.UserAgent
		}
		f = hf
	}
	return f
}

// LoadRegistry reads the sources config. A non-empty path takes precedence
// over the embedded sources.yaml so operators can override sources locally.
func LoadRegistry(path string) (*Registry, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, err
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}
	return &reg, nil
}

// Source returns the config with the given id.
func (r *Registry) Source(id string) (SourceConfig, bool) {
	for _, s := range r.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}
