package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/youreka-ca/grant-directory/internal/models"
)

var sanitizer = bluemonday.StrictPolicy()

// ResolveOrganization looks the organization up by exact name and creates it
// from the adapter's defaults when absent. The create is persisted immediately
// so later candidates in the same run reuse the same row.
func ResolveOrganization(ctx context.Context, store Storage, defaults models.Organization) (*models.Organization, error) {
	org, err := store.GetOrganizationByName(ctx, defaults.Name)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return org, nil
	}

	org = &defaults
	if err := store.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization %q: %w", defaults.Name, err)
	}
	return org, nil
}

// ComputeExternalID returns the candidate's identity key. The source URL is
// the default; adapters override it when the URL is not unique across a
// source's program variants.
func ComputeExternalID(c *Candidate) string {
	if c.ExternalID != "" {
		return c.ExternalID
	}
	return c.SourceURL
}

// ResolveDeadline returns the candidate's deadline date, parsing DeadlineText
// when the adapter did not already supply one.
func ResolveDeadline(c *Candidate) *time.Time {
	if c.DeadlineDate != nil {
		return c.DeadlineDate
	}
	return ParseDate(c.DeadlineText, c.DateFormats)
}

// IsExpired reports whether the deadline is strictly before today. Grants
// without a deadline are never expired.
func IsExpired(deadline *time.Time, today time.Time) bool {
	if deadline == nil {
		return false
	}
	y, m, d := today.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return deadline.Before(midnight)
}

// BuildGrant maps a candidate onto the canonical schema, applying defaults
// (CAD, EN, Canada) and coercing blank strings to absent. Descriptions and
// eligibility text are sanitized of any markup the extraction let through.
func BuildGrant(c *Candidate, org *models.Organization) *models.Grant {
	deadline := ResolveDeadline(c)

	g := &models.Grant{
		NameEN:         CollapseWhitespace(c.Name),
		DescriptionEN:  optionalText(c.Description),
		EligibilityEN:  optionalText(c.Eligibility),
		OrganizationID: org.ID,
		Category:       optional(c.Category),
		RegionScope:    defaultStr(c.RegionScope, "National"),
		Country:        defaultStr(c.Country, "Canada"),
		TeamScope:      optional(c.TeamScope),
		FundingMin:     c.FundingMin,
		FundingMax:     c.FundingMax,
		Currency:       defaultStr(c.Currency, "CAD"),
		DeadlineDate:   deadline,
		OngoingFlag:    deadline == nil,
		Language:       defaultStr(c.Language, "EN"),
		IsNGOOnly:      c.NGOOnly,
		SourceURL:      c.SourceURL,
		ExternalID:     ComputeExternalID(c),
	}
	if p := models.CanonicalProvince(c.Province); p != "" {
		g.Province = &p
	}
	return g
}

func optionalText(s string) *string {
	cleaned := CollapseWhitespace(sanitizer.Sanitize(s))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func optional(s string) *string {
	trimmed := CollapseWhitespace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultStr(s, fallback string) string {
	if trimmed := CollapseWhitespace(s); trimmed != "" {
		return trimmed
	}
	return fallback
}
