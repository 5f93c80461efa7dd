package ingest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youreka-ca/grant-directory/internal/models"
)

func TestComputeExternalID(t *testing.T) {
	c := &Candidate{SourceURL: "https://example.ca/grants/a"}
	assert.Equal(t, "https://example.ca/grants/a", ComputeExternalID(c))

	c.ExternalID = "ontario-Student Grant"
	assert.Equal(t, "ontario-Student Grant", ComputeExternalID(c))
}

func TestIsExpired(t *testing.T) {
	today := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	past := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sameDay := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsExpired(&past, today))
	assert.False(t, IsExpired(&sameDay, today), "deadline today is still open")
	assert.False(t, IsExpired(&future, today))
	assert.False(t, IsExpired(nil, today), "no deadline never expires")
}

func TestBuildGrantDefaults(t *testing.T) {
	org := &models.Organization{Name: "Government of Canada"}
	org.ID = uuid.New()

	c := &Candidate{
		Name:        "  Youth  Employment Program ",
		Description: "Funding for <b>youth</b> projects.",
		SourceURL:   "https://canada.ca/en/program",
	}

	g := BuildGrant(c, org)
	assert.Equal(t, "Youth Employment Program", g.NameEN)
	require.NotNil(t, g.DescriptionEN)
	assert.Equal(t, "Funding for youth projects.", *g.DescriptionEN, "markup stripped")
	assert.Nil(t, g.EligibilityEN, "blank coerced to absent")
	assert.Equal(t, "CAD", g.Currency)
	assert.Equal(t, "EN", g.Language)
	assert.Equal(t, "Canada", g.Country)
	assert.Equal(t, "National", g.RegionScope)
	assert.True(t, g.OngoingFlag, "no deadline means ongoing")
	assert.Equal(t, "https://canada.ca/en/program", g.ExternalID)
	assert.Equal(t, org.ID, g.OrganizationID)
}

func TestBuildGrantDeadlineAndProvince(t *testing.T) {
	org := &models.Organization{Name: "Ontario Trillium Foundation"}
	org.ID = uuid.New()

	c := &Candidate{
		Name:         "Grow Grant",
		Province:     "ON",
		RegionScope:  "Provincial",
		DeadlineText: "March 3, 2026 at 5:00 p.m. ET",
		DateFormats:  []string{"January 2, 2006"},
		SourceURL:    "https://otf.ca/grow",
	}

	g := BuildGrant(c, org)
	require.NotNil(t, g.DeadlineDate)
	assert.Equal(t, "2026-03-03", g.DeadlineDate.Format("2006-01-02"))
	assert.False(t, g.OngoingFlag)
	require.NotNil(t, g.Province)
	assert.Equal(t, "Ontario", *g.Province)
	assert.Equal(t, "Provincial", g.RegionScope)
}

func TestResolveDeadlinePrefersParsedDate(t *testing.T) {
	d := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c := &Candidate{DeadlineDate: &d, DeadlineText: "June 9, 2026"}
	got := ResolveDeadline(c)
	require.NotNil(t, got)
	assert.Equal(t, d, *got)
}
