package csvio

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/models"
)

type memStore struct {
	orgs   map[string]*models.Organization
	grants map[string]*models.Grant
}

func newMemStore() *memStore {
	return &memStore{
		orgs:   make(map[string]*models.Organization),
		grants: make(map[string]*models.Grant),
	}
}

func (s *memStore) GetOrganizationByName(_ context.Context, name string) (*models.Organization, error) {
	return s.orgs[name], nil
}

func (s *memStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	s.orgs[org.Name] = org
	return nil
}

func (s *memStore) GrantExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	_, ok := s.grants[externalID]
	return ok, nil
}

func (s *memStore) CreateGrant(_ context.Context, g *models.Grant) error {
	s.grants[g.ExternalID] = g
	return nil
}

func (s *memStore) InTx(_ context.Context, fn func(ingest.Storage) error) error {
	return fn(s)
}

func (s *memStore) CountGrants(_ context.Context) (int, error) {
	return len(s.grants), nil
}

const sample = `name_en,organization,province,funding_max,deadline_date,source_url,external_id
Student Grant,Ontario Government,ON,25000,2026-03-03,https://x.ca/a,
No URL Grant,Anyone,,,,,
Ongoing Grant,,,,,https://x.ca/b,custom-id
`

func TestImport(t *testing.T) {
	store := newMemStore()

	stats, err := Import(context.Background(), store, strings.NewReader(sample), kitlog.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Created: 2, Skipped: 1}, stats)

	g := store.grants["https://x.ca/a"]
	require.NotNil(t, g, "external_id defaults to source_url")
	assert.Equal(t, "Student Grant", g.NameEN)
	require.NotNil(t, g.Province)
	assert.Equal(t, "Ontario", *g.Province, "abbreviation canonicalized")
	require.NotNil(t, g.FundingMax)
	assert.Equal(t, 25000.0, *g.FundingMax)
	require.NotNil(t, g.DeadlineDate)
	assert.Equal(t, "2026-03-03", g.DeadlineDate.Format("2006-01-02"))
	assert.False(t, g.OngoingFlag)

	b := store.grants["custom-id"]
	require.NotNil(t, b)
	assert.True(t, b.OngoingFlag, "no deadline means ongoing")
	assert.Equal(t, "Imported Grants", orgNameFor(t, store, b))
}

func TestImportSkipsExisting(t *testing.T) {
	store := newMemStore()
	store.grants["https://x.ca/a"] = &models.Grant{ExternalID: "https://x.ca/a"}

	stats, err := Import(context.Background(), store, strings.NewReader(sample), kitlog.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 2, stats.Skipped)
}

func TestExportRoundTrip(t *testing.T) {
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	province := "Ontario"
	grants := []models.Grant{
		{
			NameEN:           "Grant One",
			OrganizationName: "Funder",
			RegionScope:      "Provincial",
			Country:          "Canada",
			Province:         &province,
			Currency:         "CAD",
			DeadlineDate:     &deadline,
			Language:         "EN",
			SourceURL:        "https://x.ca/one",
			ExternalID:       "https://x.ca/one",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, grants))

	store := newMemStore()
	stats, err := Import(context.Background(), store, &buf, kitlog.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	g := store.grants["https://x.ca/one"]
	require.NotNil(t, g)
	assert.Equal(t, "Grant One", g.NameEN)
	require.NotNil(t, g.DeadlineDate)
	assert.Equal(t, deadline, *g.DeadlineDate)
}

func TestSeedIfEmptySkipsPopulatedStore(t *testing.T) {
	store := newMemStore()
	store.grants["x"] = &models.Grant{ExternalID: "x"}

	err := SeedIfEmpty(context.Background(), store, "does-not-exist.csv", kitlog.NewNopLogger())
	assert.NoError(t, err, "populated store never touches the seed file")
}

func TestSeedIfEmptyMissingFile(t *testing.T) {
	err := SeedIfEmpty(context.Background(), newMemStore(), "does-not-exist.csv", kitlog.NewNopLogger())
	assert.NoError(t, err)
}

func orgNameFor(t *testing.T, store *memStore, g *models.Grant) string {
	t.Helper()
	for name, org := range store.orgs {
		if org.ID == g.OrganizationID {
			return name
		}
	}
	return ""
}
