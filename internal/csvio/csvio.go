// Package csvio moves grants in and out of the flat CSV format used for
// seeding fresh databases and for spreadsheet handoffs.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/log"
	"github.com/youreka-ca/grant-directory/internal/models"
)

var header = []string{
	"name_en", "name_fr",
	"description_en", "description_fr",
	"eligibility_en", "eligibility_fr",
	"organization",
	"category", "region_scope", "country", "province",
	"team_scope", "individual_type",
	"funding_min", "funding_max", "currency",
	"deadline_date", "ongoing_flag",
	"language", "is_ngo_only",
	"source_url", "external_id",
}

const dateLayout = "2006-01-02"

// Export writes grants as CSV, one row per grant.
func Export(w io.Writer, grants []models.Grant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, g := range grants {
		row := []string{
			g.NameEN, deref(g.NameFR),
			deref(g.DescriptionEN), deref(g.DescriptionFR),
			deref(g.EligibilityEN), deref(g.EligibilityFR),
			g.OrganizationName,
			deref(g.Category), g.RegionScope, g.Country, deref(g.Province),
			deref(g.TeamScope), deref(g.IndividualType),
			formatFloat(g.FundingMin), formatFloat(g.FundingMax), g.Currency,
			formatDate(g.DeadlineDate), strconv.FormatBool(g.OngoingFlag),
			g.Language, strconv.FormatBool(g.IsNGOOnly),
			g.SourceURL, g.ExternalID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", g.ExternalID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportStats summarizes one import.
type ImportStats struct {
	Created int
	Skipped int
}

// Import reads CSV rows and inserts grants that are not already present. Rows
// without a source URL are skipped; duplicates are detected by external ID,
// falling back to the source URL. Each row commits independently so one bad
// row does not lose the rest.
func Import(ctx context.Context, store ingest.Storage, r io.Reader, logger log.Logger) (ImportStats, error) {
	var stats ImportStats

	cr := csv.NewReader(r)
	cols, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(cols))
	for i, name := range cols {
		index[strings.TrimSpace(name)] = i
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row: %w", err)
		}
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		sourceURL := field("source_url")
		if sourceURL == "" {
			stats.Skipped++
			continue
		}
		externalID := field("external_id")
		if externalID == "" {
			externalID = sourceURL
		}

		exists, err := store.GrantExistsByExternalID(ctx, externalID)
		if err != nil {
			return stats, err
		}
		if exists {
			stats.Skipped++
			continue
		}

		orgName := field("organization")
		if orgName == "" {
			orgName = "Imported Grants"
		}

		err = store.InTx(ctx, func(tx ingest.Storage) error {
			org, err := ingest.ResolveOrganization(ctx, tx, models.Organization{
				Name:    orgName,
				Type:    "Unknown",
				Country: "Canada",
			})
			if err != nil {
				return err
			}
			return tx.CreateGrant(ctx, grantFromRow(field, org, sourceURL, externalID))
		})
		if err != nil {
			stats.Skipped++
			log.Error(logger, "row import failed", err, "external_id", externalID)
			continue
		}
		stats.Created++
	}
	return stats, nil
}

func grantFromRow(field func(string) string, org *models.Organization, sourceURL, externalID string) *models.Grant {
	deadline := parseDate(field("deadline_date"))
	g := &models.Grant{
		NameEN:         field("name_en"),
		NameFR:         optional(field("name_fr")),
		DescriptionEN:  optional(field("description_en")),
		DescriptionFR:  optional(field("description_fr")),
		EligibilityEN:  optional(field("eligibility_en")),
		EligibilityFR:  optional(field("eligibility_fr")),
		OrganizationID: org.ID,
		Category:       optional(field("category")),
		RegionScope:    fallback(field("region_scope"), "National"),
		Country:        fallback(field("country"), "Canada"),
		TeamScope:      optional(field("team_scope")),
		IndividualType: optional(field("individual_type")),
		FundingMin:     parseFloat(field("funding_min")),
		FundingMax:     parseFloat(field("funding_max")),
		Currency:       fallback(field("currency"), "CAD"),
		DeadlineDate:   deadline,
		OngoingFlag:    parseBool(field("ongoing_flag")) || deadline == nil,
		Language:       fallback(field("language"), "EN"),
		IsNGOOnly:      parseBool(field("is_ngo_only")),
		SourceURL:      sourceURL,
		ExternalID:     externalID,
	}
	if p := models.CanonicalProvince(field("province")); p != "" {
		g.Province = &p
	}
	return g
}

// SeedIfEmpty imports path when the grants table has no rows yet. A missing
// seed file is not an error.
func SeedIfEmpty(ctx context.Context, store SeedStore, path string, logger log.Logger) error {
	n, err := store.CountGrants(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Warn(logger, "seed file not found, skipping seed", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := Import(ctx, store, f, logger)
	if err != nil {
		return fmt.Errorf("seed from %s: %w", path, err)
	}
	log.Info(logger, "seeded grants from csv", "path", path, "created", stats.Created, "skipped", stats.Skipped)
	return nil
}

// SeedStore is the storage surface seeding needs.
type SeedStore interface {
	ingest.Storage
	CountGrants(ctx context.Context) (int, error)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	// Exports sometimes carry a time component; the date part is enough.
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
