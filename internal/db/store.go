package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same Store
// methods work inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// InTx runs fn with a Store bound to a single transaction. The transaction
// commits only if fn returns nil; any error rolls back every write fn made.
func (s *Store) InTx(ctx context.Context, fn func(ingest.Storage) error) error {
	if s.pool == nil {
		return errors.New("store is already transaction-scoped")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Organizations ---

const orgCols = `id, name, type, ngo_only, website_url, country, province, created_at, updated_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	var typ *string
	err := row.Scan(&o.ID, &o.Name, &typ, &o.NGOOnly, &o.WebsiteURL, &o.Country, &o.Province, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if typ != nil {
		o.Type = *typ
	}
	return &o, nil
}

// GetOrganizationByName looks an organization up by exact name. Returns
// (nil, nil) when no row matches.
func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	row := s.q.QueryRow(ctx, "SELECT "+orgCols+" FROM organizations WHERE name = $1", name)
	org, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization %q: %w", name, err)
	}
	return org, nil
}

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.q.Exec(ctx, `
		INSERT INTO organizations (id, name, type, ngo_only, website_url, country, province, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		org.ID, org.Name, nilIfEmpty(org.Type), org.NGOOnly, org.WebsiteURL, org.Country, org.Province, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create organization %q: %w", org.Name, err)
	}
	return nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.q.Query(ctx, "SELECT "+orgCols+" FROM organizations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

// --- Grants ---

const grantCols = `g.id, g.name_en, g.name_fr, g.description_en, g.description_fr,
	g.eligibility_en, g.eligibility_fr, g.organization_id, o.name,
	g.category, g.region_scope, g.country, g.province, g.team_scope, g.individual_type,
	g.funding_min, g.funding_max, g.currency, g.deadline_date, g.ongoing_flag,
	g.language, g.is_ngo_only, g.source_url, g.external_id, g.created_at, g.updated_at`

func scanGrant(row pgx.Row) (*models.Grant, error) {
	var g models.Grant
	var sourceURL *string
	err := row.Scan(
		&g.ID, &g.NameEN, &g.NameFR, &g.DescriptionEN, &g.DescriptionFR,
		&g.EligibilityEN, &g.EligibilityFR, &g.OrganizationID, &g.OrganizationName,
		&g.Category, &g.RegionScope, &g.Country, &g.Province, &g.TeamScope, &g.IndividualType,
		&g.FundingMin, &g.FundingMax, &g.Currency, &g.DeadlineDate, &g.OngoingFlag,
		&g.Language, &g.IsNGOOnly, &sourceURL, &g.ExternalID, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sourceURL != nil {
		g.SourceURL = *sourceURL
	}
	return &g, nil
}

// GrantExistsByExternalID is the pipeline's deduplication check.
func (s *Store) GrantExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM grants WHERE external_id = $1)", externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check external_id %q: %w", externalID, err)
	}
	return exists, nil
}

func (s *Store) CreateGrant(ctx context.Context, g *models.Grant) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.q.Exec(ctx, `
		INSERT INTO grants (
			id, name_en, name_fr, description_en, description_fr,
			eligibility_en, eligibility_fr, organization_id,
			category, region_scope, country, province, team_scope, individual_type,
			funding_min, funding_max, currency, deadline_date, ongoing_flag,
			language, is_ngo_only, source_url, external_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25
		)`,
		g.ID, g.NameEN, g.NameFR, g.DescriptionEN, g.DescriptionFR,
		g.EligibilityEN, g.EligibilityFR, g.OrganizationID,
		g.Category, g.RegionScope, g.Country, g.Province, g.TeamScope, g.IndividualType,
		g.FundingMin, g.FundingMax, g.Currency, g.DeadlineDate, g.OngoingFlag,
		g.Language, g.IsNGOOnly, nilIfEmpty(g.SourceURL), g.ExternalID, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create grant %q: %w", g.ExternalID, err)
	}
	return nil
}

func (s *Store) GetGrantByID(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	row := s.q.QueryRow(ctx,
		"SELECT "+grantCols+" FROM grants g JOIN organizations o ON o.id = g.organization_id WHERE g.id = $1", id)
	g, err := scanGrant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grant %s: %w", id, err)
	}
	return g, nil
}

func (s *Store) CountGrants(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM grants").Scan(&n); err != nil {
		return 0, fmt.Errorf("count grants: %w", err)
	}
	return n, nil
}

// GrantFilters mirrors the listing page's multi-filter search.
type GrantFilters struct {
	RegionID       *uuid.UUID
	Province       string
	NGOOnly        bool
	MinAmount      *float64
	MaxAmount      *float64
	Category       string
	Language       string
	TeamScope      string
	IndividualType string
	DeadlineBefore *time.Time
	OngoingOnly    bool
	Limit          int
	Offset         int
}

// buildGrantFilters renders the WHERE clauses and ordered args for a filter
// set. Kept as a pure function so the query shape is testable without a DB.
func buildGrantFilters(f GrantFilters) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.RegionID != nil {
		add(`EXISTS (SELECT 1 FROM grant_statuses gs WHERE gs.grant_id = g.id AND gs.region_id = $%d)`, *f.RegionID)
	}
	if f.Province != "" {
		add(`g.province = $%d`, models.CanonicalProvince(f.Province))
	}
	if f.NGOOnly {
		clauses = append(clauses, `g.is_ngo_only = TRUE`)
	}
	if f.MinAmount != nil {
		add(`g.funding_max >= $%d`, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		add(`g.funding_min <= $%d`, *f.MaxAmount)
	}
	if f.Category != "" {
		add(`g.category = $%d`, f.Category)
	}
	if f.Language != "" {
		add(`g.language = $%d`, f.Language)
	}
	if f.TeamScope != "" {
		add(`g.team_scope = $%d`, f.TeamScope)
	}
	if f.IndividualType != "" {
		add(`g.individual_type = $%d`, f.IndividualType)
	}
	if f.DeadlineBefore != nil {
		add(`g.deadline_date IS NOT NULL AND g.deadline_date <= $%d`, *f.DeadlineBefore)
	}
	if f.OngoingOnly {
		clauses = append(clauses, `g.ongoing_flag = TRUE`)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListGrants returns grants matching the filters, ordered by deadline with
// undated (ongoing) grants last.
func (s *Store) ListGrants(ctx context.Context, f GrantFilters) ([]models.Grant, error) {
	where, args := buildGrantFilters(f)

	query := "SELECT " + grantCols + " FROM grants g JOIN organizations o ON o.id = g.organization_id" + where +
		" ORDER BY g.deadline_date IS NULL, g.deadline_date ASC, g.name_en ASC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// --- Grant statuses ---

// UpsertGrantStatus creates the (grant, region) status row on the first
// update and overwrites tracked fields afterwards.
func (s *Store) UpsertGrantStatus(ctx context.Context, st *models.GrantStatus) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.LastUpdated = time.Now().UTC()

	_, err := s.q.Exec(ctx, `
		INSERT INTO grant_statuses (id, grant_id, region_id, status, notes, budget_allocated, amount_applied, amount_awarded, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (grant_id, region_id) DO UPDATE SET
			status = EXCLUDED.status,
			notes = COALESCE(EXCLUDED.notes, grant_statuses.notes),
			budget_allocated = COALESCE(EXCLUDED.budget_allocated, grant_statuses.budget_allocated),
			amount_applied = COALESCE(EXCLUDED.amount_applied, grant_statuses.amount_applied),
			amount_awarded = COALESCE(EXCLUDED.amount_awarded, grant_statuses.amount_awarded),
			last_updated = EXCLUDED.last_updated`,
		st.ID, st.GrantID, st.RegionID, st.Status, st.Notes, st.BudgetAllocated, st.AmountApplied, st.AmountAwarded, st.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert grant status: %w", err)
	}
	return nil
}

func (s *Store) GetGrantStatus(ctx context.Context, grantID, regionID uuid.UUID) (*models.GrantStatus, error) {
	var st models.GrantStatus
	err := s.q.QueryRow(ctx, `
		SELECT id, grant_id, region_id, status, notes, budget_allocated, amount_applied, amount_awarded, last_updated
		FROM grant_statuses WHERE grant_id = $1 AND region_id = $2`, grantID, regionID,
	).Scan(&st.ID, &st.GrantID, &st.RegionID, &st.Status, &st.Notes, &st.BudgetAllocated, &st.AmountApplied, &st.AmountAwarded, &st.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grant status: %w", err)
	}
	return &st, nil
}

// --- Regions ---

func (s *Store) ListRegions(ctx context.Context) ([]models.Region, error) {
	rows, err := s.q.Query(ctx,
		"SELECT id, name_en, name_fr, province, city, is_active FROM regions WHERE is_active ORDER BY name_en")
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []models.Region
	for rows.Next() {
		var r models.Region
		if err := rows.Scan(&r.ID, &r.NameEN, &r.NameFR, &r.Province, &r.City, &r.IsActive); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Scrape runs ---

func (s *Store) StartRun(ctx context.Context, sourceID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.q.Exec(ctx,
		"INSERT INTO scrape_runs (id, source_id, status) VALUES ($1, $2, 'running')", id, sourceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start run for %s: %w", sourceID, err)
	}
	return id, nil
}

func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, stats ingest.RunStats, failed bool) error {
	status := "completed"
	if failed {
		status = "failed"
	}
	_, err := s.q.Exec(ctx, `
		UPDATE scrape_runs
		SET status = $1, created = $2, duplicates = $3, expired = $4, errors = $5, completed_at = NOW()
		WHERE id = $6`,
		status, stats.Created, stats.Duplicates, stats.Expired, stats.Errors, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, source_id, status, created, duplicates, expired, errors, started_at, completed_at
		FROM scrape_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []models.ScrapeRun
	for rows.Next() {
		var r models.ScrapeRun
		if err := rows.Scan(&r.ID, &r.SourceID, &r.Status, &r.Created, &r.Duplicates, &r.Expired, &r.Errors, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// nilIfEmpty returns nil for empty strings so NULL is stored in the DB.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
