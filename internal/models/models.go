package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a funding body. Name is the identity key used by the
// ingestion pipeline (lookup-or-create by exact name match).
type Organization struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // e.g. "Government", "Foundation"
	NGOOnly    bool      `json:"ngo_only"`
	WebsiteURL *string   `json:"website_url"`
	Country    string    `json:"country"`
	Province   *string   `json:"province"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Grant is a funding opportunity. ExternalID is unique across all grants and
// is the sole deduplication key the ingestion pipeline relies on.
type Grant struct {
	ID uuid.UUID `json:"id"`

	// Bilingual content. English is required, French optional.
	NameEN        string  `json:"name_en"`
	NameFR        *string `json:"name_fr"`
	DescriptionEN *string `json:"description_en"`
	DescriptionFR *string `json:"description_fr"`
	EligibilityEN *string `json:"eligibility_en"`
	EligibilityFR *string `json:"eligibility_fr"`

	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name,omitempty"`

	Category       *string `json:"category"`
	RegionScope    string  `json:"region_scope"` // "National", "Provincial", "Regional"
	Country        string  `json:"country"`
	Province       *string `json:"province"`
	TeamScope      *string `json:"team_scope"`      // "National", "Regional"
	IndividualType *string `json:"individual_type"` // "individual", "organization", "both"

	FundingMin *float64 `json:"funding_min"`
	FundingMax *float64 `json:"funding_max"`
	Currency   string   `json:"currency"`

	// DeadlineDate nil means no known fixed deadline. OngoingFlag marks
	// continuous intake; the two are related but not mutually exclusive.
	DeadlineDate *time.Time `json:"deadline_date"`
	OngoingFlag  bool       `json:"ongoing_flag"`

	Language   string `json:"language"` // "EN", "FR", "Bilingual"
	IsNGOOnly  bool   `json:"is_ngo_only"`
	SourceURL  string `json:"source_url"`
	ExternalID string `json:"external_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaysUntilDeadline returns the number of days from today until the deadline,
// or nil when the grant has no fixed deadline.
func (g *Grant) DaysUntilDeadline(today time.Time) *int {
	if g.DeadlineDate == nil {
		return nil
	}
	days := int(g.DeadlineDate.Sub(truncateToDay(today)).Hours() / 24)
	return &days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Grant application status values tracked per region.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusSubmitted  = "Submitted"
	StatusRejected   = "Rejected"
	StatusAwarded    = "Awarded"
)

// ValidStatus reports whether s is one of the tracked application statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusSubmitted, StatusRejected, StatusAwarded:
		return true
	}
	return false
}

// GrantStatus is a per-region, per-grant application-tracking record. One row
// per (grant, region) pair, created on the first status update for that pair.
type GrantStatus struct {
	ID              uuid.UUID `json:"id"`
	GrantID         uuid.UUID `json:"grant_id"`
	RegionID        uuid.UUID `json:"region_id"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes"`
	BudgetAllocated *float64  `json:"budget_allocated"`
	AmountApplied   *float64  `json:"amount_applied"`
	AmountAwarded   *float64  `json:"amount_awarded"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Region is a fixed, seed-loaded chapter/geographic unit. Read-only from the
// pipeline's perspective.
type Region struct {
	ID       uuid.UUID `json:"id"`
	NameEN   string    `json:"name_en"`
	NameFR   *string   `json:"name_fr"`
	Province *string   `json:"province"`
	City     *string   `json:"city"`
	IsActive bool      `json:"is_active"`
}

// ScrapeRun records one ingestion run for the operator tooling.
type ScrapeRun struct {
	ID          uuid.UUID  `json:"id"`
	SourceID    string     `json:"source_id"`
	Status      string     `json:"status"` // running, completed, failed
	Created     int        `json:"created"`
	Duplicates  int        `json:"duplicates"`
	Expired     int        `json:"expired"`
	Errors      int        `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
