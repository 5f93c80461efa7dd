package db

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrantFiltersEmpty(t *testing.T) {
	where, args := buildGrantFilters(GrantFilters{})
	assert.Equal(t, "", where)
	assert.Empty(t, args)
}

func TestBuildGrantFiltersPlaceholderOrder(t *testing.T) {
	regionID := uuid.New()
	minAmount := 1000.0
	maxAmount := 50000.0
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildGrantFilters(GrantFilters{
		RegionID:       &regionID,
		Province:       "ON",
		NGOOnly:        true,
		MinAmount:      &minAmount,
		MaxAmount:      &maxAmount,
		Category:       "Community",
		Language:       "EN",
		TeamScope:      "Regional",
		IndividualType: "organization",
		DeadlineBefore: &deadline,
		OngoingOnly:    true,
	})

	require.True(t, strings.HasPrefix(where, " WHERE "))
	// Placeholders number consecutively in clause order.
	for i := 1; i <= len(args); i++ {
		assert.Contains(t, where, fmt.Sprintf("$%d", i))
	}
	assert.Equal(t, []any{regionID, "Ontario", minAmount, maxAmount, "Community", "EN", "Regional", "organization", deadline}, args)
}

func TestBuildGrantFiltersProvinceCanonicalized(t *testing.T) {
	where, args := buildGrantFilters(GrantFilters{Province: "bc"})
	assert.Contains(t, where, "g.province = $1")
	assert.Equal(t, []any{"British Columbia"}, args)
}

func TestBuildGrantFiltersAmountSemantics(t *testing.T) {
	// min_amount matches grants whose upper bound reaches it; max_amount
	// matches grants whose lower bound fits under it.
	v := 5000.0
	where, _ := buildGrantFilters(GrantFilters{MinAmount: &v})
	assert.Contains(t, where, "g.funding_max >= $1")

	where, _ = buildGrantFilters(GrantFilters{MaxAmount: &v})
	assert.Contains(t, where, "g.funding_min <= $1")
}

func TestBuildGrantFiltersBooleansTakeNoArgs(t *testing.T) {
	where, args := buildGrantFilters(GrantFilters{NGOOnly: true, OngoingOnly: true})
	assert.Contains(t, where, "g.is_ngo_only = TRUE")
	assert.Contains(t, where, "g.ongoing_flag = TRUE")
	assert.Empty(t, args)
}

func TestBuildGrantFiltersRegionUsesStatusJoin(t *testing.T) {
	regionID := uuid.New()
	where, args := buildGrantFilters(GrantFilters{RegionID: &regionID})
	assert.Contains(t, where, "grant_statuses gs")
	assert.Contains(t, where, "gs.region_id = $1")
	assert.Equal(t, []any{regionID}, args)
}
