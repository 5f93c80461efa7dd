package models

import "strings"

// provincesByAbbrev is the single canonical mapping from postal abbreviations
// to full province/territory names. Both the ingestion pipeline and the
// listing filters go through CanonicalProvince so the mapping is never
// re-derived elsewhere.
var provincesByAbbrev = map[string]string{
	"AB": "Alberta",
	"BC": "British Columbia",
	"MB": "Manitoba",
	"NB": "New Brunswick",
	"NL": "Newfoundland and Labrador",
	"NS": "Nova Scotia",
	"NT": "Northwest Territories",
	"NU": "Nunavut",
	"ON": "Ontario",
	"PE": "Prince Edward Island",
	"QC": "Quebec",
	"SK": "Saskatchewan",
	"YT": "Yukon",
}

var provincesByName = func() map[string]string {
	m := make(map[string]string, len(provincesByAbbrev))
	for _, name := range provincesByAbbrev {
		m[strings.ToLower(name)] = name
	}
	// Common variants seen in scraped markup.
	m["québec"] = "Quebec"
	m["newfoundland"] = "Newfoundland and Labrador"
	m["pei"] = "Prince Edward Island"
	return m
}()

// CanonicalProvince maps an abbreviation or free-form province name to the
// canonical full name. Unrecognized input is returned trimmed, unchanged.
func CanonicalProvince(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if full, ok := provincesByAbbrev[strings.ToUpper(trimmed)]; ok {
		return full
	}
	if full, ok := provincesByName[strings.ToLower(trimmed)]; ok {
		return full
	}
	return trimmed
}
