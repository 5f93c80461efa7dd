package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalProvince(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ON", "Ontario"},
		{"on", "Ontario"},
		{"Ontario", "Ontario"},
		{"ontario", "Ontario"},
		{"QC", "Quebec"},
		{"québec", "Quebec"},
		{"PEI", "Prince Edward Island"},
		{"  BC ", "British Columbia"},
		{"Newfoundland", "Newfoundland and Labrador"},
		{"", ""},
		{"Atlantic Canada", "Atlantic Canada"}, // unknown passes through
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalProvince(tt.in), "input %q", tt.in)
	}
}
