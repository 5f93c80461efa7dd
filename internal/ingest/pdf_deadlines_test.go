package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatesInText(t *testing.T) {
	const text = `Grant guidelines. Applications open February 1, 2026.
	Application deadline: 2026-06-17. Info session 3/15/2026.
	Late submissions close February 1, 2026.`

	got := datesInText(text)
	require.Len(t, got, 3, "duplicate mentions collapse to one date")
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), got[0], "ascending order")
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got[1])
	assert.Equal(t, time.Date(2026, 6, 17, 0, 0, 0, 0, time.UTC), got[2])
}

func TestDatesInTextNoDates(t *testing.T) {
	assert.Empty(t, datesInText("Eligibility criteria and application process."))
}

func TestNextDateOnOrAfter(t *testing.T) {
	const text = `Opened January 5, 2026. Deadline March 3, 2026. Final report due October 1, 2026.`

	tests := []struct {
		name  string
		today time.Time
		want  string
	}{
		{"past dates skipped", time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), "2026-03-03"},
		{"same day still counts", time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC), "2026-03-03"},
		{"later cutoff picks next", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), "2026-10-01"},
		{"all dates past", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextDateOnOrAfter(text, tt.today)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestNextDeadlineFromPDFFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}

	_, err := NextDeadlineFromPDF(context.Background(), fetcher, "https://otf.ca/guide.pdf", time.Now())
	assert.Error(t, err, "fetch failures surface to the caller")
}

func TestNextDeadlineFromPDFMalformedContent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://otf.ca/guide.pdf": "<html>not a pdf</html>",
	}}

	_, err := NextDeadlineFromPDF(context.Background(), fetcher, "https://otf.ca/guide.pdf", time.Now())
	assert.Error(t, err, "unparseable files are an error, not a panic")
}
