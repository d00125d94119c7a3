package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aluiziolira/go-isbn-stats/models"
	"github.com/araddon/dateparse"
)

const dateLayout = "2006-01-02"

type dateFormat struct {
	layout    string
	precision models.DatePrecision
}

// publishFormats are tried in order before the generic parser.
var publishFormats = []dateFormat{
	{"January 2, 2006", models.PrecisionDay},
	{"January 2 2006", models.PrecisionDay},
	{"Jan 2, 2006", models.PrecisionDay},
	{dateLayout, models.PrecisionDay},
	{"January 2006", models.PrecisionMonth},
	{"Jan 2006", models.PrecisionMonth},
	{"2006-01", models.PrecisionMonth},
	{"1/2006", models.PrecisionMonth},
	{"2006", models.PrecisionYear},
}

var (
	// abbrevDot matches the period after an abbreviated month ("Jan.").
	abbrevDot  = regexp.MustCompile(`([A-Za-z])\.`)
	septAbbrev = regexp.MustCompile(`(?i)\bsept\b`)
	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	dateLayout,
}

// ParseDate parses a free-text publish date into a calendar date and the
// precision the text carried. Unparseable text yields (nil, PrecisionNone).
func ParseDate(text string) (*time.Time, models.DatePrecision) {
	text = strings.TrimSpace(abbrevDot.ReplaceAllString(strings.TrimSpace(text), "$1"))
	text = strings.TrimSpace(strings.TrimSuffix(text, "."))
	text = septAbbrev.ReplaceAllString(text, "Sep")
	if text == "" {
		return nil, models.PrecisionNone
	}

	for _, f := range publishFormats {
		if t, err := time.Parse(f.layout, text); err == nil {
			return calendarDate(t), f.precision
		}
	}

	t, err := fallbackParse(text)
	if err != nil || !plausible(t) {
		return nil, models.PrecisionNone
	}
	return calendarDate(t), models.PrecisionDay
}

// ParseTimestamp parses a modification timestamp down to its calendar date.
func ParseTimestamp(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return calendarDate(t)
		}
	}
	t, err := fallbackParse(text)
	if err != nil || !plausible(t) {
		return nil
	}
	return calendarDate(t)
}

// fallbackParse hands text to dateparse, except bare digit runs longer than a
// year, which dateparse would read as Unix timestamps.
func fallbackParse(text string) (time.Time, error) {
	if len(text) > 4 && digitsOnly.MatchString(text) {
		return time.Time{}, fmt.Errorf("ambiguous numeric date %q", text)
	}
	return dateparse.ParseIn(text, time.UTC)
}

func calendarDate(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func plausible(t time.Time) bool {
	return t.Year() >= 1000 && t.Year() <= 9999
}
