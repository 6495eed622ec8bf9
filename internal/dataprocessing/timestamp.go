package dataprocessing

import (
	"math"
	"strings"
	"time"
)

// timestampLayouts is the ordered list of accepted textual encodings. The first
// layout that fully parses the trimmed input wins, so the day-first and
// month-first slash forms are only distinguished by which one parses at all.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
}

// excelEpoch is 1899-12-30: Excel's day zero once the historical 1900
// leap-year bug is accounted for.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseTimestamp parses a raw timestamp cell into a naive instant. All values
// are treated as local wall-clock time with no timezone inference. Returns
// false when no known layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExcelSerialToTime converts an Excel serial date to an instant. The integer
// part counts days since the 1899-12-30 epoch; the fractional part is the time
// of day. The fraction is rounded to the nearest whole second before being
// decomposed, keeping the conversion exact to the second.
func ExcelSerialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}

	days := int(math.Floor(serial))
	fraction := serial - math.Floor(serial)
	seconds := int(math.Round(fraction * 86400))

	t := excelEpoch.AddDate(0, 0, days).
		Add(time.Duration(seconds) * time.Second)
	return t, true
}

// plausible Excel serial range: anything past day 1 and before year 10000.
const (
	serialMin = 1.0
	serialMax = 2958466.0
)

// looksLikeSerialDate reports whether a numeric cell value is plausibly an
// Excel date serial rather than a plain number. Whole numbers are left alone:
// only values carrying a time-of-day fraction are rendered as datetimes.
func looksLikeSerialDate(v float64) bool {
	return v > serialMin && v < serialMax && v != math.Trunc(v)
}
