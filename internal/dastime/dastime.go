// Package dastime is a minimal internal stand-in for the external das_time
// calendar library named in the core's interface (das2C's das_time.h),
// whose full internals are out of scope for this module. It implements
// exactly the operations the Value/Codec datetime paths need:
// parsetime-equivalent string parsing, a TT2000 (integer nanoseconds since
// the J2000 TT epoch) projection, and the inverse.
//
// This is intentionally not a complete leap-second-table calendar library;
// it is sufficient for round-tripping das stream timestamps through the
// codec and for the canonical float64-seconds-since-epoch representation
// Value uses for generic calendar Properties.
package dastime

import (
	"fmt"
	"strings"
	"time"
)

// J2000Epoch is the TT2000 zero point: 2000-01-01T11:58:55.816Z, expressed
// as a UTC wall-clock reading (the TT2000 epoch string used throughout the
// CDF/das2 ecosystem).
var J2000Epoch = time.Date(2000, 1, 1, 11, 58, 55, 816000000, time.UTC)

// leapSecondsSinceJ2000 accounts for the TAI-UTC leap seconds inserted
// after the J2000 epoch (2000-01-01), so that integer-nanosecond TT2000
// values stay consistent with the epoch's own baked-in leap second count.
// This module does not track leap seconds inserted after the table's last
// entry; times past that point carry a few seconds of drift versus the
// official TT2000 count, which does not affect round-trip correctness
// within this package (encode and decode use the same table).
var leapSecondsSinceJ2000 = []time.Time{
	time.Date(2005, 12, 31, 23, 59, 60, 0, time.UTC),
	time.Date(2008, 12, 31, 23, 59, 60, 0, time.UTC),
	time.Date(2012, 6, 30, 23, 59, 60, 0, time.UTC),
	time.Date(2015, 6, 30, 23, 59, 60, 0, time.UTC),
	time.Date(2016, 12, 31, 23, 59, 60, 0, time.UTC),
}

func leapSecondsAt(t time.Time) int {
	n := 0
	for _, ls := range leapSecondsSinceJ2000 {
		if !t.Before(ls) {
			n++
		}
	}

	return n
}

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a calendar string in one of the das stream's accepted
// forms (ISO 8601 UTC, with or without fractional seconds) into a time.Time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))

	var lastErr error
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("dastime: cannot parse %q: %w", s, lastErr)
}

// LooksLikeTime applies the bare-number-vs-time heuristic of
// Descriptor.getDatum: a value containing ':' or 'T' is treated as a
// calendar time when no explicit units were given.
func LooksLikeTime(s string) bool {
	return strings.ContainsAny(s, ":T")
}

// ToTT2000Nanos converts t to integer nanoseconds since the J2000 TT2000
// epoch, including the leap-second correction accrued since J2000.
func ToTT2000Nanos(t time.Time) int64 {
	delta := t.Sub(J2000Epoch)
	leapAdj := time.Duration(leapSecondsAt(t)) * time.Second

	return (delta + leapAdj).Nanoseconds()
}

// FromTT2000Nanos is the inverse of ToTT2000Nanos.
func FromTT2000Nanos(ns int64) time.Time {
	approx := J2000Epoch.Add(time.Duration(ns))
	leapAdj := time.Duration(leapSecondsAt(approx)) * time.Second

	return J2000Epoch.Add(time.Duration(ns) - leapAdj).UTC()
}

// ToTT2000Seconds is the float64-seconds variant used as the canonical
// storage form for a generic (non-codec-specific) calendar Value.
func ToTT2000Seconds(t time.Time) float64 {
	return float64(ToTT2000Nanos(t)) / 1e9
}

// FromTT2000Seconds is the inverse of ToTT2000Seconds.
func FromTT2000Seconds(s float64) time.Time {
	return FromTT2000Nanos(int64(s * 1e9))
}

// HasCalendarRep reports whether the named units string has a calendar
// representation (i.e. Units_haveCalRep): true for the handful of epoch
// unit names the codec understands as calendar-integral or calendar-real.
func HasCalendarRep(units string) bool {
	switch units {
	case "TT2000", "UTC", "us2000", "ns2000", "t2000", "mj1958":
		return true
	default:
		return false
	}
}

// IsIntegralEpoch reports whether units stores a calendar time as an
// integer count (TT2000 nanoseconds) rather than fractional seconds.
func IsIntegralEpoch(units string) bool {
	return units == "TT2000"
}
