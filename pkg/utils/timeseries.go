package utils

import (
	"math"
	"time"
)

// timestampLayouts are tried in order. Open-Meteo returns local wall-clock times without
// an offset ("2024-01-01T14:00"); synthesized series use RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the layouts the providers emit.
// Timestamps without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IndexNearestTime returns the index of target in times, or of the entry closest to it.
// Ties go to the lowest index. Targets outside the range resolve to the nearest boundary.
// Unparseable entries are never chosen unless nothing parses, in which case 0 is returned.
// An empty series yields -1.
func IndexNearestTime(times []string, target string) int {
	if len(times) == 0 {
		return -1
	}
	for i, t := range times {
		if t == target {
			return i
		}
	}

	want, ok := ParseTimestamp(target)
	if !ok {
		return 0
	}

	closest := 0
	smallest := time.Duration(math.MaxInt64)
	for i, t := range times {
		at, ok := ParseTimestamp(t)
		if !ok {
			continue
		}
		d := at.Sub(want)
		if d < 0 {
			d = -d
		}
		if d < smallest {
			smallest = d
			closest = i
		}
	}
	return closest
}
