package backends

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	legacyDateLayout = "2006-01-02 15:04:05"
	isoDateLayout    = "2006-01-02T15:04:05-0700"
)

// parseLegacyDate handles Danbooru 1.x dates. Moebooru forks send Unix
// timestamps in seconds instead of the formatted date.
func parseLegacyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if isDigits(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %v", s, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.ParseInLocation(legacyDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %v", s, err)
	}
	return t, nil
}

// parseISODate handles the ISO-8601 dates sent by E621, e.g.
// 2014-06-01T12:30:00Z or 2014-06-01T12:30:00.123-04:00.
func parseISODate(s string) (time.Time, error) {
	normalized := strings.TrimSpace(s)
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+0000"
	}
	// Drop the colon from a trailing ±HH:MM offset.
	if n := len(normalized); n >= 6 && (normalized[n-6] == '+' || normalized[n-6] == '-') && normalized[n-3] == ':' {
		normalized = normalized[:n-3] + normalized[n-2:]
	}
	t, err := time.Parse(isoDateLayout, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %v", s, err)
	}
	return t, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
