package shared

import (
	"strings"
	"time"

	"kpiboard/internal/domain/scoring"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.DateOnly, value)
}

// ParsePeriod resolves a period query value. It accepts a period key such as
// 2024-03 or 2024-W05, or a date that is bucketed at granularity. An empty
// value selects the period containing now.
func ParsePeriod(raw string, granularity scoring.Granularity, bucketer scoring.Bucketer, now time.Time) (scoring.PeriodKey, error) {
	raw = strings.TrimSpace(raw)
	if granularity == "" {
		granularity = scoring.Monthly
	}
	if raw == "" {
		return bucketer.Bucket(granularity, now), nil
	}
	if key, err := scoring.ParsePeriodKey(raw); err == nil {
		return key, nil
	}
	at, err := ParseDate(raw)
	if err != nil {
		return scoring.PeriodKey{}, scoring.ErrInvalidPeriodKey
	}
	if len(raw) == len(time.DateOnly) {
		at = time.Date(at.Year(), at.Month(), at.Day(), 12, 0, 0, 0, bucketer.Location())
	}
	return bucketer.Bucket(granularity, at), nil
}
