package scoring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Granularity string

const (
	Monthly Granularity = "month"
	Weekly  Granularity = "week"
)

func (g Granularity) Valid() bool {
	return g == Monthly || g == Weekly
}

// ParseGranularity accepts "month"/"monthly" and "week"/"weekly". An empty
// value means Monthly.
func ParseGranularity(value string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "month", "monthly":
		return Monthly, nil
	case "week", "weekly":
		return Weekly, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", value)
	}
}

// PeriodKey identifies one month or one ISO week. Index is the month (1-12)
// or the ISO week number (1-53); Year is the ISO year for weeks.
type PeriodKey struct {
	Granularity Granularity
	Year        int
	Index       int
}

func (k PeriodKey) String() string {
	if k.Granularity == Weekly {
		return fmt.Sprintf("%04d-W%02d", k.Year, k.Index)
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Index)
}

func (k PeriodKey) IsZero() bool {
	return k == PeriodKey{}
}

// Before orders keys of the same granularity chronologically.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Index < other.Index
}

func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PeriodKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePeriodKey parses "2024-01" (month) and "2024-W05" (ISO week).
func ParsePeriodKey(value string) (PeriodKey, error) {
	value = strings.TrimSpace(value)
	yearPart, rest, ok := strings.Cut(value, "-")
	if !ok || len(yearPart) != 4 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
	}

	key := PeriodKey{Granularity: Monthly, Year: year}
	if strings.HasPrefix(rest, "W") || strings.HasPrefix(rest, "w") {
		key.Granularity = Weekly
		rest = rest[1:]
	}
	if len(rest) != 2 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
	}
	key.Index = index

	switch key.Granularity {
	case Monthly:
		if index < 1 || index > 12 {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
		}
	case Weekly:
		if index < 1 || index > isoWeeksIn(year) {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, value)
		}
	}
	return key, nil
}

// isoWeeksIn returns 52 or 53. Dec 28 is always in the last ISO week.
func isoWeeksIn(year int) int {
	_, week := time.Date(year, time.December, 28, 12, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// Bucketer maps timestamps onto period keys in one fixed location. The app
// builds a single Bucketer from configuration and passes it to every caller
// so period boundaries never depend on the host zone.
type Bucketer struct {
	loc *time.Location
}

// NewBucketer returns a Bucketer for loc. A nil loc means UTC.
func NewBucketer(loc *time.Location) Bucketer {
	if loc == nil {
		loc = time.UTC
	}
	return Bucketer{loc: loc}
}

func (b Bucketer) Location() *time.Location {
	if b.loc == nil {
		return time.UTC
	}
	return b.loc
}

func (b Bucketer) Month(t time.Time) PeriodKey {
	local := t.In(b.Location())
	return PeriodKey{Granularity: Monthly, Year: local.Year(), Index: int(local.Month())}
}

// Week returns the ISO-8601 week containing t. Weeks start Monday 00:00 and
// week 1 is the week holding the year's first Thursday.
func (b Bucketer) Week(t time.Time) PeriodKey {
	year, week := t.In(b.Location()).ISOWeek()
	return PeriodKey{Granularity: Weekly, Year: year, Index: week}
}

func (b Bucketer) Bucket(g Granularity, t time.Time) PeriodKey {
	if g == Weekly {
		return b.Week(t)
	}
	return b.Month(t)
}

// Bounds returns the half-open range [start, end) covered by key.
func (b Bucketer) Bounds(key PeriodKey) (time.Time, time.Time) {
	loc := b.Location()
	if key.Granularity == Weekly {
		start := isoWeekStart(key.Year, key.Index, loc)
		return start, start.AddDate(0, 0, 7)
	}
	start := time.Date(key.Year, time.Month(key.Index), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside key.
func (b Bucketer) Contains(key PeriodKey, t time.Time) bool {
	return b.Bucket(key.Granularity, t) == key
}

// Shift moves key by n periods of its own granularity.
func (b Bucketer) Shift(key PeriodKey, n int) PeriodKey {
	if key.Granularity == Weekly {
		start := isoWeekStart(key.Year, key.Index, b.Location())
		return b.Week(start.AddDate(0, 0, 7*n))
	}
	months := key.Year*12 + (key.Index - 1) + n
	return PeriodKey{Granularity: Monthly, Year: months / 12, Index: months%12 + 1}
}

// Sequence returns n consecutive keys ending at key, oldest first.
func (b Bucketer) Sequence(key PeriodKey, n int) []PeriodKey {
	if n <= 0 {
		return nil
	}
	out := make([]PeriodKey, n)
	for i := range n {
		out[i] = b.Shift(key, i-(n-1))
	}
	return out
}

func isoWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, 7*(week-1))
}
