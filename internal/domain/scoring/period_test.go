package scoring

import (
	"errors"
	"testing"
	"time"
)

func TestMonthBucketBoundaries(t *testing.T) {
	b := NewBucketer(nil)
	endOfJan := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)
	startOfFeb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	if b.Month(endOfJan) == b.Month(startOfFeb) {
		t.Fatalf("expected different buckets, both got %s", b.Month(endOfJan))
	}
	if got := b.Month(endOfJan).String(); got != "2024-01" {
		t.Fatalf("expected 2024-01, got %s", got)
	}
	if got := b.Month(startOfFeb).String(); got != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", got)
	}

	for day := 1; day <= 31; day++ {
		at := time.Date(2024, time.January, day, 12, 0, 0, 0, time.UTC)
		if b.Month(at) != b.Month(endOfJan) {
			t.Fatalf("day %d left the january bucket", day)
		}
	}
}

func TestWeekBucketMondayBoundary(t *testing.T) {
	b := NewBucketer(nil)
	monday := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	sunday := monday.Add(-time.Second)

	if got := b.Week(monday).String(); got != "2024-W02" {
		t.Fatalf("expected monday to open 2024-W02, got %s", got)
	}
	if got := b.Week(sunday).String(); got != "2024-W01" {
		t.Fatalf("expected sunday to close 2024-W01, got %s", got)
	}
}

func TestWeekBucketUsesISOYear(t *testing.T) {
	b := NewBucketer(nil)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC), "2023-W52"},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), "2024-W01"},
		{time.Date(2021, time.January, 3, 12, 0, 0, 0, time.UTC), "2020-W53"},
		{time.Date(2024, time.December, 30, 8, 0, 0, 0, time.UTC), "2025-W01"},
	}
	for _, tc := range tests {
		if got := b.Week(tc.at).String(); got != tc.want {
			t.Fatalf("week of %s: expected %s, got %s", tc.at.Format(time.DateOnly), tc.want, got)
		}
	}
}

func TestBucketerAppliesConfiguredZone(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	utc := NewBucketer(time.UTC)
	local := NewBucketer(zone)
	at := time.Date(2024, time.February, 1, 3, 0, 0, 0, time.UTC)

	if got := utc.Month(at).String(); got != "2024-02" {
		t.Fatalf("expected 2024-02 in UTC, got %s", got)
	}
	if got := local.Month(at).String(); got != "2024-01" {
		t.Fatalf("expected 2024-01 in UTC-5, got %s", got)
	}
}

func TestBounds(t *testing.T) {
	b := NewBucketer(nil)

	start, end := b.Bounds(PeriodKey{Granularity: Monthly, Year: 2024, Index: 2})
	if !start.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start %s", start)
	}
	if !end.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month end %s", end)
	}

	start, end = b.Bounds(PeriodKey{Granularity: Weekly, Year: 2021, Index: 1})
	if !start.Equal(time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %s", start)
	}
	if !end.Equal(time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week end %s", end)
	}
	if b.Week(start) != (PeriodKey{Granularity: Weekly, Year: 2021, Index: 1}) {
		t.Fatalf("week start does not bucket into its own week")
	}
	if b.Week(end.Add(-time.Nanosecond)).Index != 1 {
		t.Fatalf("last instant of the week left the bucket")
	}
}

func TestShiftAndSequence(t *testing.T) {
	b := NewBucketer(nil)

	jan := PeriodKey{Granularity: Monthly, Year: 2024, Index: 1}
	if got := b.Shift(jan, -1).String(); got != "2023-12" {
		t.Fatalf("expected 2023-12, got %s", got)
	}
	if got := b.Shift(jan, 13).String(); got != "2025-02" {
		t.Fatalf("expected 2025-02, got %s", got)
	}

	week := PeriodKey{Granularity: Weekly, Year: 2024, Index: 1}
	if got := b.Shift(week, -1).String(); got != "2023-W52" {
		t.Fatalf("expected 2023-W52, got %s", got)
	}

	seq := b.Sequence(PeriodKey{Granularity: Monthly, Year: 2024, Index: 2}, 3)
	want := []string{"2023-12", "2024-01", "2024-02"}
	if len(seq) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(seq))
	}
	for i := range want {
		if seq[i].String() != want[i] {
			t.Fatalf("sequence[%d]: expected %s, got %s", i, want[i], seq[i])
		}
	}
	if b.Sequence(jan, 0) != nil {
		t.Fatalf("expected empty sequence")
	}
}

func TestParsePeriodKey(t *testing.T) {
	valid := map[string]PeriodKey{
		"2024-01":  {Granularity: Monthly, Year: 2024, Index: 1},
		"2024-12":  {Granularity: Monthly, Year: 2024, Index: 12},
		"2024-W05": {Granularity: Weekly, Year: 2024, Index: 5},
		"2020-W53": {Granularity: Weekly, Year: 2020, Index: 53},
	}
	for input, want := range valid {
		got, err := ParsePeriodKey(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %+v, got %+v", input, want, got)
		}
		if got.String() != input {
			t.Fatalf("expected %q to format back, got %q", input, got.String())
		}
	}

	for _, input := range []string{"", "2024", "2024-13", "2024-00", "2021-W53", "2024-W00", "24-01", "2024-1", "2024-Wxx"} {
		if _, err := ParsePeriodKey(input); !errors.Is(err, ErrInvalidPeriodKey) {
			t.Fatalf("expected invalid period key for %q, got %v", input, err)
		}
	}
}

func TestCollapseKeepsLatestPerPeriod(t *testing.T) {
	b := NewBucketer(nil)
	early := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)

	records := []ReviewRecord{
		{SubjectID: "c1", KPIID: "k5", Met: Outcome(false), PeriodTimestamp: early, RecordedAt: early},
		{SubjectID: "c1", KPIID: "k5", Met: Outcome(true), PeriodTimestamp: late, RecordedAt: late},
		{SubjectID: "c1", KPIID: "k5", Met: Outcome(false), PeriodTimestamp: april, RecordedAt: april},
	}
	collapsed := Collapse(records, b, Monthly)
	if len(collapsed) != 2 {
		t.Fatalf("expected one record per month, got %d", len(collapsed))
	}
	if !*collapsed[0].Met {
		t.Fatalf("expected the later march review to win")
	}

	groups := GroupByPeriod(collapsed, b, Monthly)
	march := groups["c1"][PeriodKey{Granularity: Monthly, Year: 2024, Index: 3}]
	score, err := ComputeScore(march, weightedKPIs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 100 {
		t.Fatalf("expected march score 100, got %d", score)
	}
}
