package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kpiboard/internal/domain/scoring"
)

// fixture is the YAML document read by `kpiboard score`. A KPI with a
// removedAt is treated as removed from that instant on. A review without met
// is recorded but unreviewed.
type fixture struct {
	KPIs        []fixtureKPI      `yaml:"kpis"`
	Reviews     []fixtureReview   `yaml:"reviews"`
	Assignments map[string]string `yaml:"assignments"`
}

type fixtureKPI struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Weight    int        `yaml:"weight"`
	RemovedAt *time.Time `yaml:"removedAt"`
}

type fixtureReview struct {
	Subject    string    `yaml:"subject"`
	KPI        string    `yaml:"kpi"`
	Met        *bool     `yaml:"met"`
	At         time.Time `yaml:"at"`
	RecordedAt time.Time `yaml:"recordedAt"`
}

type subjectScore struct {
	Subject string `json:"subject"`
	Period  string `json:"period"`
	scoring.Result
	NoData bool `json:"noData"`
}

type teamScore struct {
	Period string `json:"period"`
	scoring.TeamRollup
}

type scoreReport struct {
	Granularity scoring.Granularity      `json:"granularity"`
	Timezone    string                   `json:"timezone"`
	Subjects    []subjectScore           `json:"subjects"`
	Trends      map[string]scoring.Trend `json:"trends"`
	Teams       []teamScore              `json:"teams,omitempty"`
}

func newScoreCommand() *cobra.Command {
	var (
		file        string
		granularity string
		timezone    string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a YAML fixture of KPIs and reviews offline",
		Long: `Score reads KPI definitions, reviews and optional clinician to
director assignments from a YAML file, buckets the reviews into periods and
prints every subject's score per period, their trend and director roll-ups.

Example:

  kpiboard score --file fixture.yaml --granularity week --tz Europe/London`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := scoring.ParseGranularity(granularity)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("timezone %q: %w", timezone, err)
			}
			f, err := readFixture(file)
			if err != nil {
				return err
			}
			report, err := scoreFixture(f, scoring.NewBucketer(loc), g)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture to score")
	cmd.Flags().StringVarP(&granularity, "granularity", "g", "month", "Period granularity (month|week)")
	cmd.Flags().StringVar(&timezone, "tz", "UTC", "Time zone periods are bucketed in")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readFixture(path string) (fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return parseFixture(raw)
}

func parseFixture(raw []byte) (fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	for i, r := range f.Reviews {
		if strings.TrimSpace(r.Subject) == "" || strings.TrimSpace(r.KPI) == "" {
			return fixture{}, fmt.Errorf("review %d: subject and kpi are required", i+1)
		}
		if r.At.IsZero() {
			return fixture{}, fmt.Errorf("review %d: at is required", i+1)
		}
	}
	return f, nil
}

func (f fixture) kpis() []scoring.KPI {
	out := make([]scoring.KPI, 0, len(f.KPIs))
	for _, k := range f.KPIs {
		kpi := scoring.KPI{ID: k.ID, Name: k.Name, Weight: k.Weight, Active: k.RemovedAt == nil}
		if k.RemovedAt != nil {
			kpi.RemovedAt = *k.RemovedAt
		}
		out = append(out, kpi)
	}
	return out
}

func (f fixture) records() []scoring.ReviewRecord {
	out := make([]scoring.ReviewRecord, 0, len(f.Reviews))
	for _, r := range f.Reviews {
		recorded := r.RecordedAt
		if recorded.IsZero() {
			recorded = r.At
		}
		out = append(out, scoring.ReviewRecord{
			SubjectID:       r.Subject,
			KPIID:           r.KPI,
			Met:             r.Met,
			PeriodTimestamp: r.At,
			RecordedAt:      recorded,
		})
	}
	return out
}

func scoreFixture(f fixture, bucketer scoring.Bucketer, g scoring.Granularity) (scoreReport, error) {
	report := scoreReport{
		Granularity: g,
		Timezone:    bucketer.Location().String(),
		Subjects:    []subjectScore{},
		Trends:      map[string]scoring.Trend{},
	}
	kpis := f.kpis()
	groups := scoring.GroupByPeriod(scoring.Collapse(f.records(), bucketer, g), bucketer, g)

	subjects := make([]string, 0, len(groups))
	periodSet := map[scoring.PeriodKey]struct{}{}
	for subject, periods := range groups {
		subjects = append(subjects, subject)
		for key := range periods {
			periodSet[key] = struct{}{}
		}
	}
	sort.Strings(subjects)
	periods := make([]scoring.PeriodKey, 0, len(periodSet))
	for key := range periodSet {
		periods = append(periods, key)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	byPeriod := map[scoring.PeriodKey]map[string]int{}
	for _, subject := range subjects {
		var history []int
		for _, key := range periods {
			records, ok := groups[subject][key]
			if !ok {
				continue
			}
			result, err := scoring.Evaluate(records, kpis)
			if err != nil {
				return scoreReport{}, fmt.Errorf("%s %s: %w", subject, key, err)
			}
			report.Subjects = append(report.Subjects, subjectScore{
				Subject: subject,
				Period:  key.String(),
				Result:  result,
				NoData:  result.NoData(),
			})
			if result.NoData() {
				continue
			}
			history = append(history, result.Percentage)
			if byPeriod[key] == nil {
				byPeriod[key] = map[string]int{}
			}
			byPeriod[key][subject] = result.Percentage
		}
		report.Trends[subject] = scoring.ComputeTrend(history)
	}

	directors := directorIDs(f.Assignments)
	for _, key := range periods {
		for _, director := range directors {
			report.Teams = append(report.Teams, teamScore{
				Period:     key.String(),
				TeamRollup: scoring.RollupDirector(director, byPeriod[key], f.Assignments),
			})
		}
	}
	return report, nil
}

func directorIDs(assignments map[string]string) []string {
	seen := map[string]struct{}{}
	for _, director := range assignments {
		if director != "" {
			seen[director] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for director := range seen {
		out = append(out, director)
	}
	sort.Strings(out)
	return out
}

type reportStyles struct {
	header lipgloss.Style
	good   lipgloss.Style
	fair   lipgloss.Style
	poor   lipgloss.Style
	dim    lipgloss.Style
}

func newReportStyles() reportStyles {
	return reportStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		good:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fair:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		poor:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s reportStyles) score(value int, noData bool) string {
	cell := fmt.Sprintf("%5d", value)
	switch {
	case noData:
		return s.dim.Render("    -")
	case value >= 85:
		return s.good.Render(cell)
	case value >= 60:
		return s.fair.Render(cell)
	default:
		return s.poor.Render(cell)
	}
}

func printReport(w io.Writer, report scoreReport) {
	styles := newReportStyles()

	fmt.Fprintln(w, styles.header.Render(fmt.Sprintf("KPI SCORES (%s, %s)", report.Granularity, report.Timezone)))
	fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("%-24s %-9s %5s %7s %7s", "SUBJECT", "PERIOD", "SCORE", "EARNED", "TOTAL")))
	for _, row := range report.Subjects {
		fmt.Fprintf(w, "%-24s %-9s %s %7d %7d\n", truncate(row.Subject, 24), row.Period,
			styles.score(row.Percentage, row.NoData), row.EarnedWeight, row.TotalWeight)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.header.Render("TRENDS"))
	subjects := make([]string, 0, len(report.Trends))
	for subject := range report.Trends {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		trend := report.Trends[subject]
		fmt.Fprintf(w, "%-24s %-6s %+d\n", truncate(subject, 24), trend.Direction, signedDelta(trend))
	}

	if len(report.Teams) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.header.Render("DIRECTOR ROLL-UPS"))
	fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("%-24s %-9s %5s %8s %8s", "DIRECTOR", "PERIOD", "SCORE", "ASSIGNED", "REPORTED")))
	for _, team := range report.Teams {
		fmt.Fprintf(w, "%-24s %-9s %s %8d %8d\n", truncate(team.DirectorID, 24), team.Period,
			styles.score(team.Score, team.NoAssignees()), team.Assigned, team.Reported)
	}
}

func signedDelta(t scoring.Trend) int {
	if t.Direction == scoring.DirectionDown {
		return -t.MagnitudeDelta
	}
	return t.MagnitudeDelta
}

// truncate shortens value to width runes.
func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-3]) + "..."
}
