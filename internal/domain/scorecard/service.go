package scorecard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/reviews"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/platform/tracing"
)

type KPISource interface {
	Snapshot(ctx context.Context) ([]scoring.KPI, error)
}

type ProfileSource interface {
	Get(ctx context.Context, id string) (people.Profile, error)
	List(ctx context.Context, filter people.Filter) ([]people.Profile, error)
}

type ReviewSource interface {
	ListForSubject(ctx context.Context, subjectID string, key scoring.PeriodKey) ([]reviews.Review, error)
	ListForPeriod(ctx context.Context, key scoring.PeriodKey) ([]reviews.Review, error)
	ListForSubjectRange(ctx context.Context, subjectID string, g scoring.Granularity, from, to time.Time) ([]reviews.Review, error)
}

type Metrics interface {
	ScoreComputed(view string, noData bool)
	MalformedKPI()
}

type Service struct {
	kpis     KPISource
	profiles ProfileSource
	reviews  ReviewSource
	bucketer scoring.Bucketer
	tracer   trace.Tracer
	Metrics  Metrics
	Now      func() time.Time
}

func NewService(kpis KPISource, profiles ProfileSource, reviews ReviewSource, bucketer scoring.Bucketer) *Service {
	return &Service{
		kpis:     kpis,
		profiles: profiles,
		reviews:  reviews,
		bucketer: bucketer,
		tracer:   tracing.Tracer("scorecard"),
		Now:      time.Now,
	}
}

func (s *Service) Bucketer() scoring.Bucketer {
	return s.bucketer
}

// SubjectScore builds the scorecard of one person for one period.
func (s *Service) SubjectScore(ctx context.Context, subjectID string, key scoring.PeriodKey) (Scorecard, error) {
	ctx, span := s.tracer.Start(ctx, "scorecard.SubjectScore", trace.WithAttributes(
		attribute.String("subject.id", subjectID),
		attribute.String("period", key.String()),
	))
	defer span.End()

	subject, err := s.profiles.Get(ctx, subjectID)
	if err != nil {
		return Scorecard{}, fail(span, err)
	}
	defs, err := s.kpis.Snapshot(ctx)
	if err != nil {
		return Scorecard{}, fail(span, err)
	}
	list, err := s.reviews.ListForSubject(ctx, subjectID, key)
	if err != nil {
		return Scorecard{}, fail(span, err)
	}

	records := s.inPeriod(reviews.Records(list), key)
	result, err := scoring.Evaluate(records, defs)
	if err != nil {
		return Scorecard{}, fail(span, s.malformed(err, subjectID, key))
	}

	base := subject.Info()
	start, end := s.bucketer.Bounds(key)
	card := Scorecard{
		SubjectID:    base.ID,
		SubjectName:  base.FullName,
		Role:         subject.Role(),
		Period:       key,
		Start:        start,
		End:          end,
		Percentage:   result.Percentage,
		TotalWeight:  result.TotalWeight,
		EarnedWeight: result.EarnedWeight,
		NoData:       result.NoData(),
		Lines:        buildLines(records, defs),
	}
	span.SetAttributes(attribute.Int("score", card.Percentage), attribute.Bool("no_data", card.NoData))
	s.count(viewSubject, card.NoData)
	return card, nil
}

// SubjectTrend scores the periods periods ending with the one containing
// asOf. A zero asOf means now; zero periods means DefaultTrendPeriods.
func (s *Service) SubjectTrend(ctx context.Context, subjectID string, g scoring.Granularity, asOf time.Time, periods int) (TrendView, error) {
	if periods == 0 {
		periods = DefaultTrendPeriods
	}
	if periods < 1 || periods > MaxTrendPeriods {
		return TrendView{}, ErrInvalidTrendRange
	}
	if g == "" {
		g = scoring.Monthly
	}
	if !g.Valid() {
		return TrendView{}, fmt.Errorf("unknown granularity %q", g)
	}
	if asOf.IsZero() {
		asOf = s.Now()
	}

	ctx, span := s.tracer.Start(ctx, "scorecard.SubjectTrend", trace.WithAttributes(
		attribute.String("subject.id", subjectID),
		attribute.String("granularity", string(g)),
		attribute.Int("periods", periods),
	))
	defer span.End()

	subject, err := s.profiles.Get(ctx, subjectID)
	if err != nil {
		return TrendView{}, fail(span, err)
	}
	defs, err := s.kpis.Snapshot(ctx)
	if err != nil {
		return TrendView{}, fail(span, err)
	}

	keys := s.bucketer.Sequence(s.bucketer.Bucket(g, asOf), periods)
	from, _ := s.bucketer.Bounds(keys[0])
	_, to := s.bucketer.Bounds(keys[len(keys)-1])
	list, err := s.reviews.ListForSubjectRange(ctx, subjectID, g, from, to)
	if err != nil {
		return TrendView{}, fail(span, err)
	}
	byPeriod := scoring.GroupByPeriod(scoring.Collapse(reviews.Records(list), s.bucketer, g), s.bucketer, g)[subjectID]

	view := TrendView{
		SubjectID:   subjectID,
		SubjectName: subject.Info().FullName,
		Granularity: g,
		Points:      make([]TrendPoint, 0, len(keys)),
	}
	var scores []int
	for _, key := range keys {
		result, err := scoring.Evaluate(byPeriod[key], defs)
		if err != nil {
			return TrendView{}, fail(span, s.malformed(err, subjectID, key))
		}
		view.Points = append(view.Points, TrendPoint{Period: key, Score: result.Percentage, NoData: result.NoData()})
		if !result.NoData() {
			scores = append(scores, result.Percentage)
		}
	}
	view.Trend = scoring.ComputeTrend(scores)
	s.count(viewTrend, len(scores) == 0)
	return view, nil
}

// TeamRollup scores a director's assigned clinicians for one period and
// averages them. Clinicians without reviews count as 0.
func (s *Service) TeamRollup(ctx context.Context, directorID string, key scoring.PeriodKey) (TeamView, error) {
	ctx, span := s.tracer.Start(ctx, "scorecard.TeamRollup", trace.WithAttributes(
		attribute.String("director.id", directorID),
		attribute.String("period", key.String()),
	))
	defer span.End()

	subject, err := s.profiles.Get(ctx, directorID)
	if err != nil {
		return TeamView{}, fail(span, err)
	}
	director, ok := subject.(people.Director)
	if !ok {
		return TeamView{}, fail(span, fmt.Errorf("%w: %s", ErrNotDirector, directorID))
	}

	snap, err := s.loadPeriod(ctx, key)
	if err != nil {
		return TeamView{}, fail(span, err)
	}
	team, err := s.team(snap, director, key)
	if err != nil {
		return TeamView{}, fail(span, err)
	}
	span.SetAttributes(attribute.Int("score", team.Rollup.Score), attribute.Int("assigned", team.Rollup.Assigned))
	s.count(viewTeam, team.Rollup.Reported == 0)
	return team, nil
}

// Overview rolls up every active director for one period and lists the
// clinicians without one separately.
func (s *Service) Overview(ctx context.Context, key scoring.PeriodKey) (OverviewView, error) {
	ctx, span := s.tracer.Start(ctx, "scorecard.Overview", trace.WithAttributes(
		attribute.String("period", key.String()),
	))
	defer span.End()

	snap, err := s.loadPeriod(ctx, key)
	if err != nil {
		return OverviewView{}, fail(span, err)
	}

	view := OverviewView{Period: key, Teams: []TeamView{}, Unassigned: []MemberScore{}}
	reported := 0
	for _, director := range people.ActiveDirectors(snap.profiles) {
		team, err := s.team(snap, director, key)
		if err != nil {
			return OverviewView{}, fail(span, err)
		}
		reported += team.Rollup.Reported
		view.Teams = append(view.Teams, team)
	}
	// A clinician whose director was deactivated counts as unassigned.
	for _, clinician := range people.Unsupervised(snap.profiles) {
		member, err := s.member(snap, clinician.Base, key)
		if err != nil {
			return OverviewView{}, fail(span, err)
		}
		if !member.NoData {
			reported++
		}
		view.Unassigned = append(view.Unassigned, member)
	}
	sortMembers(view.Unassigned)

	span.SetAttributes(attribute.Int("teams", len(view.Teams)))
	s.count(viewOverview, reported == 0)
	return view, nil
}

// periodSnapshot is everything needed to score any subject in one period.
type periodSnapshot struct {
	profiles    []people.Profile
	assignments map[string]string
	defs        []scoring.KPI
	bySubject   map[string][]scoring.ReviewRecord
}

func (s *Service) loadPeriod(ctx context.Context, key scoring.PeriodKey) (periodSnapshot, error) {
	profiles, err := s.profiles.List(ctx, people.Filter{ActiveOnly: true})
	if err != nil {
		return periodSnapshot{}, err
	}
	defs, err := s.kpis.Snapshot(ctx)
	if err != nil {
		return periodSnapshot{}, err
	}
	list, err := s.reviews.ListForPeriod(ctx, key)
	if err != nil {
		return periodSnapshot{}, err
	}

	bySubject := make(map[string][]scoring.ReviewRecord)
	for _, record := range s.inPeriod(reviews.Records(list), key) {
		bySubject[record.SubjectID] = append(bySubject[record.SubjectID], record)
	}
	return periodSnapshot{
		profiles:    profiles,
		assignments: people.Assignments(profiles),
		defs:        defs,
		bySubject:   bySubject,
	}, nil
}

func (s *Service) team(snap periodSnapshot, director people.Director, key scoring.PeriodKey) (TeamView, error) {
	own, err := s.member(snap, director.Base, key)
	if err != nil {
		return TeamView{}, err
	}

	members := []MemberScore{}
	scores := make(map[string]int)
	for _, clinician := range people.Clinicians(snap.profiles) {
		if clinician.SupervisorID != director.ID {
			continue
		}
		member, err := s.member(snap, clinician.Base, key)
		if err != nil {
			return TeamView{}, err
		}
		if !member.NoData {
			scores[member.SubjectID] = member.Score
		}
		members = append(members, member)
	}
	sortMembers(members)

	return TeamView{
		DirectorID:    director.ID,
		DirectorName:  director.FullName,
		DirectorScore: own,
		Period:        key,
		Rollup:        scoring.RollupDirector(director.ID, scores, snap.assignments),
		Members:       members,
	}, nil
}

func (s *Service) member(snap periodSnapshot, base people.Base, key scoring.PeriodKey) (MemberScore, error) {
	result, err := scoring.Evaluate(snap.bySubject[base.ID], snap.defs)
	if err != nil {
		return MemberScore{}, s.malformed(err, base.ID, key)
	}
	return MemberScore{
		SubjectID: base.ID,
		Name:      base.FullName,
		Score:     result.Percentage,
		NoData:    result.NoData(),
	}, nil
}

// inPeriod collapses duplicates and drops anything the store returned from
// outside key.
func (s *Service) inPeriod(records []scoring.ReviewRecord, key scoring.PeriodKey) []scoring.ReviewRecord {
	collapsed := scoring.Collapse(records, s.bucketer, key.Granularity)
	out := collapsed[:0]
	for _, record := range collapsed {
		if s.bucketer.Contains(key, record.PeriodTimestamp) {
			out = append(out, record)
		}
	}
	return out
}

func (s *Service) malformed(err error, subjectID string, key scoring.PeriodKey) error {
	if errors.Is(err, scoring.ErrMalformedKPI) && s.Metrics != nil {
		s.Metrics.MalformedKPI()
	}
	return fmt.Errorf("score %s for %s: %w", subjectID, key, err)
}

func (s *Service) count(view string, noData bool) {
	if s.Metrics != nil {
		s.Metrics.ScoreComputed(view, noData)
	}
}

func buildLines(records []scoring.ReviewRecord, defs []scoring.KPI) []Line {
	byKPI := make(map[string]scoring.ReviewRecord, len(records))
	for _, record := range records {
		byKPI[record.KPIID] = record
	}

	lines := make([]Line, 0, len(defs))
	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.ID] = true
		record, reviewed := byKPI[def.ID]
		line := Line{KPIID: def.ID, Name: def.Name, Weight: def.Weight, Status: StatusNotReviewed}
		if reviewed {
			line.Met = record.Met
		}
		switch {
		case !def.Active && !reviewed:
			continue
		case !def.Honors(record):
			line.Status = StatusRemoved
		case record.Met == nil:
		case *record.Met:
			line.Status = StatusMet
			line.Counted = true
		default:
			line.Status = StatusNotMet
			line.Counted = true
		}
		lines = append(lines, line)
	}

	for _, record := range records {
		if known[record.KPIID] {
			continue
		}
		lines = append(lines, Line{KPIID: record.KPIID, Met: record.Met, Status: StatusUnknown})
	}
	return lines
}

func sortMembers(members []MemberScore) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
