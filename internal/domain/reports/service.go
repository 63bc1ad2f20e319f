package reports

import (
	"bytes"
	"context"
	"fmt"

	"kpiboard/internal/domain/scorecard"
	"kpiboard/internal/domain/scoring"
)

// ScoreSource is the part of the scorecard service reports need.
type ScoreSource interface {
	SubjectScore(ctx context.Context, subjectID string, key scoring.PeriodKey) (scorecard.Scorecard, error)
	TeamRollup(ctx context.Context, directorID string, key scoring.PeriodKey) (scorecard.TeamView, error)
	Bucketer() scoring.Bucketer
}

// Document is a rendered report ready to stream.
type Document struct {
	Filename string
	Content  []byte
}

type Service struct {
	scores ScoreSource
}

func NewService(scores ScoreSource) *Service {
	return &Service{scores: scores}
}

func (s *Service) Scorecard(ctx context.Context, subjectID string, key scoring.PeriodKey) (Document, error) {
	card, err := s.scores.SubjectScore(ctx, subjectID, key)
	if err != nil {
		return Document{}, err
	}
	var buf bytes.Buffer
	if err := RenderScorecard(&buf, card); err != nil {
		return Document{}, fmt.Errorf("render scorecard: %w", err)
	}
	return Document{
		Filename: fmt.Sprintf("scorecard-%s-%s.pdf", subjectID, key),
		Content:  buf.Bytes(),
	}, nil
}

func (s *Service) Team(ctx context.Context, directorID string, key scoring.PeriodKey) (Document, error) {
	team, err := s.scores.TeamRollup(ctx, directorID, key)
	if err != nil {
		return Document{}, err
	}
	start, end := s.scores.Bucketer().Bounds(key)
	var buf bytes.Buffer
	if err := RenderTeam(&buf, team, start, end); err != nil {
		return Document{}, fmt.Errorf("render team report: %w", err)
	}
	return Document{
		Filename: fmt.Sprintf("team-%s-%s.pdf", directorID, key),
		Content:  buf.Bytes(),
	}, nil
}
