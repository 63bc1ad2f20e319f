package kpi

import (
	"context"
	"strings"
	"unicode/utf8"

	"kpiboard/internal/domain/scoring"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, includeRemoved bool) ([]KPI, error) {
	return s.store.ListKPIs(ctx, includeRemoved)
}

func (s *Service) Get(ctx context.Context, id string) (KPI, error) {
	return s.store.GetKPI(ctx, id)
}

func (s *Service) Create(ctx context.Context, input Input) (KPI, error) {
	input, err := normalize(input)
	if err != nil {
		return KPI{}, err
	}
	return s.store.CreateKPI(ctx, input)
}

func (s *Service) Update(ctx context.Context, id string, input Input) (KPI, error) {
	input, err := normalize(input)
	if err != nil {
		return KPI{}, err
	}
	return s.store.UpdateKPI(ctx, id, input)
}

func (s *Service) Remove(ctx context.Context, id string) (KPI, error) {
	current, err := s.store.GetKPI(ctx, id)
	if err != nil {
		return KPI{}, err
	}
	if !current.Active {
		return KPI{}, ErrAlreadyRemoved
	}
	return s.store.RemoveKPI(ctx, id)
}

func (s *Service) Restore(ctx context.Context, id string) (KPI, error) {
	current, err := s.store.GetKPI(ctx, id)
	if err != nil {
		return KPI{}, err
	}
	if current.Active {
		return KPI{}, ErrNotRemoved
	}
	return s.store.RestoreKPI(ctx, id)
}

// Snapshot returns every definition, removed ones included, in scoring form.
// Removed KPIs must be present so historical reviews keep their weight.
func (s *Service) Snapshot(ctx context.Context) ([]scoring.KPI, error) {
	all, err := s.store.ListKPIs(ctx, true)
	if err != nil {
		return nil, err
	}
	return ToScoring(all), nil
}

func normalize(input Input) (Input, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" {
		return Input{}, ErrNameRequired
	}
	if utf8.RuneCountInString(input.Name) > MaxNameLength {
		return Input{}, ErrNameTooLong
	}
	if input.Weight < MinWeight || input.Weight > MaxWeight {
		return Input{}, ErrInvalidWeight
	}
	return input, nil
}
