package people

import (
	"context"
	"fmt"
	"strings"

	"kpiboard/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Profile, error) {
	records, err := s.store.ListProfiles(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll(records)
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	rec, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Director loads id and fails with ErrInvalidAssignment when it is not a
// director.
func (s *Service) Director(ctx context.Context, id string) (Director, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Director{}, err
	}
	d, ok := p.(Director)
	if !ok {
		return Director{}, fmt.Errorf("%w: %s is not a director", ErrInvalidAssignment, id)
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Profile, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	input.SupervisorID = strings.TrimSpace(input.SupervisorID)
	if input.Email == "" || input.FullName == "" {
		return nil, fmt.Errorf("%w: email and full name are required", ErrInvalidProfile)
	}
	if !auth.ValidRole(input.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, input.Role)
	}

	rec := Record{Email: input.Email, FullName: input.FullName, Role: input.Role}
	if input.SupervisorID != "" {
		if input.Role != auth.RoleClinician {
			return nil, fmt.Errorf("%w: only clinicians have a supervisor", ErrInvalidAssignment)
		}
		if _, err := s.Director(ctx, input.SupervisorID); err != nil {
			return nil, err
		}
		rec.SupervisorID = &input.SupervisorID
	}

	hash := ""
	if input.Password != "" {
		hashed, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		hash = hashed
	}

	created, err := s.store.CreateProfile(ctx, rec, hash)
	if err != nil {
		return nil, err
	}
	return Decode(created)
}

func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Profile, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if input.Email == "" || input.FullName == "" {
		return nil, fmt.Errorf("%w: email and full name are required", ErrInvalidProfile)
	}
	rec, err := s.store.UpdateProfile(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// AssignSupervisor links a clinician to a director. An empty directorID
// unassigns the clinician.
func (s *Service) AssignSupervisor(ctx context.Context, clinicianID, directorID string) (Profile, error) {
	subject, err := s.Get(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if _, ok := subject.(Clinician); !ok {
		return nil, fmt.Errorf("%w: %s is not a clinician", ErrInvalidAssignment, clinicianID)
	}

	directorID = strings.TrimSpace(directorID)
	var supervisor *string
	if directorID != "" {
		if directorID == clinicianID {
			return nil, fmt.Errorf("%w: clinician cannot supervise itself", ErrInvalidAssignment)
		}
		if _, err := s.Director(ctx, directorID); err != nil {
			return nil, err
		}
		supervisor = &directorID
	}

	rec, err := s.store.SetSupervisor(ctx, clinicianID, supervisor)
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// Team returns the clinicians assigned to directorID.
func (s *Service) Team(ctx context.Context, directorID string) ([]Clinician, error) {
	profiles, err := s.List(ctx, Filter{Role: auth.RoleClinician, SupervisorID: directorID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return Clinicians(profiles), nil
}
