// Package people holds person records and the director/clinician hierarchy.
//
// Rows are decoded into a closed set of variants at the store boundary, so
// the rest of the code never inspects loosely typed role strings or optional
// supervisor fields.
package people

import (
	"time"

	"kpiboard/internal/domain/auth"
)

// Record is a raw profiles row.
type Record struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	SupervisorID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Base struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is implemented only by Clinician, Director and SuperAdmin.
type Profile interface {
	Info() Base
	Role() string
	profile()
}

type Clinician struct {
	Base
	// SupervisorID is empty for an unassigned clinician.
	SupervisorID string
}

type Director struct {
	Base
}

type SuperAdmin struct {
	Base
}

func (c Clinician) Info() Base { return c.Base }
func (c Clinician) Role() string { return auth.RoleClinician }
func (Clinician) profile() {}
func (d Director) Info() Base { return d.Base }
func (d Director) Role() string { return auth.RoleDirector }
func (Director) profile() {}
func (a SuperAdmin) Info() Base { return a.Base }
func (a SuperAdmin) Role() string { return auth.RoleSuperAdmin }
func (SuperAdmin) profile() {}

// Unassigned reports whether the clinician has no director.
func (c Clinician) Unassigned() bool {
	return c.SupervisorID == ""
}

// View is the JSON shape of any profile.
type View struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	SupervisorID string    `json:"supervisorId,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ViewOf(p Profile) View {
	base := p.Info()
	view := View{
		ID:        base.ID,
		Email:     base.Email,
		FullName:  base.FullName,
		Role:      p.Role(),
		Active:    base.Active,
		CreatedAt: base.CreatedAt,
	}
	if c, ok := p.(Clinician); ok {
		view.SupervisorID = c.SupervisorID
	}
	return view
}

func Views(profiles []Profile) []View {
	out := make([]View, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, ViewOf(p))
	}
	return out
}

type Filter struct {
	Role         string
	SupervisorID string
	Unassigned   bool
	ActiveOnly   bool
}

type CreateInput struct {
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"fullName" validate:"required,max=200"`
	Role         string `json:"role" validate:"required,oneof=super_admin director clinician"`
	SupervisorID string `json:"supervisorId" validate:"omitempty,uuid"`
	Password     string `json:"password" validate:"omitempty,min=8"`
}

type UpdateInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Active   *bool  `json:"active"`
}
