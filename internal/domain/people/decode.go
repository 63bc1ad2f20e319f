package people

import (
	"fmt"
	"strings"

	"kpiboard/internal/domain/auth"
)

// Decode validates a raw row and returns its variant.
func Decode(rec Record) (Profile, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	base := Base{
		ID:        rec.ID,
		Email:     rec.Email,
		FullName:  rec.FullName,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
	}
	supervisor := ""
	if rec.SupervisorID != nil {
		supervisor = strings.TrimSpace(*rec.SupervisorID)
	}

	switch rec.Role {
	case auth.RoleClinician:
		if supervisor == rec.ID {
			return nil, fmt.Errorf("%w: clinician %s supervises itself", ErrInvalidProfile, rec.ID)
		}
		return Clinician{Base: base, SupervisorID: supervisor}, nil
	case auth.RoleDirector:
		if supervisor != "" {
			return nil, fmt.Errorf("%w: director %s has a supervisor", ErrInvalidProfile, rec.ID)
		}
		return Director{Base: base}, nil
	case auth.RoleSuperAdmin:
		if supervisor != "" {
			return nil, fmt.Errorf("%w: super admin %s has a supervisor", ErrInvalidProfile, rec.ID)
		}
		return SuperAdmin{Base: base}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, rec.Role)
	}
}

func decodeAll(records []Record) ([]Profile, error) {
	out := make([]Profile, 0, len(records))
	for _, rec := range records {
		p, err := Decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
