package people

// CanView reports whether actor may read subject's reviews and scores.
func CanView(actor, subject Profile) bool {
	if actor == nil || subject == nil {
		return false
	}
	if actor.Info().ID == subject.Info().ID {
		return true
	}
	switch a := actor.(type) {
	case SuperAdmin:
		return true
	case Director:
		c, ok := subject.(Clinician)
		return ok && c.SupervisorID == a.ID
	default:
		return false
	}
}

// CanReview reports whether actor may record reviews for subject. Nobody
// reviews themselves.
func CanReview(actor, subject Profile) bool {
	if actor == nil || subject == nil || actor.Info().ID == subject.Info().ID {
		return false
	}
	switch a := actor.(type) {
	case SuperAdmin:
		return true
	case Director:
		c, ok := subject.(Clinician)
		return ok && c.SupervisorID == a.ID
	default:
		return false
	}
}

// Assignments maps every clinician id to its director id ("" when
// unassigned). Non-clinicians are left out.
func Assignments(profiles []Profile) map[string]string {
	out := make(map[string]string)
	for _, p := range profiles {
		if c, ok := p.(Clinician); ok {
			out[c.ID] = c.SupervisorID
		}
	}
	return out
}

func Directors(profiles []Profile) []Director {
	var out []Director
	for _, p := range profiles {
		if d, ok := p.(Director); ok {
			out = append(out, d)
		}
	}
	return out
}

func Clinicians(profiles []Profile) []Clinician {
	var out []Clinician
	for _, p := range profiles {
		if c, ok := p.(Clinician); ok {
			out = append(out, c)
		}
	}
	return out
}

// ActiveDirectors is Directors without the deactivated ones.
func ActiveDirectors(profiles []Profile) []Director {
	var out []Director
	for _, d := range Directors(profiles) {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

// Unsupervised returns the clinicians with no active director among
// profiles: unassigned ones and those still pointing at a director who was
// deactivated or is missing from the list.
func Unsupervised(profiles []Profile) []Clinician {
	active := make(map[string]bool)
	for _, d := range ActiveDirectors(profiles) {
		active[d.ID] = true
	}
	var out []Clinician
	for _, c := range Clinicians(profiles) {
		if !active[c.SupervisorID] {
			out = append(out, c)
		}
	}
	return out
}
