package auth

import "context"

const (
	RoleSuperAdmin = "super_admin"
	RoleDirector   = "director"
	RoleClinician  = "clinician"
)

const (
	PermKPIsRead       = "kpis.read"
	PermKPIsWrite      = "kpis.write"
	PermPeopleRead     = "people.read"
	PermPeopleWrite    = "people.write"
	PermReviewsRead    = "reviews.read"
	PermReviewsWrite   = "reviews.write"
	PermScoresRead     = "scores.read"
	PermScoresOverview = "scores.overview"
	PermReportsExport  = "reports.export"
	PermAuditRead      = "audit.read"
	PermJobsAdmin      = "admin.jobs"
)

var DefaultPermissions = []string{
	PermKPIsRead,
	PermKPIsWrite,
	PermPeopleRead,
	PermPeopleWrite,
	PermReviewsRead,
	PermReviewsWrite,
	PermScoresRead,
	PermScoresOverview,
	PermReportsExport,
	PermAuditRead,
	PermJobsAdmin,
}

var Roles = []string{RoleSuperAdmin, RoleDirector, RoleClinician}

// RolePermissions grants route-level access. Row-level rules (who may see or
// review whom) live in the people package.
var RolePermissions = map[string][]string{
	RoleClinician: {
		PermKPIsRead,
		PermPeopleRead,
		PermReviewsRead,
		PermScoresRead,
		PermReportsExport,
	},
	RoleDirector: {
		PermKPIsRead,
		PermPeopleRead,
		PermReviewsRead,
		PermReviewsWrite,
		PermScoresRead,
		PermReportsExport,
	},
	RoleSuperAdmin: DefaultPermissions,
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return HasPermission(role, permission), nil
}
