package auth

import (
	"errors"
	"strings"

	"pipeline_tracker/internal/models"
)

var knownRoles = []string{
	models.RoleNational,
	models.RoleZonal,
	models.RoleState,
	models.RoleArea,
	models.RoleUnit,
}

// NormalizeRole validates a requested role string case-insensitively and
// returns its canonical form. An empty role means Unit.
func NormalizeRole(roleInput string) (string, error) {
	role := strings.TrimSpace(roleInput)
	if role == "" {
		return models.RoleUnit, nil
	}
	for _, known := range knownRoles {
		if strings.EqualFold(role, known) {
			return known, nil
		}
	}
	return "", errors.New("invalid role")
}

// CanCreateRole reports whether a user holding actingRole may register a new
// user with requestedRole. Each role creates accounts only one rung below its
// own: National is unrestricted, Unit creates nothing. An empty requestedRole
// means Unit, the default role.
func CanCreateRole(actingRole, requestedRole string) bool {
	if requestedRole == "" {
		requestedRole = models.RoleUnit
	}
	switch actingRole {
	case models.RoleNational:
		return true
	case models.RoleZonal:
		return requestedRole == models.RoleState
	case models.RoleState:
		return requestedRole == models.RoleArea
	case models.RoleArea:
		return requestedRole == models.RoleUnit
	default:
		return false
	}
}

// VisibleProfileFields returns which hierarchy fields of another user's
// profile a viewer with the given role may see. nil means no redaction
// (National viewers); an empty slice hides everything.
func VisibleProfileFields(viewerRole string) []string {
	switch viewerRole {
	case models.RoleNational:
		return nil
	case models.RoleZonal:
		return []string{"zone", "state", "area", "unit"}
	case models.RoleState:
		return []string{"state", "area", "unit"}
	case models.RoleArea:
		return []string{"area", "unit"}
	case models.RoleUnit:
		return []string{"unit"}
	default:
		return []string{}
	}
}
