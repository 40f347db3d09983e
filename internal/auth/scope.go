package auth

import (
	"gorm.io/gorm"

	"pipeline_tracker/internal/models"
)

// ScopeRoutes restricts a pipeline-route query to the subtree the profile is
// authorized to see. It is applied to list, single-item, update and delete
// lookups alike, so a route outside the caller's scope surfaces as not-found.
//
// Routes carry only a state reference, so Area and Unit profiles scope to the
// ancestor state of their anchor (unit -> area -> state). A missing or broken
// anchor chain yields the empty set, never an error.
func ScopeRoutes(db *gorm.DB, profile *models.Profile) *gorm.DB {
	if profile == nil {
		return none(db)
	}
	switch profile.Role {
	case models.RoleNational:
		return db
	case models.RoleZonal:
		if profile.ZoneID == nil {
			return none(db)
		}
		return db.Where("pipeline_routes.state_id IN (SELECT id FROM states WHERE zone_id = ?)", *profile.ZoneID)
	case models.RoleState:
		if profile.StateID == nil {
			return none(db)
		}
		return db.Where("pipeline_routes.state_id = ?", *profile.StateID)
	case models.RoleArea:
		if profile.AreaID == nil {
			return none(db)
		}
		return db.Where("pipeline_routes.state_id IN (SELECT state_id FROM areas WHERE id = ?)", *profile.AreaID)
	case models.RoleUnit:
		if profile.UnitID == nil {
			return none(db)
		}
		return db.Where("pipeline_routes.state_id IN (SELECT areas.state_id FROM areas JOIN units ON units.area_id = areas.id WHERE units.id = ?)", *profile.UnitID)
	default:
		return none(db)
	}
}

func none(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}
