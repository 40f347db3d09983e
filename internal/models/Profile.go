package models

import "gorm.io/gorm"

// Roles, from widest authority to narrowest. A profile's role decides which
// hierarchy reference below is its authorizing anchor; lower references may
// still be filled in for display.
const (
	RoleNational = "National"
	RoleZonal    = "Zonal"
	RoleState    = "State"
	RoleArea     = "Area"
	RoleUnit     = "Unit"
)

type Profile struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"uniqueIndex"`
	Role     string `json:"role" gorm:"default:'Unit'"` // National, Zonal, State, Area, Unit
	Location string `json:"location"`

	ZoneID  *uint `json:"zone_id"`
	StateID *uint `json:"state_id"`
	AreaID  *uint `json:"area_id"`
	UnitID  *uint `json:"unit_id"`

	Zone  *Zone  `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	State *State `gorm:"foreignKey:StateID" json:"state,omitempty"`
	Area  *Area  `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Unit  *Unit  `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
}
