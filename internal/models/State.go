package models

import "gorm.io/gorm"

// State belongs to exactly one Zone.
type State struct {
	gorm.Model
	Name   string `json:"name" gorm:"unique;not null"`
	ZoneID uint   `json:"zone_id" gorm:"index"`
	Zone   Zone   `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
}
