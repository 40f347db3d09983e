package models

import "gorm.io/gorm"

// Area belongs to exactly one State.
type Area struct {
	gorm.Model
	Name    string `json:"name" gorm:"unique;not null"`
	StateID uint   `json:"state_id" gorm:"index"`
	State   State  `gorm:"foreignKey:StateID" json:"state,omitempty"`
}
