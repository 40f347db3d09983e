package models

import "gorm.io/gorm"

// Zone is the root level of the geographic hierarchy.
type Zone struct {
	gorm.Model
	Name string `json:"name" gorm:"unique;not null"`
}
