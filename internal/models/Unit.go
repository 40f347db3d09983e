package models

import "gorm.io/gorm"

// Unit is the leaf level of the geographic hierarchy, under an Area.
type Unit struct {
	gorm.Model
	Name   string `json:"name" gorm:"unique;not null"`
	AreaID uint   `json:"area_id" gorm:"index"`
	Area   Area   `gorm:"foreignKey:AreaID" json:"area,omitempty"`
}
