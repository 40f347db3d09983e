package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username  string `json:"username" gorm:"unique;not null"`
	Password  string `json:"-"`
	Email     string `json:"email" gorm:"unique;not null"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`
	IsStaff   bool   `json:"is_staff" gorm:"default:false"`

	// Every user owns exactly one profile, created alongside the user.
	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile,omitempty"`
}
