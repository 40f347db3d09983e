package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pipeline_tracker/internal/auth"
	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/models"
)

// fieldErrors renders a field-level error map, one message per field.
func fieldErrors(c *gin.Context, status int, field, message string) {
	c.JSON(status, gin.H{field: []string{message}})
}

// currentProfile resolves the authenticated caller's profile. The second
// return reports whether the request carried a valid identity at all; the
// profile itself may still be nil for a user without one.
func currentProfile(c *gin.Context) (*models.Profile, bool) {
	val, ok := c.Get("user_id")
	if !ok {
		return nil, false
	}
	idFloat, ok := val.(float64)
	if !ok {
		return nil, false
	}

	var profile models.Profile
	if err := config.DB.Where("user_id = ?", uint(idFloat)).First(&profile).Error; err != nil {
		return nil, true
	}
	return &profile, true
}

// loadUserWithProfile fetches a user with the profile and its hierarchy
// names preloaded for response building.
func loadUserWithProfile(db *gorm.DB, id uint) (models.User, error) {
	var user models.User
	err := db.
		Preload("Profile").
		Preload("Profile.Zone").
		Preload("Profile.State").
		Preload("Profile.Area").
		Preload("Profile.Unit").
		First(&user, id).Error
	return user, err
}

// prepareUserResponse maps a user to its JSON shape, redacting the profile's
// hierarchy fields for non-National viewers. A nil viewer (the anonymous
// registration path) sees everything.
func prepareUserResponse(user models.User, viewer *models.Profile) gin.H {
	responseUser := gin.H{
		"ID":         user.ID,
		"CreatedAt":  user.CreatedAt,
		"UpdatedAt":  user.UpdatedAt,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
		"is_staff":   user.IsStaff,
	}
	if user.Profile != nil {
		responseUser["profile"] = prepareProfileResponse(*user.Profile, viewer)
	}
	return responseUser
}

func prepareProfileResponse(profile models.Profile, viewer *models.Profile) gin.H {
	full := gin.H{
		"id":       profile.ID,
		"role":     profile.Role,
		"location": profile.Location,
		"zone":     nodeName(profile.Zone != nil, func() string { return profile.Zone.Name }),
		"state":    nodeName(profile.State != nil, func() string { return profile.State.Name }),
		"area":     nodeName(profile.Area != nil, func() string { return profile.Area.Name }),
		"unit":     nodeName(profile.Unit != nil, func() string { return profile.Unit.Name }),
	}

	if viewer == nil {
		return full
	}
	include := auth.VisibleProfileFields(viewer.Role)
	if include == nil {
		return full
	}
	filtered := gin.H{}
	for _, field := range include {
		filtered[field] = full[field]
	}
	return filtered
}

func nodeName(loaded bool, name func() string) interface{} {
	if !loaded {
		return nil
	}
	return name()
}
