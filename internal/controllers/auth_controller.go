package controllers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pipeline_tracker/internal/auth"
	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/hierarchy"
	"pipeline_tracker/internal/middleware"
	"pipeline_tracker/internal/models"
)

type profileInput struct {
	Role     string `json:"role"`
	Location string `json:"location"`
	Zone     string `json:"zone"`
	State    string `json:"state"`
	Area     string `json:"area"`
	Unit     string `json:"unit"`
}

type registerInput struct {
	Username  string       `json:"username" binding:"required"`
	Password  string       `json:"password" binding:"required"`
	Email     string       `json:"email" binding:"required,email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Profile   profileInput `json:"profile"`
}

// RegisterUser creates a user and its profile in one transaction. Anonymous
// registration is open unless REQUIRE_AUTH_FOR_REGISTER is set; an
// authenticated caller may only request roles its own role can create.
func RegisterUser(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := auth.NormalizeRole(input.Profile.Role)
	if err != nil {
		fieldErrors(c, http.StatusBadRequest, "role", err.Error())
		return
	}

	actingProfile, authenticated := currentProfile(c)
	if !authenticated && requireAuthForRegister() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required to register"})
		return
	}
	if authenticated {
		actingRole := ""
		if actingProfile != nil {
			actingRole = actingProfile.Role
		}
		if !auth.CanCreateRole(actingRole, role) {
			c.JSON(http.StatusForbidden, gin.H{"error": actingRole + " users cannot create " + role + " users"})
			return
		}
	}

	if err := auth.DefaultPasswordPolicy().Validate(input.Password); err != nil {
		fieldErrors(c, http.StatusBadRequest, "password", err.Error())
		return
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start transaction"})
		return
	}

	if field, err := registerConflict(tx, input); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		return
	} else if field != "" {
		tx.Rollback()
		fieldErrors(c, http.StatusBadRequest, field, "a user with that "+field+" already exists")
		return
	}

	user, err := createUserRecord(tx, input, hashedPassword)
	if err != nil {
		tx.Rollback()
		if isDuplicateErr(err) {
			fieldErrors(c, http.StatusBadRequest, "username", "a user with that username or email already exists")
			return
		}
		logrus.WithError(err).Error("RegisterUser: could not create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	if _, err := createProfileRecord(tx, user.ID, input.Profile, role); err != nil {
		tx.Rollback()
		var ve *hierarchy.ValidationError
		if errors.As(err, &ve) {
			fieldErrors(c, http.StatusBadRequest, ve.Field, ve.Message)
			return
		}
		logrus.WithError(err).Error("RegisterUser: could not create profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create profile"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not commit transaction: " + err.Error()})
		return
	}

	created, err := loadUserWithProfile(config.DB, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load created user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": prepareUserResponse(created, actingProfile)})
}

// LoginUser authenticates by username + password. Unknown users and wrong
// passwords return the identical response so neither case is distinguishable.
func LoginUser(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := config.DB.Where("username = ?", body.Username).First(&user).Error; err != nil {
		invalidCredentials(c)
		return
	}
	if !user.IsActive {
		invalidCredentials(c)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		invalidCredentials(c)
		return
	}

	loaded, err := loadUserWithProfile(config.DB, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user: " + err.Error()})
		return
	}

	role := ""
	if loaded.Profile != nil {
		role = loaded.Profile.Role
	}
	token, jti, err := middleware.GenerateToken(user.ID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	session := models.Session{
		UserID:    user.ID,
		TokenID:   jti,
		ExpiresAt: time.Now().Add(middleware.TokenTTL),
	}
	if err := config.DB.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  prepareUserResponse(loaded, loaded.Profile),
	})
}

// LogoutUser revokes the presented token's session.
func LogoutUser(c *gin.Context) {
	jti := c.GetString("token_id")
	if err := config.DB.Where("token_id = ?", jti).Delete(&models.Session{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not revoke session: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func invalidCredentials(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
}

func requireAuthForRegister() bool {
	return strings.EqualFold(os.Getenv("REQUIRE_AUTH_FOR_REGISTER"), "true")
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// registerConflict reports which unique field, if any, is already taken.
func registerConflict(tx *gorm.DB, input registerInput) (string, error) {
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "username", nil
	}
	if err := tx.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return "email", nil
	}
	return "", nil
}

func createUserRecord(tx *gorm.DB, input registerInput, hashedPassword string) (models.User, error) {
	user := models.User{
		Username:  input.Username,
		Password:  hashedPassword,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

// createProfileRecord builds the user's one profile, resolving each named
// hierarchy node under the previously resolved parent.
func createProfileRecord(tx *gorm.DB, userID uint, in profileInput, role string) (models.Profile, error) {
	profile := models.Profile{UserID: userID, Role: role, Location: in.Location}

	if in.Zone != "" {
		id, err := hierarchy.ResolveOrCreate(tx, hierarchy.LevelZone, in.Zone, nil)
		if err != nil {
			return models.Profile{}, err
		}
		profile.ZoneID = &id
	}
	if in.State != "" {
		id, err := hierarchy.ResolveOrCreate(tx, hierarchy.LevelState, in.State, profile.ZoneID)
		if err != nil {
			return models.Profile{}, err
		}
		profile.StateID = &id
	}
	if in.Area != "" {
		id, err := hierarchy.ResolveOrCreate(tx, hierarchy.LevelArea, in.Area, profile.StateID)
		if err != nil {
			return models.Profile{}, err
		}
		profile.AreaID = &id
	}
	if in.Unit != "" {
		id, err := hierarchy.ResolveOrCreate(tx, hierarchy.LevelUnit, in.Unit, profile.AreaID)
		if err != nil {
			return models.Profile{}, err
		}
		profile.UnitID = &id
	}

	if err := tx.Create(&profile).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func isDuplicateErr(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
