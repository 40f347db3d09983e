package hierarchy

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"pipeline_tracker/internal/models"
)

// Level identifies a tier of the geographic hierarchy.
type Level int

const (
	LevelZone Level = iota
	LevelState
	LevelArea
	LevelUnit
)

func (l Level) String() string {
	switch l {
	case LevelZone:
		return "zone"
	case LevelState:
		return "state"
	case LevelArea:
		return "area"
	case LevelUnit:
		return "unit"
	default:
		return "unknown"
	}
}

// ValidationError reports bad hierarchy input: a missing name, a missing
// parent for a level that requires one, or a parent that does not exist.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ResolveOrCreate looks up a hierarchy node of the given level by its unique
// name, creating it under parentID when absent. Zone takes no parent; every
// other level requires one. Lookup never reparents an existing node, so
// repeated calls with the same (level, name) return the same id. When two
// callers race to create the same name, the loser re-resolves the winner's
// row instead of surfacing the unique-violation to its caller.
func ResolveOrCreate(db *gorm.DB, level Level, name string, parentID *uint) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &ValidationError{Field: level.String(), Message: "name is required"}
	}

	id, found, err := lookup(db, level, name)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	id, err = create(db, level, name, parentID)
	if err == nil {
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, err
	}

	// Lost a creation race; the row exists now.
	id, found, err = lookup(db, level, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.New("hierarchy node vanished after duplicate-name conflict")
	}
	return id, nil
}

func lookup(db *gorm.DB, level Level, name string) (uint, bool, error) {
	var id uint
	var err error
	switch level {
	case LevelZone:
		var node models.Zone
		err = db.Where("name = ?", name).First(&node).Error
		id = node.ID
	case LevelState:
		var node models.State
		err = db.Where("name = ?", name).First(&node).Error
		id = node.ID
	case LevelArea:
		var node models.Area
		err = db.Where("name = ?", name).First(&node).Error
		id = node.ID
	case LevelUnit:
		var node models.Unit
		err = db.Where("name = ?", name).First(&node).Error
		id = node.ID
	default:
		return 0, false, errors.New("unknown hierarchy level")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func create(db *gorm.DB, level Level, name string, parentID *uint) (uint, error) {
	if level == LevelZone {
		node := models.Zone{Name: name}
		if err := db.Create(&node).Error; err != nil {
			return 0, err
		}
		return node.ID, nil
	}

	if parentID == nil {
		return 0, &ValidationError{
			Field:   level.String(),
			Message: "a parent " + parentLevel(level).String() + " is required to create " + level.String() + " '" + name + "'",
		}
	}
	if err := parentExists(db, level, *parentID); err != nil {
		return 0, err
	}

	switch level {
	case LevelState:
		node := models.State{Name: name, ZoneID: *parentID}
		if err := db.Create(&node).Error; err != nil {
			return 0, err
		}
		return node.ID, nil
	case LevelArea:
		node := models.Area{Name: name, StateID: *parentID}
		if err := db.Create(&node).Error; err != nil {
			return 0, err
		}
		return node.ID, nil
	case LevelUnit:
		node := models.Unit{Name: name, AreaID: *parentID}
		if err := db.Create(&node).Error; err != nil {
			return 0, err
		}
		return node.ID, nil
	default:
		return 0, errors.New("unknown hierarchy level")
	}
}

func parentLevel(level Level) Level {
	return level - 1
}

func parentExists(db *gorm.DB, level Level, parentID uint) error {
	var err error
	switch level {
	case LevelState:
		err = db.First(&models.Zone{}, parentID).Error
	case LevelArea:
		err = db.First(&models.State{}, parentID).Error
	case LevelUnit:
		err = db.First(&models.Area{}, parentID).Error
	default:
		return errors.New("unknown hierarchy level")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ValidationError{
			Field:   parentLevel(level).String(),
			Message: parentLevel(level).String() + " does not exist",
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite used by package tests
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
