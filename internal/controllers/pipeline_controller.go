package controllers

import (
	"encoding/binary"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pipeline_tracker/internal/auth"
	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/hierarchy"
	"pipeline_tracker/internal/models"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// Coordinate is one point of a route path or fault location.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type faultInput struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
}

type routeInput struct {
	Name        string       `json:"name" binding:"required"`
	State       string       `json:"state" binding:"required"`
	Coordinates []Coordinate `json:"coordinates"`
	Faults      []faultInput `json:"faults"`
}

// FaultResponse mirrors models.PipelineFault for API output.
type FaultResponse struct {
	ID          uint      `json:"id"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Description string    `json:"description"`
	ReportedAt  time.Time `json:"reported_at"`
	Status      string    `json:"status"`
}

// RouteResponse mirrors models.PipelineRoute but carries the decoded
// coordinate list and the derived status.
type RouteResponse struct {
	ID          uint            `json:"id"`
	CreatedAt   time.Time       `json:"CreatedAt"`
	UpdatedAt   time.Time       `json:"UpdatedAt"`
	Name        string          `json:"name"`
	State       string          `json:"state"`
	Coordinates []Coordinate    `json:"coordinates"`
	Status      string          `json:"status"`
	Faults      []FaultResponse `json:"faults"`
}

func toRouteResponse(route models.PipelineRoute) RouteResponse {
	coords, err := wkbToCoords(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("could not decode route geometry")
	}
	faults := make([]FaultResponse, 0, len(route.Faults))
	for _, f := range route.Faults {
		faults = append(faults, FaultResponse{
			ID:          f.ID,
			Lat:         f.Lat,
			Lng:         f.Lng,
			Description: f.Description,
			ReportedAt:  f.ReportedAt,
			Status:      f.Status,
		})
	}
	return RouteResponse{
		ID:          route.ID,
		CreatedAt:   route.CreatedAt,
		UpdatedAt:   route.UpdatedAt,
		Name:        route.Name,
		State:       route.State.Name,
		Coordinates: coords,
		Status:      route.Status(),
		Faults:      faults,
	}
}

// coordsToWKB encodes an ordered point list as a WKB LINESTRING.
func coordsToWKB(coords []Coordinate) ([]byte, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	flat := make([]float64, 0, len(coords)*2)
	for _, p := range coords {
		flat = append(flat, p.Lng, p.Lat)
	}
	ls := geom.NewLineStringFlat(geom.XY, flat)
	return wkb.Marshal(ls, binary.LittleEndian)
}

// wkbToCoords decodes stored WKB back into the point list.
func wkbToCoords(wkbBytes []byte) ([]Coordinate, error) {
	if len(wkbBytes) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, errors.New("route geometry is not a linestring")
	}
	coords := make([]Coordinate, 0, ls.NumCoords())
	for i := 0; i < ls.NumCoords(); i++ {
		c := ls.Coord(i)
		coords = append(coords, Coordinate{Lat: c.Y(), Lng: c.X()})
	}
	return coords, nil
}

func normalizeFaultStatus(status string) (string, error) {
	switch status {
	case "":
		return models.FaultNormal, nil
	case models.FaultNormal, models.FaultWarning, models.FaultCritical:
		return status, nil
	default:
		return "", errors.New("status must be one of normal, warning, critical")
	}
}

// resolveStateByName maps a state name to its id. Route payloads carry no
// zone, so an unknown state cannot be created here and is a field error.
func resolveStateByName(db *gorm.DB, name string) (uint, error) {
	id, err := hierarchy.ResolveOrCreate(db, hierarchy.LevelState, name, nil)
	if err != nil {
		var ve *hierarchy.ValidationError
		if errors.As(err, &ve) {
			return 0, &hierarchy.ValidationError{Field: "state", Message: "State '" + name + "' does not exist."}
		}
		return 0, err
	}
	return id, nil
}

// ListPipelineRoutes returns every route visible to the caller's profile,
// with faults and derived status.
func ListPipelineRoutes(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return
	}

	var routes []models.PipelineRoute
	query := auth.ScopeRoutes(config.DB.Model(&models.PipelineRoute{}), profile).
		Preload("Faults").
		Preload("State")
	if err := query.Find(&routes).Error; err != nil {
		logrus.WithError(err).Error("ListPipelineRoutes: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list pipeline routes"})
		return
	}

	responses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		responses = append(responses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": responses})
}

// CreatePipelineRoute creates a route, or replaces the state, coordinates and
// entire fault set of a visible route that already has the given name. The
// replacement is one transaction so readers never see a half-swapped fault
// list.
func CreatePipelineRoute(c *gin.Context) {
	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	for i, f := range input.Faults {
		status, err := normalizeFaultStatus(f.Status)
		if err != nil {
			fieldErrors(c, http.StatusBadRequest, "faults", err.Error())
			return
		}
		input.Faults[i].Status = status
	}

	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	stateID, err := resolveStateByName(tx, input.State)
	if err != nil {
		tx.Rollback()
		var ve *hierarchy.ValidationError
		if errors.As(err, &ve) {
			fieldErrors(c, http.StatusBadRequest, ve.Field, ve.Message)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	wkbGeom, err := coordsToWKB(input.Coordinates)
	if err != nil {
		tx.Rollback()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates: " + err.Error()})
		return
	}

	// Replace only when the caller can see the existing route; otherwise the
	// name collision below reads the same as any other taken name.
	var existing models.PipelineRoute
	replacing := auth.ScopeRoutes(tx.Where("name = ?", input.Name), profile).
		First(&existing).Error == nil

	var route models.PipelineRoute
	if replacing {
		existing.StateID = stateID
		existing.Geometry = wkbGeom
		if err := tx.Save(&existing).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Replace route failed: " + err.Error()})
			return
		}
		if err := tx.Unscoped().Where("pipeline_route_id = ?", existing.ID).Delete(&models.PipelineFault{}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Replace faults failed: " + err.Error()})
			return
		}
		route = existing
	} else {
		route = models.PipelineRoute{Name: input.Name, StateID: stateID, Geometry: wkbGeom}
		if err := tx.Create(&route).Error; err != nil {
			tx.Rollback()
			if isDuplicateErr(err) {
				fieldErrors(c, http.StatusBadRequest, "name", "a pipeline route with that name already exists")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Create route failed: " + err.Error()})
			return
		}
	}

	if err := createFaultRecords(tx, route.ID, input.Faults); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create fault failed: " + err.Error()})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	if err := config.DB.Preload("Faults").Preload("State").First(&route, route.ID).Error; err != nil {
		logrus.WithError(err).Error("CreatePipelineRoute: reload after commit failed")
	}
	status := http.StatusCreated
	if replacing {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"route": toRouteResponse(route)})
}

// GetPipelineRoute returns a single visible route. Ids outside the caller's
// scope are indistinguishable from ids that do not exist.
func GetPipelineRoute(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	route, found := findVisibleRoute(profile, uint(rID), true)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline route not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdatePipelineRoute applies only the supplied fields. A supplied fault list
// replaces the whole set atomically. Serves both PUT and PATCH.
func UpdatePipelineRoute(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	route, found := findVisibleRoute(profile, uint(rID), false)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline route not found"})
		return
	}

	var input struct {
		Name        *string       `json:"name"`
		State       *string       `json:"state"`
		Coordinates *[]Coordinate `json:"coordinates"`
		Faults      *[]faultInput `json:"faults"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdatePipelineRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Faults != nil {
		for i, f := range *input.Faults {
			status, err := normalizeFaultStatus(f.Status)
			if err != nil {
				fieldErrors(c, http.StatusBadRequest, "faults", err.Error())
				return
			}
			(*input.Faults)[i].Status = status
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}

	if input.State != nil {
		stateID, err := resolveStateByName(tx, *input.State)
		if err != nil {
			tx.Rollback()
			var ve *hierarchy.ValidationError
			if errors.As(err, &ve) {
				fieldErrors(c, http.StatusBadRequest, ve.Field, ve.Message)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		route.StateID = stateID
	}
	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.Coordinates != nil {
		wkbGeom, err := coordsToWKB(*input.Coordinates)
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates: " + err.Error()})
			return
		}
		route.Geometry = wkbGeom
	}

	if err := tx.Save(&route).Error; err != nil {
		tx.Rollback()
		if isDuplicateErr(err) {
			fieldErrors(c, http.StatusBadRequest, "name", "a pipeline route with that name already exists")
			return
		}
		logrus.WithError(err).Error("UpdatePipelineRoute: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	if input.Faults != nil {
		if err := tx.Unscoped().Where("pipeline_route_id = ?", route.ID).Delete(&models.PipelineFault{}).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Replace faults failed: " + err.Error()})
			return
		}
		if err := createFaultRecords(tx, route.ID, *input.Faults); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Replace faults failed: " + err.Error()})
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	if err := config.DB.Preload("Faults").Preload("State").First(&route, route.ID).Error; err != nil {
		logrus.WithError(err).Error("UpdatePipelineRoute: reload after commit failed")
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// DeletePipelineRoute removes a visible route and its faults.
func DeletePipelineRoute(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	route, found := findVisibleRoute(profile, uint(rID), false)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline route not found"})
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	// Hard delete: a lingering soft-deleted row would keep the unique name
	// taken and block recreating a route under the same name.
	if err := tx.Unscoped().Where("pipeline_route_id = ?", route.ID).Delete(&models.PipelineFault{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete faults: " + err.Error()})
		return
	}
	if err := tx.Unscoped().Delete(&models.PipelineRoute{}, route.ID).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route: " + err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pipeline route deleted successfully"})
}

// findVisibleRoute fetches a route by id within the caller's scope.
func findVisibleRoute(profile *models.Profile, id uint, withAssociations bool) (models.PipelineRoute, bool) {
	query := auth.ScopeRoutes(config.DB, profile)
	if withAssociations {
		query = query.Preload("Faults").Preload("State")
	}
	var route models.PipelineRoute
	if err := query.First(&route, id).Error; err != nil {
		return models.PipelineRoute{}, false
	}
	return route, true
}

func createFaultRecords(tx *gorm.DB, routeID uint, faults []faultInput) error {
	now := time.Now()
	for _, f := range faults {
		fault := models.PipelineFault{
			PipelineRouteID: routeID,
			Lat:             f.Lat,
			Lng:             f.Lng,
			Description:     f.Description,
			ReportedAt:      now,
			Status:          f.Status,
		}
		if err := tx.Create(&fault).Error; err != nil {
			return err
		}
	}
	return nil
}
