package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/hierarchy"
	"pipeline_tracker/internal/models"
)

// seedStates creates Lagos (South West) and Kano (North West) directly.
func seedStates(t *testing.T) {
	t.Helper()
	sw, err := hierarchy.ResolveOrCreate(config.DB, hierarchy.LevelZone, "South West", nil)
	if err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	if _, err := hierarchy.ResolveOrCreate(config.DB, hierarchy.LevelState, "Lagos", &sw); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	nw, err := hierarchy.ResolveOrCreate(config.DB, hierarchy.LevelZone, "North West", nil)
	if err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	if _, err := hierarchy.ResolveOrCreate(config.DB, hierarchy.LevelState, "Kano", &nw); err != nil {
		t.Fatalf("seed state: %v", err)
	}
}

func decodeRoute(t *testing.T, body []byte) RouteResponse {
	t.Helper()
	var resp struct {
		Route RouteResponse `json:"route"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	return resp.Route
}

func routePayload(name, state string, faultStatuses ...string) gin.H {
	faults := make([]gin.H, 0, len(faultStatuses))
	for i, status := range faultStatuses {
		faults = append(faults, gin.H{
			"lat":         6.5 + float64(i)*0.01,
			"lng":         3.3 + float64(i)*0.01,
			"description": "inspection finding",
			"status":      status,
		})
	}
	return gin.H{
		"name":  name,
		"state": state,
		"coordinates": []gin.H{
			{"lat": 6.45, "lng": 3.39},
			{"lat": 6.52, "lng": 3.37},
			{"lat": 6.61, "lng": 3.35},
		},
		"faults": faults,
	}
}

func TestCreateRouteDerivesWorstFaultStatus(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"Calm Line", nil, models.FaultNormal},
		{"Watch Line", []string{"normal", "warning"}, models.FaultWarning},
		{"Hot Line", []string{"warning", "critical", "normal"}, models.FaultCritical},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload(tc.name, "Lagos", tc.statuses...))
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: status %d, body %s", tc.name, w.Code, w.Body.String())
		}
		route := decodeRoute(t, w.Body.Bytes())
		if route.Status != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.name, route.Status, tc.want)
		}
	}
}

func TestCreateRouteRoundTripsCoordinates(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	route := decodeRoute(t, w.Body.Bytes())
	want := []Coordinate{{6.45, 3.39}, {6.52, 3.37}, {6.61, 3.35}}
	if len(route.Coordinates) != len(want) {
		t.Fatalf("coordinates = %v, want %v", route.Coordinates, want)
	}
	for i := range want {
		if route.Coordinates[i] != want[i] {
			t.Fatalf("coordinates[%d] = %v, want %v", i, route.Coordinates[i], want[i])
		}
	}
	if route.State != "Lagos" {
		t.Fatalf("state = %q, want Lagos", route.State)
	}
}

func TestCreateRouteUnknownState(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Ghost Line", "Atlantis"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown state: status %d, want 400", w.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["state"]) == 0 {
		t.Fatalf("expected a state field error, got %s", w.Body.String())
	}
}

func TestCreateRouteReplacesExistingByName(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos", "critical", "warning"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeRoute(t, w.Body.Bytes())

	w = doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Kano", "warning"))
	if w.Code != http.StatusOK {
		t.Fatalf("replace: status %d, body %s", w.Code, w.Body.String())
	}
	replaced := decodeRoute(t, w.Body.Bytes())

	if replaced.ID != created.ID {
		t.Fatalf("replace created a new route: %d vs %d", replaced.ID, created.ID)
	}
	if replaced.State != "Kano" {
		t.Fatalf("state = %q, want Kano", replaced.State)
	}
	if len(replaced.Faults) != 1 || replaced.Faults[0].Status != models.FaultWarning {
		t.Fatalf("faults not replaced: %v", replaced.Faults)
	}
	if replaced.Status != models.FaultWarning {
		t.Fatalf("status = %q, want warning", replaced.Status)
	}

	var count int64
	if err := config.DB.Model(&models.PipelineFault{}).
		Where("pipeline_route_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count faults: %v", err)
	}
	if count != 1 {
		t.Fatalf("live fault rows = %d, want 1", count)
	}
}

func TestUpdateRouteAppliesOnlySuppliedFields(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos", "warning"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeRoute(t, w.Body.Bytes())
	path := fmt.Sprintf("/pipeline-routes-viewset/%d", created.ID)

	// rename only: state, coordinates, faults untouched
	w = doJSON(t, r, http.MethodPatch, path, token, gin.H{"name": "Mainline North"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename: status %d, body %s", w.Code, w.Body.String())
	}
	renamed := decodeRoute(t, w.Body.Bytes())
	if renamed.Name != "Mainline North" || renamed.State != "Lagos" {
		t.Fatalf("rename changed more than the name: %+v", renamed)
	}
	if len(renamed.Coordinates) != 3 || len(renamed.Faults) != 1 {
		t.Fatalf("rename touched coordinates or faults: %+v", renamed)
	}

	// replacing the fault set swaps it wholesale
	w = doJSON(t, r, http.MethodPut, path, token, gin.H{
		"faults": []gin.H{
			{"lat": 6.7, "lng": 3.2, "description": "rupture", "status": "critical"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("replace faults: status %d, body %s", w.Code, w.Body.String())
	}
	swapped := decodeRoute(t, w.Body.Bytes())
	if len(swapped.Faults) != 1 || swapped.Status != models.FaultCritical {
		t.Fatalf("fault set not replaced: %+v", swapped)
	}

	// clearing the fault set drops the status back to normal
	w = doJSON(t, r, http.MethodPut, path, token, gin.H{"faults": []gin.H{}})
	if w.Code != http.StatusOK {
		t.Fatalf("clear faults: status %d, body %s", w.Code, w.Body.String())
	}
	cleared := decodeRoute(t, w.Body.Bytes())
	if len(cleared.Faults) != 0 || cleared.Status != models.FaultNormal {
		t.Fatalf("faults not cleared: %+v", cleared)
	}

	// unknown state name is a field error and changes nothing
	w = doJSON(t, r, http.MethodPatch, path, token, gin.H{"state": "Atlantis"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown state: status %d, want 400", w.Code)
	}
}

func TestRoutesAreScopedByProfile(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	adminToken := mustLogin(t, r, "admin")
	seedStates(t)

	for _, p := range []gin.H{
		routePayload("Lagos Mainline", "Lagos", "warning"),
		routePayload("Lagos Spur", "Lagos"),
		routePayload("Kano Trunk", "Kano", "critical"),
	} {
		w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", adminToken, p)
		if w.Code != http.StatusCreated {
			t.Fatalf("create %v: status %d, body %s", p["name"], w.Code, w.Body.String())
		}
	}

	mustRegister(t, r, adminToken, "lagos-officer", gin.H{"role": "State", "zone": "South West", "state": "Lagos"})
	stateToken := mustLogin(t, r, "lagos-officer")

	// list: only Lagos routes
	w := doJSON(t, r, http.MethodGet, "/pipeline-routes-viewset", stateToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scoped list: status %d, body %s", w.Code, w.Body.String())
	}
	var listResp struct {
		Routes []RouteResponse `json:"routes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Routes) != 2 {
		t.Fatalf("scoped list returned %d routes, want 2: %+v", len(listResp.Routes), listResp.Routes)
	}
	for _, route := range listResp.Routes {
		if route.State != "Lagos" {
			t.Fatalf("scoped list leaked route %q in state %q", route.Name, route.State)
		}
	}

	// single-item, update and delete on an out-of-scope id all read as 404
	var kano models.PipelineRoute
	if err := config.DB.Where("name = ?", "Kano Trunk").First(&kano).Error; err != nil {
		t.Fatalf("load kano route: %v", err)
	}
	kanoPath := fmt.Sprintf("/pipeline-routes-viewset/%d", kano.ID)

	if w := doJSON(t, r, http.MethodGet, kanoPath, stateToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("out-of-scope get: status %d, want 404", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, kanoPath, stateToken, gin.H{"name": "Hijacked"}); w.Code != http.StatusNotFound {
		t.Fatalf("out-of-scope update: status %d, want 404", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, kanoPath, stateToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("out-of-scope delete: status %d, want 404", w.Code)
	}

	// the National admin still sees everything
	w = doJSON(t, r, http.MethodGet, "/pipeline-routes-viewset", adminToken, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode admin list: %v", err)
	}
	if len(listResp.Routes) != 3 {
		t.Fatalf("admin list returned %d routes, want 3", len(listResp.Routes))
	}
}

func TestDeleteRouteRemovesFaults(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos", "critical"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeRoute(t, w.Body.Bytes())
	path := fmt.Sprintf("/pipeline-routes-viewset/%d", created.ID)

	if w := doJSON(t, r, http.MethodDelete, path, token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status %d, body %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodGet, path, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", w.Code)
	}

	var count int64
	if err := config.DB.Model(&models.PipelineFault{}).
		Where("pipeline_route_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count faults: %v", err)
	}
	if count != 0 {
		t.Fatalf("live fault rows = %d, want 0", count)
	}
}

func TestRouteNameReusableAfterDelete(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos", "warning"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeRoute(t, w.Body.Bytes())
	path := fmt.Sprintf("/pipeline-routes-viewset/%d", created.ID)

	if w := doJSON(t, r, http.MethodDelete, path, token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status %d, body %s", w.Code, w.Body.String())
	}

	// the name is free again once the route is gone
	w = doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Kano"))
	if w.Code != http.StatusCreated {
		t.Fatalf("recreate: status %d, body %s", w.Code, w.Body.String())
	}
	recreated := decodeRoute(t, w.Body.Bytes())
	if recreated.State != "Kano" {
		t.Fatalf("state = %q, want Kano", recreated.State)
	}

	var count int64
	if err := config.DB.Unscoped().Model(&models.PipelineRoute{}).
		Where("name = ?", "Mainline").Count(&count).Error; err != nil {
		t.Fatalf("count routes: %v", err)
	}
	if count != 1 {
		t.Fatalf("route rows named Mainline = %d, want 1", count)
	}
}

func TestFaultReplacementIsTransactional(t *testing.T) {
	r := newTestRouter(t)
	mustRegister(t, r, "", "admin", gin.H{"role": "National"})
	token := mustLogin(t, r, "admin")
	seedStates(t)

	w := doJSON(t, r, http.MethodPost, "/pipeline-routes-viewset", token, routePayload("Mainline", "Lagos", "critical", "warning"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	created := decodeRoute(t, w.Body.Bytes())

	// an abandoned replacement leaves the stored fault set exactly as it was
	tx := config.DB.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	if err := tx.Unscoped().Where("pipeline_route_id = ?", created.ID).Delete(&models.PipelineFault{}).Error; err != nil {
		t.Fatalf("delete in tx: %v", err)
	}
	if err := createFaultRecords(tx, created.ID, []faultInput{
		{Lat: 6.7, Lng: 3.2, Description: "rupture", Status: models.FaultCritical},
	}); err != nil {
		t.Fatalf("insert in tx: %v", err)
	}
	tx.Rollback()

	var faults []models.PipelineFault
	if err := config.DB.Where("pipeline_route_id = ?", created.ID).Find(&faults).Error; err != nil {
		t.Fatalf("reload faults: %v", err)
	}
	if len(faults) != 2 {
		t.Fatalf("fault rows after rollback = %d, want the original 2", len(faults))
	}
	for _, f := range faults {
		if f.Description == "rupture" {
			t.Fatalf("rolled-back fault row persisted: %+v", f)
		}
	}

	// a committed replacement swaps the set wholesale
	path := fmt.Sprintf("/pipeline-routes-viewset/%d", created.ID)
	w = doJSON(t, r, http.MethodPut, path, token, gin.H{
		"faults": []gin.H{
			{"lat": 6.7, "lng": 3.2, "description": "rupture", "status": "critical"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("replace faults: status %d, body %s", w.Code, w.Body.String())
	}
	if err := config.DB.Unscoped().Where("pipeline_route_id = ?", created.ID).Find(&faults).Error; err != nil {
		t.Fatalf("reload faults: %v", err)
	}
	if len(faults) != 1 || faults[0].Description != "rupture" {
		t.Fatalf("fault rows after replacement = %+v, want only the new one", faults)
	}
}

func TestRouteResponseToleratesCorruptGeometry(t *testing.T) {
	route := models.PipelineRoute{
		Name:     "Mainline",
		Geometry: []byte{0xde, 0xad, 0xbe, 0xef},
	}
	resp := toRouteResponse(route)
	if len(resp.Coordinates) != 0 {
		t.Fatalf("corrupt geometry decoded to %v, want no coordinates", resp.Coordinates)
	}
}

func TestCoordinateWKBRoundTrip(t *testing.T) {
	coords := []Coordinate{{6.45, 3.39}, {6.52, 3.37}, {9.08, 7.49}}
	encoded, err := coordsToWKB(coords)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := wkbToCoords(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(coords) {
		t.Fatalf("decoded %d coords, want %d", len(decoded), len(coords))
	}
	for i := range coords {
		if decoded[i] != coords[i] {
			t.Fatalf("coords[%d] = %v, want %v", i, decoded[i], coords[i])
		}
	}

	// empty input stays empty
	if b, err := coordsToWKB(nil); err != nil || b != nil {
		t.Fatalf("empty encode = %v, %v", b, err)
	}
	if c, err := wkbToCoords(nil); err != nil || c != nil {
		t.Fatalf("empty decode = %v, %v", c, err)
	}
}
