package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/middleware"
)

const testPassword = "Str0ngPass!xyz"

// newTestRouter points the global DB at a fresh in-memory database and wires
// the same handler chain the server registers.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	config.DB = db

	r := gin.New()
	r.POST("/register", middleware.OptionalAuth(), RegisterUser)
	r.POST("/login", LoginUser)
	r.POST("/logout", middleware.RequireAuth(), LogoutUser)

	pipeline := r.Group("/pipeline-routes-viewset")
	pipeline.Use(middleware.RequireAuth())
	{
		pipeline.GET("", ListPipelineRoutes)
		pipeline.POST("", CreatePipelineRoute)
		pipeline.GET("/:id", GetPipelineRoute)
		pipeline.PUT("/:id", UpdatePipelineRoute)
		pipeline.PATCH("/:id", UpdatePipelineRoute)
		pipeline.DELETE("/:id", DeletePipelineRoute)
	}
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerPayload(username string, profile gin.H) gin.H {
	return gin.H{
		"username": username,
		"password": testPassword,
		"email":    username + "@example.com",
		"profile":  profile,
	}
}

func mustRegister(t *testing.T, r http.Handler, token, username string, profile gin.H) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/register", token, registerPayload(username, profile))
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, w.Code, w.Body.String())
	}
}

func mustLogin(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/login", "", gin.H{"username": username, "password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return resp.Token
}
