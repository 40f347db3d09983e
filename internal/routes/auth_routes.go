package routes

import (
	"pipeline_tracker/internal/controllers"
	"pipeline_tracker/internal/middleware"
	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine) {
	// register accepts both anonymous first-time signups and authenticated
	// callers creating subordinate accounts
	r.POST("/register", middleware.OptionalAuth(), controllers.RegisterUser)
	r.POST("/login", controllers.LoginUser)
	r.POST("/logout", middleware.RequireAuth(), controllers.LogoutUser)
}
