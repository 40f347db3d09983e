package routes

import (
	"pipeline_tracker/internal/controllers"
	"pipeline_tracker/internal/middleware"
	"github.com/gin-gonic/gin"
)

func PipelineRoutes(r *gin.Engine) {
	pipeline := r.Group("/pipeline-routes-viewset")
	pipeline.Use(middleware.RequireAuth())
	{
		pipeline.GET("", controllers.ListPipelineRoutes)
		pipeline.POST("", controllers.CreatePipelineRoute)
		pipeline.GET("/:id", controllers.GetPipelineRoute)
		pipeline.PUT("/:id", controllers.UpdatePipelineRoute)
		pipeline.PATCH("/:id", controllers.UpdatePipelineRoute)
		pipeline.DELETE("/:id", controllers.DeletePipelineRoute)
	}
}
