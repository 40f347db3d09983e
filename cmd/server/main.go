package main

import (
	"log"
	"net/http"

	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/logger"
	"pipeline_tracker/internal/middleware"
	"pipeline_tracker/internal/routes"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// Setup Gin router (recovery + request logging registered inside)
	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}
