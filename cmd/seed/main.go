package main

import (
	"log"

	"pipeline_tracker/internal/config"
	"pipeline_tracker/internal/logger"
	"pipeline_tracker/internal/seed"
)

func main() {
	logger.Setup()
	config.InitDB()

	if err := seed.Run(config.GetDB()); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Successfully populated the database with zones and states")
}
