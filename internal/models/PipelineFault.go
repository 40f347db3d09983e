package models

import (
	"time"

	"gorm.io/gorm"
)

// Fault severities.
const (
	FaultNormal   = "normal"
	FaultWarning  = "warning"
	FaultCritical = "critical"
)

// PipelineFault is a reported defect at a point on a route.
// ReportedAt is set once at creation and never updated.
type PipelineFault struct {
	gorm.Model

	PipelineRouteID uint      `json:"pipeline_route_id" gorm:"index"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Description     string    `json:"description"`
	ReportedAt      time.Time `json:"reported_at"`
	Status          string    `json:"status" gorm:"default:'normal'"` // normal, warning, critical
}
