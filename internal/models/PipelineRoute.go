package models

import (
	"gorm.io/gorm"
)

// PipelineRoute is a named pipeline segment through one state.
type PipelineRoute struct {
	gorm.Model

	Name    string `json:"name" gorm:"unique;not null" binding:"required"`
	StateID uint   `json:"state_id" gorm:"index"`
	State   State  `gorm:"foreignKey:StateID" json:"state,omitempty"`

	// Ordered path stored as a WKB LINESTRING.
	// The API accepts and returns a list of {lat, lng} points.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	Faults []PipelineFault `gorm:"foreignKey:PipelineRouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"faults,omitempty"`
}

// Status derives the route severity from its loaded faults:
// critical beats warning beats normal. Never persisted.
func (r PipelineRoute) Status() string {
	status := FaultNormal
	for _, f := range r.Faults {
		switch f.Status {
		case FaultCritical:
			return FaultCritical
		case FaultWarning:
			status = FaultWarning
		}
	}
	return status
}
