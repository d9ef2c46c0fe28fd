package models

import (
	"time"

	"backoffice/internal/domain"
)

const (
	SeverityNormal   = "NORMAL"
	SeverityCritical = "CRITICAL"
	SeverityBlocker  = "BLOCKER"
)

// Resolution actions; the replacement actions trigger a fresh dispatch cycle
// for the affected trip.
const (
	ResolutionNone           = "NONE"
	ResolutionReplaceDriver  = "REPLACE_DRIVER"
	ResolutionReplaceVehicle = "REPLACE_VEHICLE"
)

type Incident struct {
	ID               domain.ID  `json:"id"`
	TripID           domain.ID  `json:"tripId"`
	DriverID         domain.ID  `json:"driverId"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity"`
	Resolved         bool       `json:"resolved"`
	ResolutionAction string     `json:"resolutionAction,omitempty"`
	ResolutionNote   string     `json:"resolutionNote,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityNormal, SeverityCritical, SeverityBlocker:
		return true
	}
	return false
}

func ValidResolutionAction(a string) bool {
	switch a {
	case ResolutionNone, ResolutionReplaceDriver, ResolutionReplaceVehicle:
		return true
	}
	return false
}
