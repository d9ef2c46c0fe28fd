package models

import (
	"time"

	"backoffice/internal/domain"
)

type AssignmentKind string

const (
	AssignDriver  AssignmentKind = "DRIVER"
	AssignVehicle AssignmentKind = "VEHICLE"
)

// Assignment is an immutable history row binding a trip to a driver or
// vehicle. Unassignment never deletes; it marks the row removed so the audit
// trail survives.
type Assignment struct {
	ID            domain.ID      `json:"id"`
	TripID        domain.ID      `json:"tripId"`
	Kind          AssignmentKind `json:"kind"`
	ResourceID    domain.ID      `json:"resourceId"`
	Role          string         `json:"role"` // e.g. "Main Driver", "Co-Driver"
	Note          string         `json:"note,omitempty"`
	Active        bool           `json:"active"`
	AssignedAt    time.Time      `json:"assignedAt"`
	AcceptedAt    *time.Time     `json:"acceptedAt,omitempty"`
	RemovedAt     *time.Time     `json:"removedAt,omitempty"`
	RemovedReason string         `json:"removedReason,omitempty"`
}

const (
	RoleMainDriver = "Main Driver"
	RoleCoDriver   = "Co-Driver"
	RoleVehicle    = "Vehicle"
)
