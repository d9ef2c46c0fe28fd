package models

import (
	"time"

	"backoffice/internal/domain"
)

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInUse       VehicleStatus = "IN_USE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
	VehicleInactive    VehicleStatus = "INACTIVE"
)

type VehicleCategory struct {
	ID    domain.ID `json:"id"`
	Name  string    `json:"name"`
	Seats int       `json:"seats"`
}

type Vehicle struct {
	ID              domain.ID     `json:"id"`
	BranchID        domain.ID     `json:"branchId"`
	CategoryID      domain.ID     `json:"categoryId"`
	LicensePlate    string        `json:"licensePlate"`
	Model           string        `json:"model"`
	Capacity        int           `json:"capacity"`
	OdometerKm      float64       `json:"odometerKm"`
	LastMaintenance time.Time     `json:"lastMaintenance"`
	Status          VehicleStatus `json:"status"`
}
