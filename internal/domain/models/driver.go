package models

import (
	"strings"
	"time"

	"backoffice/internal/domain"
)

type DriverStatus string

const (
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverOnTrip    DriverStatus = "ON_TRIP"
	DriverDayOff    DriverStatus = "DAY_OFF"
	DriverInactive  DriverStatus = "INACTIVE"
)

type Driver struct {
	ID            domain.ID    `json:"id"`
	BranchID      domain.ID    `json:"branchId"`
	FullName      string       `json:"fullName"`
	Phone         string       `json:"phone"`
	LicenseNumber string       `json:"licenseNumber"`
	LicenseClass  string       `json:"licenseClass"`
	LicenseExpiry time.Time    `json:"licenseExpiry"`
	PriorityLevel int          `json:"priorityLevel"` // lower number = dispatched first
	Rating        float64      `json:"rating"`
	Status        DriverStatus `json:"status"`
}

// LicenseValidOn reports whether the license covers the given date. A zero
// expiry means no expiry recorded and passes.
func (d Driver) LicenseValidOn(day time.Time) bool {
	if d.LicenseExpiry.IsZero() {
		return true
	}
	return !d.LicenseExpiry.Before(day)
}

// LicenseClassCoversSeats maps license classes to the passenger capacity they
// permit: B/B1/B2 up to 9 seats, C up to 9 (freight license, small buses
// tolerated), D up to 30, E and F unrestricted.
func LicenseClassCoversSeats(class string, seats int) bool {
	if seats <= 0 {
		return true
	}
	switch strings.ToUpper(strings.TrimSpace(class)) {
	case "E":
		return true
	case "D":
		return seats <= 30
	case "B", "B1", "B2", "C":
		return seats <= 9
	default:
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(class)), "F") {
			return true
		}
		return false
	}
}
