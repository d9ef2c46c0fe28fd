package services

import (
	"database/sql"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
)

// AvailabilityService answers whether a driver or vehicle is free over a
// trip window. Availability is always derived from active assignment rows
// on ASSIGNED/ONGOING trips, never from the stored resource status.
type AvailabilityService struct {
	AssignmentRepo repositories.AssignmentRepo
	DB             *sql.DB
}

func (s AvailabilityService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s AvailabilityService) assignments() repositories.AssignmentRepo {
	if s.AssignmentRepo.DB != nil {
		return s.AssignmentRepo
	}
	return repositories.AssignmentRepo{DB: s.db()}
}

// CheckDriver reports whether the driver is free over the window. When not,
// the returned id names the trip holding the driver. excludeTripID skips
// the trip being dispatched so re-assignment does not conflict with itself.
func (s AvailabilityService) CheckDriver(q repositories.DBTX, driverID domain.ID, w models.Window, excludeTripID domain.ID) (domain.ID, bool, error) {
	return s.check(q, models.AssignDriver, driverID, w, excludeTripID)
}

// CheckVehicle is CheckDriver for vehicles.
func (s AvailabilityService) CheckVehicle(q repositories.DBTX, vehicleID domain.ID, w models.Window, excludeTripID domain.ID) (domain.ID, bool, error) {
	return s.check(q, models.AssignVehicle, vehicleID, w, excludeTripID)
}

func (s AvailabilityService) check(q repositories.DBTX, kind models.AssignmentKind, resourceID domain.ID, w models.Window, excludeTripID domain.ID) (domain.ID, bool, error) {
	if err := w.Validate(); err != nil {
		return 0, false, err
	}
	if q == nil {
		q = s.db()
	}
	blocking, found, err := s.assignments().FindBlockingTrip(q, kind, resourceID, w, excludeTripID)
	if err != nil {
		return 0, false, err
	}
	if found {
		return blocking, false, nil
	}
	return 0, true, nil
}
