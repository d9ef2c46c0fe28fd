package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	intconfig "backoffice/internal/config"
	intdb "backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/notify"
	"backoffice/internal/repositories"
	"backoffice/internal/utils"
)

// AssignmentService commits driver and vehicle assignments to trips inside
// one transaction. Row locks on the trip, driver, and vehicle serialize
// concurrent dispatchers; the unique key on active assignment rows is the
// backstop when two transactions race anyway.
type AssignmentService struct {
	TripRepo       repositories.TripRepo
	BookingRepo    repositories.BookingRepo
	DriverRepo     repositories.DriverRepo
	VehicleRepo    repositories.VehicleRepo
	AssignmentRepo repositories.AssignmentRepo
	Availability   AvailabilityService
	Notifier       notify.Notifier
	EnvCfg         *intconfig.Env
	Now            func() time.Time
	RequestID      string
	DB             *sql.DB
}

func (s AssignmentService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s AssignmentService) trips() repositories.TripRepo {
	if s.TripRepo.DB != nil {
		return s.TripRepo
	}
	return repositories.TripRepo{DB: s.db()}
}

func (s AssignmentService) bookings() repositories.BookingRepo {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s AssignmentService) drivers() repositories.DriverRepo {
	if s.DriverRepo.DB != nil {
		return s.DriverRepo
	}
	return repositories.DriverRepo{DB: s.db()}
}

func (s AssignmentService) vehicles() repositories.VehicleRepo {
	if s.VehicleRepo.DB != nil {
		return s.VehicleRepo
	}
	return repositories.VehicleRepo{DB: s.db()}
}

func (s AssignmentService) assignments() repositories.AssignmentRepo {
	if s.AssignmentRepo.DB != nil {
		return s.AssignmentRepo
	}
	return repositories.AssignmentRepo{DB: s.db()}
}

func (s AssignmentService) availability() AvailabilityService {
	if s.Availability.DB != nil || s.Availability.AssignmentRepo.DB != nil {
		return s.Availability
	}
	return AvailabilityService{DB: s.db()}
}

func (s AssignmentService) env() intconfig.Env {
	if s.EnvCfg != nil {
		return *s.EnvCfg
	}
	return intconfig.LoadEnv()
}

func (s AssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AssignmentService) notifier() notify.Notifier {
	if s.Notifier != nil {
		return s.Notifier
	}
	return notify.LogNotifier{}
}

type AssignRequest struct {
	BookingID  domain.ID   `json:"booking_id"`
	TripIDs    []domain.ID `json:"trip_ids"`
	DriverID   domain.ID   `json:"driver_id"`
	CoDriverID domain.ID   `json:"co_driver_id"`
	VehicleID  domain.ID   `json:"vehicle_id"`
	Note       string      `json:"note"`
}

type TripAssignResult struct {
	TripID      domain.ID           `json:"trip_id"`
	Status      models.TripStatus   `json:"status"`
	Assignments []models.Assignment `json:"assignments"`
	Idempotent  bool                `json:"idempotent"`
}

type AssignResult struct {
	BookingID domain.ID          `json:"booking_id"`
	Trips     []TripAssignResult `json:"trips"`
}

// Assign puts the requested crew on every listed trip of the booking, all in
// one transaction. Re-submitting the exact crew already on a trip is a no-op
// success for that trip; a different crew replaces the current one. Long
// trips require a co-driver.
func (s AssignmentService) Assign(ctx context.Context, rc domain.RequestContext, req AssignRequest) (AssignResult, error) {
	if !rc.CanDispatch() {
		return AssignResult{}, domain.UnauthorizedError{Msg: "caller may not dispatch trips"}
	}
	if req.BookingID <= 0 {
		return AssignResult{}, domain.ValidationError{Field: "booking_id", Msg: "invalid booking id"}
	}
	if len(req.TripIDs) == 0 {
		return AssignResult{}, domain.ValidationError{Field: "trip_ids", Msg: "trip list is empty"}
	}
	if req.DriverID <= 0 {
		return AssignResult{}, domain.ValidationError{Field: "driver_id", Msg: "invalid driver id"}
	}
	if req.VehicleID <= 0 {
		return AssignResult{}, domain.ValidationError{Field: "vehicle_id", Msg: "invalid vehicle id"}
	}
	if req.CoDriverID == req.DriverID && req.CoDriverID > 0 {
		return AssignResult{}, domain.ValidationError{Field: "co_driver_id", Msg: "co-driver must differ from the main driver"}
	}

	// Lock trips in id order so concurrent batches cannot deadlock each other.
	tripIDs := make([]domain.ID, 0, len(req.TripIDs))
	seen := map[domain.ID]bool{}
	for _, id := range req.TripIDs {
		if id <= 0 {
			return AssignResult{}, domain.ValidationError{Field: "trip_ids", Msg: "invalid trip id"}
		}
		if !seen[id] {
			seen[id] = true
			tripIDs = append(tripIDs, id)
		}
	}
	sort.Slice(tripIDs, func(i, j int) bool { return tripIDs[i] < tripIDs[j] })

	env := s.env()
	var result AssignResult
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]
		result = AssignResult{BookingID: req.BookingID}

		booking, err := s.bookings().GetBooking(tx, req.BookingID)
		if err != nil {
			return err
		}
		if !booking.DispatchEligible() {
			return domain.NotDispatchableError{BookingID: booking.ID, Reason: fmt.Sprintf("booking is %s", booking.Status)}
		}
		if !booking.DepositSatisfied(env.MinDepositRatio) {
			return domain.NotDispatchableError{BookingID: booking.ID, Reason: "booking deposit below required ratio"}
		}

		for _, tripID := range tripIDs {
			one, err := s.assignTrip(tx, booking, tripID, req, env, &events)
			if err != nil {
				return err
			}
			result.Trips = append(result.Trips, one)
		}
		return nil
	})
	if err != nil {
		return AssignResult{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "dispatch", "assign",
		fmt.Sprintf("booking_id=%d trips=%d driver_id=%d vehicle_id=%d", req.BookingID, len(tripIDs), req.DriverID, req.VehicleID))
	return result, nil
}

// assignTrip holds the per-trip half of Assign. Earlier trips of the same
// batch are visible here (same transaction), so overlapping windows inside
// one batch still surface as conflicts.
func (s AssignmentService) assignTrip(tx *sql.Tx, booking models.Booking, tripID domain.ID, req AssignRequest, env intconfig.Env, events *[]notify.Event) (TripAssignResult, error) {
	trip, err := s.trips().GetTripForUpdate(tx, tripID)
	if err != nil {
		return TripAssignResult{}, err
	}
	if trip.BookingID != booking.ID {
		return TripAssignResult{}, domain.ValidationError{
			Field: "trip_ids",
			Msg:   fmt.Sprintf("trip %d does not belong to booking %d", trip.ID, booking.ID),
		}
	}
	if trip.Status.Terminal() {
		return TripAssignResult{}, domain.NotDispatchableError{TripID: trip.ID, Reason: fmt.Sprintf("trip is %s", trip.Status)}
	}

	if env.LongTripKm > 0 && trip.DistanceKm > float64(env.LongTripKm) && req.CoDriverID <= 0 {
		return TripAssignResult{}, domain.ValidationError{
			Field: "co_driver_id",
			Msg:   fmt.Sprintf("trips over %d km require a co-driver", env.LongTripKm),
		}
	}

	current, err := s.assignments().ActiveForTrip(tx, trip.ID)
	if err != nil {
		return TripAssignResult{}, err
	}

	wanted := wantedCrew(req)
	if trip.Status == models.TripAssigned && crewMatches(current, wanted) {
		return TripAssignResult{TripID: trip.ID, Status: trip.Status, Assignments: current, Idempotent: true}, nil
	}
	if trip.Status == models.TripOngoing && !hasOpenSlot(current, wanted) {
		return TripAssignResult{}, domain.NotDispatchableError{TripID: trip.ID, Reason: "ongoing trip already has a full crew"}
	}

	now := s.now()
	window := trip.Window()

	// Validate the incoming crew before touching any rows.
	if err := s.checkDriver(tx, trip, booking, req.DriverID, env); err != nil {
		return TripAssignResult{}, err
	}
	if req.CoDriverID > 0 {
		if err := s.checkDriver(tx, trip, booking, req.CoDriverID, env); err != nil {
			return TripAssignResult{}, err
		}
	}
	if err := s.checkVehicle(tx, trip, booking, req.VehicleID, env); err != nil {
		return TripAssignResult{}, err
	}

	// Replace: retire rows not in the new crew, insert the missing ones.
	keep := map[string]bool{}
	for _, a := range current {
		key := crewKey(a.Kind, a.ResourceID)
		if _, ok := wanted[key]; ok {
			keep[key] = true
			continue
		}
		if err := s.assignments().MarkRemoved(tx, a.ID, "REASSIGNED", now); err != nil {
			return TripAssignResult{}, err
		}
		if a.Kind == models.AssignDriver {
			if err := releaseDriverIfIdle(tx, s.assignments(), s.drivers(), a.ResourceID, trip.ID, now); err != nil {
				return TripAssignResult{}, err
			}
		} else {
			if err := releaseVehicleIfIdle(tx, s.assignments(), s.vehicles(), a.ResourceID, trip.ID, now); err != nil {
				return TripAssignResult{}, err
			}
		}
	}
	for key, tmpl := range wanted {
		if keep[key] {
			continue
		}
		tmpl.TripID = trip.ID
		tmpl.Note = strings.TrimSpace(req.Note)
		tmpl.AssignedAt = now
		if _, err := s.assignments().Insert(tx, tmpl); err != nil {
			return TripAssignResult{}, err
		}
	}

	// Stored resource status reflects "busy right now" only.
	if window.Contains(now) {
		if err := s.drivers().UpdateStatus(tx, req.DriverID, models.DriverOnTrip); err != nil {
			return TripAssignResult{}, err
		}
		if req.CoDriverID > 0 {
			if err := s.drivers().UpdateStatus(tx, req.CoDriverID, models.DriverOnTrip); err != nil {
				return TripAssignResult{}, err
			}
		}
		if err := s.vehicles().UpdateStatus(tx, req.VehicleID, models.VehicleInUse); err != nil {
			return TripAssignResult{}, err
		}
	}

	if trip.Status == models.TripScheduled {
		if err := trip.Transition(models.TripAssigned); err != nil {
			return TripAssignResult{}, err
		}
		if err := s.trips().UpdateTripStatus(tx, trip.ID, trip.Version, models.TripAssigned); err != nil {
			return TripAssignResult{}, err
		}
	}

	final, err := s.assignments().ActiveForTrip(tx, trip.ID)
	if err != nil {
		return TripAssignResult{}, err
	}

	*events = append(*events, notify.Event{
		Kind:     notify.EventTripAssigned,
		TripID:   int64(trip.ID),
		DriverID: int64(req.DriverID),
		Message:  fmt.Sprintf("assigned driver %d and vehicle %d to trip %d", req.DriverID, req.VehicleID, trip.ID),
	})
	return TripAssignResult{TripID: trip.ID, Status: trip.Status, Assignments: final}, nil
}

// Unassign retires every active assignment and returns the trip to the
// pending queue. Unassigning a trip with no crew is a no-op success.
func (s AssignmentService) Unassign(ctx context.Context, rc domain.RequestContext, tripID domain.ID, reason string) (TripAssignResult, error) {
	if !rc.CanDispatch() {
		return TripAssignResult{}, domain.UnauthorizedError{Msg: "caller may not dispatch trips"}
	}
	if tripID <= 0 {
		return TripAssignResult{}, domain.ValidationError{Field: "trip_id", Msg: "invalid trip id"}
	}
	if strings.TrimSpace(reason) == "" {
		reason = "UNASSIGNED"
	}

	var result TripAssignResult
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]

		trip, err := s.trips().GetTripForUpdate(tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status == models.TripScheduled {
			result = TripAssignResult{TripID: trip.ID, Status: trip.Status, Assignments: []models.Assignment{}, Idempotent: true}
			return nil
		}
		if trip.Status != models.TripAssigned {
			return domain.InvalidTransitionError{
				Entity: "trip",
				From:   string(trip.Status),
				To:     string(models.TripScheduled),
			}
		}

		now := s.now()
		current, err := s.assignments().ActiveForTrip(tx, trip.ID)
		if err != nil {
			return err
		}
		for _, a := range current {
			if err := s.assignments().MarkRemoved(tx, a.ID, reason, now); err != nil {
				return err
			}
			if a.Kind == models.AssignDriver {
				if err := releaseDriverIfIdle(tx, s.assignments(), s.drivers(), a.ResourceID, trip.ID, now); err != nil {
					return err
				}
			} else {
				if err := releaseVehicleIfIdle(tx, s.assignments(), s.vehicles(), a.ResourceID, trip.ID, now); err != nil {
					return err
				}
			}
		}

		if err := trip.Transition(models.TripScheduled); err != nil {
			return err
		}
		if err := s.trips().UpdateTripStatus(tx, trip.ID, trip.Version, models.TripScheduled); err != nil {
			return err
		}

		result = TripAssignResult{TripID: trip.ID, Status: models.TripScheduled, Assignments: []models.Assignment{}}
		events = append(events, notify.Event{
			Kind:    notify.EventTripUnassigned,
			TripID:  int64(trip.ID),
			Message: fmt.Sprintf("trip %d returned to pending: %s", trip.ID, reason),
		})
		return nil
	})
	if err != nil {
		return TripAssignResult{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "dispatch", "unassign", fmt.Sprintf("trip_id=%d reason=%s", tripID, reason))
	return result, nil
}

func (s AssignmentService) checkDriver(tx *sql.Tx, trip models.Trip, booking models.Booking, driverID domain.ID, env intconfig.Env) error {
	d, err := s.drivers().GetDriverForUpdate(tx, driverID)
	if err != nil {
		return err
	}
	if d.Status == models.DriverInactive || d.Status == models.DriverDayOff {
		return domain.ConflictError{
			Resource:   "driver",
			ResourceID: d.ID,
			Msg:        fmt.Sprintf("driver is %s", d.Status),
		}
	}
	if !env.AllowCrossBranch && booking.BranchID > 0 && d.BranchID != booking.BranchID {
		return domain.ValidationError{Field: "driver_id", Msg: "driver belongs to a different branch"}
	}
	if !d.LicenseValidOn(trip.StartTime) {
		return domain.EligibilityError{
			Code: domain.EligibilityLicenseIncompatible,
			Msg:  fmt.Sprintf("driver %d license expires before trip start", d.ID),
		}
	}
	if trip.RequiredCategoryID > 0 {
		cat, err := s.vehicles().GetCategory(trip.RequiredCategoryID)
		if err != nil {
			return err
		}
		if !models.LicenseClassCoversSeats(d.LicenseClass, cat.Seats) {
			return domain.EligibilityError{
				Code: domain.EligibilityLicenseIncompatible,
				Msg:  fmt.Sprintf("license class %s does not cover %d seats", d.LicenseClass, cat.Seats),
			}
		}
	}
	blocking, free, err := s.availability().CheckDriver(tx, d.ID, trip.Window(), trip.ID)
	if err != nil {
		return err
	}
	if !free {
		return domain.ConflictError{Resource: "driver", ResourceID: d.ID, BlockingTripID: blocking}
	}
	return nil
}

func (s AssignmentService) checkVehicle(tx *sql.Tx, trip models.Trip, booking models.Booking, vehicleID domain.ID, env intconfig.Env) error {
	v, err := s.vehicles().GetVehicleForUpdate(tx, vehicleID)
	if err != nil {
		return err
	}
	if v.Status == models.VehicleInactive || v.Status == models.VehicleMaintenance {
		return domain.ConflictError{
			Resource:   "vehicle",
			ResourceID: v.ID,
			Msg:        fmt.Sprintf("vehicle is %s", v.Status),
		}
	}
	if !env.AllowCrossBranch && booking.BranchID > 0 && v.BranchID != booking.BranchID {
		return domain.ValidationError{Field: "vehicle_id", Msg: "vehicle belongs to a different branch"}
	}
	if trip.RequiredCategoryID > 0 && v.CategoryID != trip.RequiredCategoryID {
		return domain.EligibilityError{
			Code: domain.EligibilityCategoryMismatch,
			Msg:  fmt.Sprintf("vehicle %d category does not match trip requirement", v.ID),
		}
	}
	blocking, free, err := s.availability().CheckVehicle(tx, v.ID, trip.Window(), trip.ID)
	if err != nil {
		return err
	}
	if !free {
		return domain.ConflictError{Resource: "vehicle", ResourceID: v.ID, BlockingTripID: blocking}
	}
	return nil
}

// releaseDriverIfIdle downgrades a driver's stored status to AVAILABLE only
// when no other assigned or ongoing trip holds the driver at this instant.
// A driver mid-trip elsewhere keeps their ON_TRIP status.
func releaseDriverIfIdle(tx *sql.Tx, assignments repositories.AssignmentRepo, drivers repositories.DriverRepo, driverID, excludeTripID domain.ID, now time.Time) error {
	_, busy, err := assignments.FindBlockingTrip(tx, models.AssignDriver, driverID, models.Window{Start: now, End: now}, excludeTripID)
	if err != nil {
		return err
	}
	if busy {
		return nil
	}
	return drivers.UpdateStatus(tx, driverID, models.DriverAvailable)
}

func releaseVehicleIfIdle(tx *sql.Tx, assignments repositories.AssignmentRepo, vehicles repositories.VehicleRepo, vehicleID, excludeTripID domain.ID, now time.Time) error {
	_, busy, err := assignments.FindBlockingTrip(tx, models.AssignVehicle, vehicleID, models.Window{Start: now, End: now}, excludeTripID)
	if err != nil {
		return err
	}
	if busy {
		return nil
	}
	return vehicles.UpdateStatus(tx, vehicleID, models.VehicleAvailable)
}

func crewKey(kind models.AssignmentKind, id domain.ID) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func wantedCrew(req AssignRequest) map[string]models.Assignment {
	wanted := map[string]models.Assignment{
		crewKey(models.AssignDriver, req.DriverID): {
			Kind: models.AssignDriver, ResourceID: req.DriverID, Role: models.RoleMainDriver,
		},
		crewKey(models.AssignVehicle, req.VehicleID): {
			Kind: models.AssignVehicle, ResourceID: req.VehicleID, Role: models.RoleVehicle,
		},
	}
	if req.CoDriverID > 0 {
		wanted[crewKey(models.AssignDriver, req.CoDriverID)] = models.Assignment{
			Kind: models.AssignDriver, ResourceID: req.CoDriverID, Role: models.RoleCoDriver,
		}
	}
	return wanted
}

func crewMatches(current []models.Assignment, wanted map[string]models.Assignment) bool {
	if len(current) != len(wanted) {
		return false
	}
	for _, a := range current {
		w, ok := wanted[crewKey(a.Kind, a.ResourceID)]
		if !ok || w.Role != a.Role {
			return false
		}
	}
	return true
}

// hasOpenSlot reports whether an ongoing trip is missing any of the crew
// positions the request wants to fill, which is the mid-trip replacement
// case after an incident. Positions are tracked by role, so a surviving
// co-driver does not block a main-driver substitution.
func hasOpenSlot(current []models.Assignment, wanted map[string]models.Assignment) bool {
	have := map[string]bool{}
	haveRole := map[string]bool{}
	for _, a := range current {
		have[crewKey(a.Kind, a.ResourceID)] = true
		haveRole[a.Role] = true
	}
	for key, w := range wanted {
		if !have[key] && !haveRole[w.Role] {
			return true
		}
	}
	return false
}
