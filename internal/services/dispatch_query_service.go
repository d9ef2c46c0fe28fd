package services

import (
	"database/sql"
	"time"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
	"backoffice/internal/utils"
)

// DispatchQueryService serves the read side of dispatch: the pending
// queue, per-trip suggestions, trip detail, schedules, and the dashboard.
// It never mutates state.
type DispatchQueryService struct {
	TripRepo       repositories.TripRepo
	BookingRepo    repositories.BookingRepo
	AssignmentRepo repositories.AssignmentRepo
	IncidentRepo   repositories.IncidentRepo
	Ranker         RankingService
	EnvCfg         *intconfig.Env
	Now            func() time.Time
	DB             *sql.DB
}

func (s DispatchQueryService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s DispatchQueryService) trips() repositories.TripRepo {
	if s.TripRepo.DB != nil {
		return s.TripRepo
	}
	return repositories.TripRepo{DB: s.db()}
}

func (s DispatchQueryService) bookings() repositories.BookingRepo {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepo{DB: s.db()}
}

func (s DispatchQueryService) assignments() repositories.AssignmentRepo {
	if s.AssignmentRepo.DB != nil {
		return s.AssignmentRepo
	}
	return repositories.AssignmentRepo{DB: s.db()}
}

func (s DispatchQueryService) incidents() repositories.IncidentRepo {
	if s.IncidentRepo.DB != nil {
		return s.IncidentRepo
	}
	return repositories.IncidentRepo{DB: s.db()}
}

func (s DispatchQueryService) ranker() RankingService {
	if s.Ranker.DB != nil {
		return s.Ranker
	}
	return RankingService{DB: s.db(), EnvCfg: s.EnvCfg, Now: s.Now}
}

func (s DispatchQueryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PendingTrip pairs a dispatchable trip with booking context and the
// deposit verdict, so the queue shows why a trip cannot go out yet.
type PendingTrip struct {
	Trip             models.Trip    `json:"trip"`
	Booking          models.Booking `json:"booking"`
	DepositSatisfied bool           `json:"deposit_satisfied"`
}

// PendingTrips lists SCHEDULED trips departing inside the window, soonest
// first. A zero window defaults to the next seven days.
func (s DispatchQueryService) PendingTrips(branchID domain.ID, from, to time.Time) ([]PendingTrip, error) {
	env := s.env()
	if from.IsZero() {
		from, _ = utils.DayBounds(s.now())
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	if !from.Before(to) {
		return nil, domain.ValidationError{Field: "window", Msg: "from must be before to"}
	}

	trips, err := s.trips().ListPendingTrips(branchID, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]PendingTrip, 0, len(trips))
	for _, t := range trips {
		b, err := s.bookings().GetBooking(nil, t.BookingID)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, PendingTrip{
			Trip:             t,
			Booking:          b,
			DepositSatisfied: b.DepositSatisfied(env.MinDepositRatio),
		})
	}
	return out, nil
}

func (s DispatchQueryService) env() intconfig.Env {
	if s.EnvCfg != nil {
		return *s.EnvCfg
	}
	return intconfig.LoadEnv()
}

// Suggestions holds ranked candidates for one trip.
type Suggestions struct {
	TripID   domain.ID          `json:"trip_id"`
	Drivers  []DriverCandidate  `json:"drivers"`
	Vehicles []VehicleCandidate `json:"vehicles"`
}

// SuggestionsForTrip ranks drivers and vehicles for a dispatchable trip.
func (s DispatchQueryService) SuggestionsForTrip(tripID domain.ID) (Suggestions, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return Suggestions{}, err
	}
	if trip.Status.Terminal() {
		return Suggestions{}, domain.NotDispatchableError{TripID: trip.ID, Reason: "trip already finished"}
	}
	booking, err := s.bookings().GetBooking(nil, trip.BookingID)
	if err != nil {
		return Suggestions{}, err
	}

	ranker := s.ranker()
	drivers, err := ranker.RankDrivers(trip, booking)
	if err != nil {
		return Suggestions{}, err
	}
	vehicles, err := ranker.RankVehicles(trip, booking)
	if err != nil {
		return Suggestions{}, err
	}
	return Suggestions{TripID: trip.ID, Drivers: drivers, Vehicles: vehicles}, nil
}

// TripDetail is the full dispatch view of one trip.
type TripDetail struct {
	Trip        models.Trip         `json:"trip"`
	Booking     models.Booking      `json:"booking"`
	Assignments []models.Assignment `json:"assignments"`
	Incidents   []models.Incident   `json:"incidents"`
}

func (s DispatchQueryService) GetTripDetail(tripID domain.ID) (TripDetail, error) {
	trip, err := s.trips().GetTrip(tripID)
	if err != nil {
		return TripDetail{}, err
	}
	booking, err := s.bookings().GetBooking(nil, trip.BookingID)
	if err != nil && !domain.IsNotFound(err) {
		return TripDetail{}, err
	}
	assignments, err := s.assignments().ActiveForTrip(s.db(), tripID)
	if err != nil {
		return TripDetail{}, err
	}
	incidents, err := s.incidents().ListByTrip(tripID)
	if err != nil {
		return TripDetail{}, err
	}
	return TripDetail{Trip: trip, Booking: booking, Assignments: assignments, Incidents: incidents}, nil
}

// DriverSchedule lists a driver's busy intervals over the window. A zero
// window defaults to today plus seven days.
func (s DispatchQueryService) DriverSchedule(driverID domain.ID, from, to time.Time) ([]repositories.ScheduleBlock, error) {
	if driverID <= 0 {
		return nil, domain.ValidationError{Field: "driver_id", Msg: "invalid driver id"}
	}
	if from.IsZero() {
		from, _ = utils.DayBounds(s.now())
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	return s.assignments().ScheduleForResource(models.AssignDriver, driverID, from, to)
}

// ResourceSchedule groups one driver's or vehicle's busy intervals.
type ResourceSchedule struct {
	ResourceID domain.ID                    `json:"resource_id"`
	Blocks     []repositories.ScheduleBlock `json:"blocks"`
}

// Dashboard aggregates the day's dispatch picture for one branch, or for
// the whole fleet when no branch is given.
type Dashboard struct {
	Date             string                    `json:"date"`
	BranchID         domain.ID                 `json:"branch_id,omitempty"`
	TripCounts       map[models.TripStatus]int `json:"trip_counts"`
	PendingCount     int                       `json:"pending_count"`
	Pending          []PendingTrip             `json:"pending"`
	DriverSchedules  []ResourceSchedule        `json:"driver_schedules"`
	VehicleSchedules []ResourceSchedule        `json:"vehicle_schedules"`
	OpenIncidents    int                       `json:"open_incidents"`
}

// DashboardForDay builds the dispatch board for the local day containing
// at: per-status trip counts, the pending queue, and the day's driver and
// vehicle schedules.
func (s DispatchQueryService) DashboardForDay(branchID domain.ID, at time.Time) (Dashboard, error) {
	if at.IsZero() {
		at = s.now()
	}
	dayStart, dayEnd := utils.DayBounds(at)

	counts, err := s.trips().CountByStatusOnDay(branchID, dayStart, dayEnd)
	if err != nil {
		return Dashboard{}, err
	}

	pending, err := s.PendingTrips(branchID, dayStart, dayEnd)
	if err != nil {
		return Dashboard{}, err
	}

	blocks, err := s.assignments().ScheduleForWindow(branchID, dayStart, dayEnd)
	if err != nil {
		return Dashboard{}, err
	}
	drivers, vehicles := groupSchedules(blocks)

	open, err := s.incidents().CountOpen()
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Date:             utils.FormatDate(dayStart),
		BranchID:         branchID,
		TripCounts:       counts,
		PendingCount:     counts[models.TripScheduled],
		Pending:          pending,
		DriverSchedules:  drivers,
		VehicleSchedules: vehicles,
		OpenIncidents:    open,
	}, nil
}

// groupSchedules splits the flat block list into per-driver and per-vehicle
// schedules. Input order is kind, resource, start, so append preserves it.
func groupSchedules(blocks []repositories.ResourceScheduleBlock) (drivers, vehicles []ResourceSchedule) {
	drivers = []ResourceSchedule{}
	vehicles = []ResourceSchedule{}
	for _, b := range blocks {
		target := &drivers
		if b.Kind == models.AssignVehicle {
			target = &vehicles
		}
		n := len(*target)
		if n == 0 || (*target)[n-1].ResourceID != b.ResourceID {
			*target = append(*target, ResourceSchedule{ResourceID: b.ResourceID, Blocks: []repositories.ScheduleBlock{}})
			n++
		}
		(*target)[n-1].Blocks = append((*target)[n-1].Blocks, b.ScheduleBlock)
	}
	return drivers, vehicles
}
