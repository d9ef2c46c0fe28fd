package services

import (
	"context"
	"database/sql"
	"fmt"
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

// LifecycleService moves trips through their lifecycle on behalf of the
// assigned driver, and handles incident reporting and resolution.
type LifecycleService struct {
	TripRepo       repositories.TripRepo
	BookingRepo    repositories.BookingRepo
	AssignmentRepo repositories.AssignmentRepo
	DriverRepo     repositories.DriverRepo
	VehicleRepo    repositories.VehicleRepo
	IncidentRepo   repositories.IncidentRepo
	Notifier       notify.Notifier
	EnvCfg         *intconfig.Env
	Now            func() time.Time
	RequestID      string
	DB             *sql.DB
}

func (s LifecycleService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s LifecycleService) trips() repositories.TripRepo {
	if s.TripRepo.DB != nil {
		return s.TripRepo
	}
	return repositories.TripRepo{DB: s.db()}
}

func (s LifecycleService) assignments() repositories.AssignmentRepo {
	if s.AssignmentRepo.DB != nil {
		return s.AssignmentRepo
	}
	return repositories.AssignmentRepo{DB: s.db()}
}

func (s LifecycleService) bookings() repositories.BookingRepo {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepo{DB: s.db()}
}

// engine builds the assignment service used for incident-driven
// re-dispatch, sharing this service's repositories and clock.
func (s LifecycleService) engine() AssignmentService {
	return AssignmentService{
		TripRepo:       s.TripRepo,
		BookingRepo:    s.BookingRepo,
		DriverRepo:     s.DriverRepo,
		VehicleRepo:    s.VehicleRepo,
		AssignmentRepo: s.AssignmentRepo,
		EnvCfg:         s.EnvCfg,
		Now:            s.Now,
		RequestID:      s.RequestID,
		DB:             s.DB,
	}
}

func (s LifecycleService) drivers() repositories.DriverRepo {
	if s.DriverRepo.DB != nil {
		return s.DriverRepo
	}
	return repositories.DriverRepo{DB: s.db()}
}

func (s LifecycleService) vehicles() repositories.VehicleRepo {
	if s.VehicleRepo.DB != nil {
		return s.VehicleRepo
	}
	return repositories.VehicleRepo{DB: s.db()}
}

func (s LifecycleService) incidents() repositories.IncidentRepo {
	if s.IncidentRepo.DB != nil {
		return s.IncidentRepo
	}
	return repositories.IncidentRepo{DB: s.db()}
}

func (s LifecycleService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s LifecycleService) notifier() notify.Notifier {
	if s.Notifier != nil {
		return s.Notifier
	}
	return notify.LogNotifier{}
}

// requireAssignedDriver returns the caller's active driver assignment on
// the trip, or an authorization error when the caller is not on the crew.
func (s LifecycleService) requireAssignedDriver(tx *sql.Tx, tripID, driverID domain.ID) (models.Assignment, error) {
	if driverID <= 0 {
		return models.Assignment{}, domain.UnauthorizedError{Msg: "caller has no driver profile"}
	}
	active, err := s.assignments().ActiveForTrip(tx, tripID)
	if err != nil {
		return models.Assignment{}, err
	}
	for _, a := range active {
		if a.Kind == models.AssignDriver && a.ResourceID == driverID {
			return a, nil
		}
	}
	return models.Assignment{}, domain.UnauthorizedError{Msg: "driver is not assigned to this trip"}
}

// Accept records the driver's acknowledgement of an assigned trip. The trip
// stays ASSIGNED; only the acceptance timestamp changes. Accepting twice is
// harmless.
func (s LifecycleService) Accept(ctx context.Context, rc domain.RequestContext, tripID domain.ID) (models.Trip, error) {
	var out models.Trip
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]

		trip, err := s.trips().GetTripForUpdate(tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != models.TripAssigned {
			return domain.InvalidTransitionError{Entity: "trip", From: string(trip.Status), Msg: "only assigned trips can be accepted"}
		}
		if _, err := s.requireAssignedDriver(tx, tripID, rc.DriverID); err != nil {
			return err
		}
		if err := s.assignments().StampAccepted(tx, tripID, rc.DriverID, s.now()); err != nil {
			return err
		}
		out = trip
		events = append(events, notify.Event{
			Kind:     notify.EventTripAccepted,
			TripID:   int64(tripID),
			DriverID: int64(rc.DriverID),
			Message:  fmt.Sprintf("driver %d accepted trip %d", rc.DriverID, tripID),
		})
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "lifecycle", "accept", fmt.Sprintf("trip_id=%d driver_id=%d", tripID, rc.DriverID))
	return out, nil
}

// Start moves an assigned trip to ONGOING. Only the assigned driver may
// start a trip.
func (s LifecycleService) Start(ctx context.Context, rc domain.RequestContext, tripID domain.ID) (models.Trip, error) {
	return s.driverTransition(ctx, rc, tripID, models.TripOngoing, notify.EventTripStarted, "start")
}

// Complete moves an ongoing trip to COMPLETED and releases its crew.
func (s LifecycleService) Complete(ctx context.Context, rc domain.RequestContext, tripID domain.ID) (models.Trip, error) {
	return s.driverTransition(ctx, rc, tripID, models.TripCompleted, notify.EventTripCompleted, "complete")
}

func (s LifecycleService) driverTransition(ctx context.Context, rc domain.RequestContext, tripID domain.ID, to models.TripStatus, eventKind, action string) (models.Trip, error) {
	var out models.Trip
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]

		trip, err := s.trips().GetTripForUpdate(tx, tripID)
		if err != nil {
			return err
		}
		if _, err := s.requireAssignedDriver(tx, tripID, rc.DriverID); err != nil {
			return err
		}
		if err := trip.Transition(to); err != nil {
			return err
		}
		if err := s.trips().UpdateTripStatus(tx, trip.ID, trip.Version, to); err != nil {
			return err
		}

		active, err := s.assignments().ActiveForTrip(tx, tripID)
		if err != nil {
			return err
		}
		switch to {
		case models.TripOngoing:
			for _, a := range active {
				if a.Kind == models.AssignDriver {
					if err := s.drivers().UpdateStatus(tx, a.ResourceID, models.DriverOnTrip); err != nil {
						return err
					}
				} else {
					if err := s.vehicles().UpdateStatus(tx, a.ResourceID, models.VehicleInUse); err != nil {
						return err
					}
				}
			}
		case models.TripCompleted:
			now := s.now()
			for _, a := range active {
				if a.Kind == models.AssignDriver {
					if err := releaseDriverIfIdle(tx, s.assignments(), s.drivers(), a.ResourceID, tripID, now); err != nil {
						return err
					}
				} else {
					if err := releaseVehicleIfIdle(tx, s.assignments(), s.vehicles(), a.ResourceID, tripID, now); err != nil {
						return err
					}
				}
			}
		}

		out = trip
		events = append(events, notify.Event{
			Kind:     eventKind,
			TripID:   int64(tripID),
			DriverID: int64(rc.DriverID),
			Message:  fmt.Sprintf("trip %d is now %s", tripID, to),
		})
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "lifecycle", action, fmt.Sprintf("trip_id=%d driver_id=%d", tripID, rc.DriverID))
	return out, nil
}

// Cancel terminates a pending or assigned trip and releases its crew.
// Dispatcher action; ongoing trips cannot be cancelled.
func (s LifecycleService) Cancel(ctx context.Context, rc domain.RequestContext, tripID domain.ID, reason string) (models.Trip, error) {
	if !rc.CanDispatch() {
		return models.Trip{}, domain.UnauthorizedError{Msg: "caller may not cancel trips"}
	}
	var out models.Trip

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		trip, err := s.trips().GetTripForUpdate(tx, tripID)
		if err != nil {
			return err
		}
		if err := trip.Transition(models.TripCancelled); err != nil {
			return err
		}
		if err := s.trips().UpdateTripStatus(tx, trip.ID, trip.Version, models.TripCancelled); err != nil {
			return err
		}

		now := s.now()
		active, err := s.assignments().ActiveForTrip(tx, tripID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(reason) == "" {
			reason = "CANCELLED"
		}
		for _, a := range active {
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
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}

	utils.LogEvent(s.RequestID, "lifecycle", "cancel", fmt.Sprintf("trip_id=%d", tripID))
	return out, nil
}

type IncidentReport struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// ReportIncident files an incident on a trip the caller is driving.
func (s LifecycleService) ReportIncident(ctx context.Context, rc domain.RequestContext, tripID domain.ID, rep IncidentReport) (models.Incident, error) {
	desc := utils.NormalizeSpace(rep.Description)
	if desc == "" {
		return models.Incident{}, domain.ValidationError{Field: "description", Msg: "description is required"}
	}
	severity := strings.ToUpper(strings.TrimSpace(rep.Severity))
	if severity == "" {
		severity = models.SeverityNormal
	}
	if !models.ValidSeverity(severity) {
		return models.Incident{}, domain.ValidationError{Field: "severity", Msg: "unknown severity"}
	}

	var out models.Incident
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]

		trip, err := s.trips().GetTripForUpdate(tx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != models.TripAssigned && trip.Status != models.TripOngoing {
			return domain.InvalidTransitionError{Entity: "trip", From: string(trip.Status), Msg: "incidents apply to assigned or ongoing trips"}
		}
		if _, err := s.requireAssignedDriver(tx, tripID, rc.DriverID); err != nil {
			return err
		}

		in := models.Incident{
			TripID:      tripID,
			DriverID:    rc.DriverID,
			Description: desc,
			Severity:    severity,
			CreatedAt:   s.now(),
		}
		id, err := s.incidents().Insert(tx, in)
		if err != nil {
			return err
		}
		in.ID = id
		out = in
		events = append(events, notify.Event{
			Kind:     notify.EventIncidentOpened,
			TripID:   int64(tripID),
			DriverID: int64(rc.DriverID),
			Message:  fmt.Sprintf("%s incident on trip %d", severity, tripID),
		})
		return nil
	})
	if err != nil {
		return models.Incident{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "incident", "report", fmt.Sprintf("trip_id=%d severity=%s", tripID, severity))
	return out, nil
}

type IncidentResolution struct {
	Action    string    `json:"action"`
	Note      string    `json:"note"`
	DriverID  domain.ID `json:"driver_id"`
	VehicleID domain.ID `json:"vehicle_id"`
}

// ResolveIncident closes an incident. REPLACE_DRIVER and REPLACE_VEHICLE
// retire the failed resource's assignment rows; when the resolution names a
// substitute, the assignment engine commits the replacement crew in the
// same transaction, so the incident closes with the trip staffed again.
// Without a substitute, an assigned trip drops back to SCHEDULED and an
// ongoing trip keeps running with the slot open for a later assign.
func (s LifecycleService) ResolveIncident(ctx context.Context, rc domain.RequestContext, incidentID domain.ID, res IncidentResolution) (models.Incident, error) {
	if !rc.CanDispatch() {
		return models.Incident{}, domain.UnauthorizedError{Msg: "caller may not resolve incidents"}
	}
	action := strings.ToUpper(strings.TrimSpace(res.Action))
	if action == "" {
		action = models.ResolutionNone
	}
	if !models.ValidResolutionAction(action) {
		return models.Incident{}, domain.ValidationError{Field: "action", Msg: "unknown resolution action"}
	}

	var out models.Incident
	var events []notify.Event

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		events = events[:0]

		in, err := s.incidents().GetIncident(tx, incidentID)
		if err != nil {
			return err
		}
		if in.Resolved {
			return domain.ConflictError{Resource: "incident", ResourceID: in.ID, Msg: "incident already resolved"}
		}

		now := s.now()
		if err := s.incidents().MarkResolved(tx, incidentID, action, strings.TrimSpace(res.Note), now); err != nil {
			return err
		}

		if action == models.ResolutionReplaceDriver || action == models.ResolutionReplaceVehicle {
			trip, err := s.trips().GetTripForUpdate(tx, in.TripID)
			if err != nil {
				return err
			}
			if trip.Status.Terminal() {
				return domain.NotDispatchableError{TripID: trip.ID, Reason: fmt.Sprintf("trip is %s", trip.Status)}
			}
			kind := models.AssignDriver
			replacement := res.DriverID
			if action == models.ResolutionReplaceVehicle {
				kind = models.AssignVehicle
				replacement = res.VehicleID
			}

			active, err := s.assignments().ActiveForTrip(tx, trip.ID)
			if err != nil {
				return err
			}

			// Retire the failed resource. REPLACE_DRIVER targets the
			// incident's reporting driver when known, so a co-driver
			// survives the swap. Survivors keep their slots in the
			// replacement crew.
			var mainID, coID, vehID domain.ID
			for _, a := range active {
				retire := a.Kind == kind
				if retire && kind == models.AssignDriver && in.DriverID > 0 {
					retire = a.ResourceID == in.DriverID
				}
				if retire {
					if err := s.assignments().MarkRemoved(tx, a.ID, action, now); err != nil {
						return err
					}
					if kind == models.AssignDriver {
						if err := releaseDriverIfIdle(tx, s.assignments(), s.drivers(), a.ResourceID, trip.ID, now); err != nil {
							return err
						}
					} else {
						if err := releaseVehicleIfIdle(tx, s.assignments(), s.vehicles(), a.ResourceID, trip.ID, now); err != nil {
							return err
						}
					}
					continue
				}
				switch a.Role {
				case models.RoleMainDriver:
					mainID = a.ResourceID
				case models.RoleCoDriver:
					coID = a.ResourceID
				case models.RoleVehicle:
					vehID = a.ResourceID
				}
			}

			if trip.Status == models.TripAssigned {
				if err := trip.Transition(models.TripScheduled); err != nil {
					return err
				}
				if err := s.trips().UpdateTripStatus(tx, trip.ID, trip.Version, models.TripScheduled); err != nil {
					return err
				}
			}

			// A named substitute goes straight through the assignment
			// engine, under the same transaction: a conflict or
			// eligibility failure rolls the whole resolution back.
			if replacement > 0 {
				if kind == models.AssignDriver {
					if mainID == 0 {
						mainID = replacement
					} else {
						coID = replacement
					}
				} else {
					vehID = replacement
				}
				if mainID > 0 && vehID > 0 {
					booking, err := s.bookings().GetBooking(tx, trip.BookingID)
					if err != nil {
						return err
					}
					engine := s.engine()
					req := AssignRequest{
						BookingID:  trip.BookingID,
						TripIDs:    []domain.ID{trip.ID},
						DriverID:   mainID,
						CoDriverID: coID,
						VehicleID:  vehID,
						Note:       strings.TrimSpace(res.Note),
					}
					if _, err := engine.assignTrip(tx, booking, trip.ID, req, engine.env(), &events); err != nil {
						return err
					}
				}
			}
		}

		in.Resolved = true
		in.ResolutionAction = action
		in.ResolutionNote = strings.TrimSpace(res.Note)
		in.ResolvedAt = &now
		out = in
		events = append(events, notify.Event{
			Kind:    notify.EventIncidentClosed,
			TripID:  int64(in.TripID),
			Message: fmt.Sprintf("incident %d resolved with %s", in.ID, action),
		})
		return nil
	})
	if err != nil {
		return models.Incident{}, err
	}

	for _, ev := range events {
		s.notifier().Notify(ev)
	}
	utils.LogEvent(s.RequestID, "incident", "resolve", fmt.Sprintf("incident_id=%d action=%s", incidentID, action))
	return out, nil
}
