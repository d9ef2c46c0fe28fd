package models

import (
	"time"

	"backoffice/internal/domain"
)

type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripAssigned  TripStatus = "ASSIGNED"
	TripOngoing   TripStatus = "ONGOING"
	TripCompleted TripStatus = "COMPLETED"
	TripCancelled TripStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Window is a half-open [Start, End) interval during which a trip occupies a
// driver and vehicle.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return domain.ValidationError{Field: "window", Msg: "start and end are required"}
	}
	if !w.Start.Before(w.End) {
		return domain.ValidationError{Field: "window", Msg: "start must be before end"}
	}
	return nil
}

// Overlaps uses the half-open interval test: two windows collide when each
// starts before the other ends.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type Trip struct {
	ID                 domain.ID  `json:"id"`
	BookingID          domain.ID  `json:"bookingId"`
	StartLocation      string     `json:"startLocation"`
	EndLocation        string     `json:"endLocation"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            time.Time  `json:"endTime"`
	DistanceKm         float64    `json:"distanceKm"`
	RequiredCategoryID domain.ID  `json:"requiredCategoryId"`
	Status             TripStatus `json:"status"`
	Version            int64      `json:"-"`
}

func (t Trip) Window() Window {
	return Window{Start: t.StartTime, End: t.EndTime}
}

// RouteLabel renders "A -> B" for logs and documents.
func (t Trip) RouteLabel() string {
	switch {
	case t.StartLocation == "" && t.EndLocation == "":
		return ""
	case t.StartLocation == "":
		return t.EndLocation
	case t.EndLocation == "":
		return t.StartLocation
	default:
		return t.StartLocation + " -> " + t.EndLocation
	}
}

// allowedTransitions is the trip lifecycle as a directed graph. Unassignment
// is the only way back from ASSIGNED to SCHEDULED; terminal states have no
// outgoing edges.
var allowedTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripAssigned, TripCancelled},
	TripAssigned:  {TripScheduled, TripOngoing, TripCancelled},
	TripOngoing:   {TripCompleted},
	TripCompleted: {},
	TripCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to TripStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition applies a status change, rejecting illegal edges.
func (t *Trip) Transition(to TripStatus) error {
	if !CanTransition(t.Status, to) {
		return domain.InvalidTransitionError{
			Entity: "trip",
			From:   string(t.Status),
			To:     string(to),
		}
	}
	t.Status = to
	return nil
}
