package notify

import (
	"log"

	"github.com/google/uuid"
)

// Event kinds emitted after dispatch actions commit.
const (
	EventTripAssigned   = "TRIP_ASSIGNED"
	EventTripUnassigned = "TRIP_UNASSIGNED"
	EventTripAccepted   = "TRIP_ACCEPTED"
	EventTripStarted    = "TRIP_STARTED"
	EventTripCompleted  = "TRIP_COMPLETED"
	EventIncidentOpened = "INCIDENT_OPENED"
	EventIncidentClosed = "INCIDENT_CLOSED"
)

// Event is a dispatch notification. Delivery is best effort and never
// blocks or fails the operation that produced it.
type Event struct {
	ID       string
	Kind     string
	TripID   int64
	DriverID int64
	Message  string
}

type Notifier interface {
	Notify(ev Event)
}

// LogNotifier writes events to the process log. It stands in for a push
// gateway; swapping in a real transport only touches this type.
type LogNotifier struct{}

func (LogNotifier) Notify(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	log.Printf("[NOTIFY] event_id=%s kind=%s trip_id=%d driver_id=%d msg=%s",
		ev.ID, ev.Kind, ev.TripID, ev.DriverID, ev.Message)
}

// Noop drops every event. Used in tests.
type Noop struct{}

func (Noop) Notify(Event) {}
