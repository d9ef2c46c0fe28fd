package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "backoffice/internal/config"
	intdb "backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

type AssignmentRepo struct {
	DB *sql.DB
}

func (r AssignmentRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const assignmentColumns = `id, trip_id, kind, resource_id, role, note,
	COALESCE(active, 0), assigned_at, accepted_at, removed_at, removed_reason`

func scanAssignments(rows *sql.Rows) ([]models.Assignment, error) {
	out := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		var active int
		var accepted, removed sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.TripID, &a.Kind, &a.ResourceID, &a.Role, &a.Note,
			&active, &a.AssignedAt, &accepted, &removed, &a.RemovedReason,
		); err != nil {
			return nil, err
		}
		a.Active = active == 1
		a.AcceptedAt = intdb.TimePtr(accepted)
		a.RemovedAt = intdb.TimePtr(removed)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActiveForTrip returns the live assignment rows of one trip.
func (r AssignmentRepo) ActiveForTrip(q DBTX, tripID domain.ID) ([]models.Assignment, error) {
	rows, err := q.Query(
		`SELECT `+assignmentColumns+` FROM trip_assignments WHERE trip_id=? AND active=1 ORDER BY id ASC`,
		tripID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// FindBlockingTrip reports the trip currently holding the resource over an
// overlapping window. Overlap is strict: existing.start < proposed.end AND
// existing.end > proposed.start, so back-to-back windows do not collide.
// Only ASSIGNED and ONGOING trips block; the excluded trip id lets the
// caller skip the trip being dispatched.
func (r AssignmentRepo) FindBlockingTrip(q DBTX, kind models.AssignmentKind, resourceID domain.ID, w models.Window, excludeTripID domain.ID) (domain.ID, bool, error) {
	var blocking domain.ID
	err := q.QueryRow(
		`SELECT t.id
		 FROM trip_assignments a
		 JOIN trips t ON t.id = a.trip_id
		 WHERE a.kind = ? AND a.resource_id = ? AND a.active = 1
		   AND t.id <> ?
		   AND t.status IN (?, ?)
		   AND t.start_time < ? AND t.end_time > ?
		 ORDER BY t.start_time ASC, t.id ASC
		 LIMIT 1`,
		kind, resourceID, excludeTripID,
		models.TripAssigned, models.TripOngoing,
		w.End, w.Start,
	).Scan(&blocking)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return blocking, true, nil
}

// Insert adds an active assignment row. A unique key violation means a
// concurrent writer already holds the same active slot.
func (r AssignmentRepo) Insert(q DBTX, a models.Assignment) (domain.ID, error) {
	res, err := q.Exec(
		`INSERT INTO trip_assignments (trip_id, kind, resource_id, role, note, active, assigned_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		a.TripID, a.Kind, a.ResourceID, a.Role, a.Note, a.AssignedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{
				Resource:   string(a.Kind),
				ResourceID: a.ResourceID,
				Msg:        "resource already assigned to this trip",
				Err:        err,
			}
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return domain.ID(id), nil
}

// MarkRemoved deactivates an assignment row. Setting active to NULL keeps
// the row out of the unique key so the resource can be reassigned later.
func (r AssignmentRepo) MarkRemoved(q DBTX, id domain.ID, reason string, at time.Time) error {
	res, err := q.Exec(
		`UPDATE trip_assignments SET active=NULL, removed_at=?, removed_reason=? WHERE id=? AND active=1`,
		at, reason, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "assignment", ID: id}
	}
	return nil
}

// StampAccepted records driver acknowledgement on the active driver row.
func (r AssignmentRepo) StampAccepted(q DBTX, tripID, driverID domain.ID, at time.Time) error {
	res, err := q.Exec(
		`UPDATE trip_assignments SET accepted_at=?
		 WHERE trip_id=? AND kind=? AND resource_id=? AND active=1 AND accepted_at IS NULL`,
		at, tripID, models.AssignDriver, driverID,
	)
	if err != nil {
		return err
	}
	_, err = res.RowsAffected()
	return err
}

// ScheduleBlock is one busy interval of a resource.
type ScheduleBlock struct {
	TripID        domain.ID         `json:"trip_id"`
	Start         time.Time         `json:"start_time"`
	End           time.Time         `json:"end_time"`
	Status        models.TripStatus `json:"status"`
	StartLocation string            `json:"start_location"`
	EndLocation   string            `json:"end_location"`
	Role          string            `json:"role"`
}

// ScheduleForResource lists the busy intervals of a driver or vehicle over
// a window, derived from active assignments on blocking trips.
func (r AssignmentRepo) ScheduleForResource(kind models.AssignmentKind, resourceID domain.ID, from, to time.Time) ([]ScheduleBlock, error) {
	rows, err := r.db().Query(
		`SELECT t.id, t.start_time, t.end_time, t.status, t.start_location, t.end_location, a.role
		 FROM trip_assignments a
		 JOIN trips t ON t.id = a.trip_id
		 WHERE a.kind = ? AND a.resource_id = ? AND a.active = 1
		   AND t.status IN (?, ?)
		   AND t.start_time < ? AND t.end_time > ?
		 ORDER BY t.start_time ASC, t.id ASC`,
		kind, resourceID,
		models.TripAssigned, models.TripOngoing,
		to, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScheduleBlock{}
	for rows.Next() {
		var b ScheduleBlock
		if err := rows.Scan(&b.TripID, &b.Start, &b.End, &b.Status, &b.StartLocation, &b.EndLocation, &b.Role); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ResourceScheduleBlock is a ScheduleBlock tagged with the resource that
// holds it, for listings that span many drivers or vehicles.
type ResourceScheduleBlock struct {
	Kind       models.AssignmentKind `json:"kind"`
	ResourceID domain.ID             `json:"resource_id"`
	ScheduleBlock
}

// ScheduleForWindow lists every busy interval of every driver and vehicle
// over a window, scoped to one branch when branchID is set.
func (r AssignmentRepo) ScheduleForWindow(branchID domain.ID, from, to time.Time) ([]ResourceScheduleBlock, error) {
	query := `SELECT a.kind, a.resource_id, t.id, t.start_time, t.end_time, t.status, t.start_location, t.end_location, a.role
		 FROM trip_assignments a
		 JOIN trips t ON t.id = a.trip_id
		 WHERE a.active = 1
		   AND t.status IN (?, ?)
		   AND t.start_time < ? AND t.end_time > ?`
	args := []any{models.TripAssigned, models.TripOngoing, to, from}
	if branchID > 0 {
		query = `SELECT a.kind, a.resource_id, t.id, t.start_time, t.end_time, t.status, t.start_location, t.end_location, a.role
		 FROM trip_assignments a
		 JOIN trips t ON t.id = a.trip_id
		 JOIN bookings b ON b.id = t.booking_id
		 WHERE a.active = 1
		   AND b.branch_id = ?
		   AND t.status IN (?, ?)
		   AND t.start_time < ? AND t.end_time > ?`
		args = []any{branchID, models.TripAssigned, models.TripOngoing, to, from}
	}
	query += ` ORDER BY a.kind ASC, a.resource_id ASC, t.start_time ASC, t.id ASC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ResourceScheduleBlock{}
	for rows.Next() {
		var b ResourceScheduleBlock
		if err := rows.Scan(&b.Kind, &b.ResourceID, &b.TripID, &b.Start, &b.End, &b.Status, &b.StartLocation, &b.EndLocation, &b.Role); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountDriverTripsBetween counts non-cancelled trips a driver is or was on
// whose start falls in [from, to). Used for workload scoring.
func (r AssignmentRepo) CountDriverTripsBetween(driverID domain.ID, from, to time.Time) (int, error) {
	var n int
	err := r.db().QueryRow(
		`SELECT COUNT(DISTINCT t.id)
		 FROM trip_assignments a
		 JOIN trips t ON t.id = a.trip_id
		 WHERE a.kind = ? AND a.resource_id = ? AND a.active = 1
		   AND t.status <> ?
		   AND t.start_time >= ? AND t.start_time < ?`,
		models.AssignDriver, driverID, models.TripCancelled, from, to,
	).Scan(&n)
	return n, err
}
