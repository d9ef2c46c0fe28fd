package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

type TripRepo struct {
	DB *sql.DB
}

func (r TripRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const tripColumns = `id, booking_id, start_location, end_location, start_time, end_time,
	distance_km, required_category_id, status, version`

func scanTrip(row *sql.Row) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.BookingID, &t.StartLocation, &t.EndLocation,
		&t.StartTime, &t.EndTime, &t.DistanceKm, &t.RequiredCategoryID,
		&t.Status, &t.Version,
	)
	return t, err
}

func (r TripRepo) GetTrip(id domain.ID) (models.Trip, error) {
	return r.getTrip(r.db(), id, "")
}

// GetTripForUpdate locks the trip row for the duration of the transaction.
func (r TripRepo) GetTripForUpdate(q DBTX, id domain.ID) (models.Trip, error) {
	return r.getTrip(q, id, " FOR UPDATE")
}

func (r TripRepo) getTrip(q DBTX, id domain.ID, suffix string) (models.Trip, error) {
	if id <= 0 {
		return models.Trip{}, domain.ValidationError{Field: "trip_id", Msg: "invalid trip id"}
	}
	t, err := scanTrip(q.QueryRow(`SELECT `+tripColumns+` FROM trips WHERE id=?`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, domain.NotFoundError{Resource: "trip", ID: id}
	}
	if err != nil {
		return models.Trip{}, err
	}
	return t, nil
}

// UpdateTripStatus moves a trip to the given status, guarded by the version
// the caller read. Zero rows affected means a concurrent writer won.
func (r TripRepo) UpdateTripStatus(q DBTX, id domain.ID, version int64, to models.TripStatus) error {
	res, err := q.Exec(
		`UPDATE trips SET status=?, version=version+1 WHERE id=? AND version=?`,
		to, id, version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConflictError{Resource: "trip", ResourceID: id, Msg: "trip was modified concurrently"}
	}
	return nil
}

// ListPendingTrips returns SCHEDULED trips on dispatch-eligible bookings,
// soonest departure first.
func (r TripRepo) ListPendingTrips(branchID domain.ID, from, to time.Time) ([]models.Trip, error) {
	query := `SELECT t.id, t.booking_id, t.start_location, t.end_location, t.start_time, t.end_time,
		t.distance_km, t.required_category_id, t.status, t.version
		FROM trips t
		JOIN bookings b ON b.id = t.booking_id
		WHERE t.status = ?
		  AND b.status IN ('CONFIRMED','INPROGRESS','COMPLETED')
		  AND t.start_time >= ? AND t.start_time < ?`
	args := []any{models.TripScheduled, from, to}
	if branchID > 0 {
		query += ` AND b.branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY t.start_time ASC, t.id ASC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(
			&t.ID, &t.BookingID, &t.StartLocation, &t.EndLocation,
			&t.StartTime, &t.EndTime, &t.DistanceKm, &t.RequiredCategoryID,
			&t.Status, &t.Version,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountByStatusOnDay groups trips whose start falls inside [dayStart, dayEnd),
// scoped to one branch when branchID is set.
func (r TripRepo) CountByStatusOnDay(branchID domain.ID, dayStart, dayEnd time.Time) (map[models.TripStatus]int, error) {
	query := `SELECT t.status, COUNT(*) FROM trips t
		WHERE t.start_time >= ? AND t.start_time < ?`
	args := []any{dayStart, dayEnd}
	if branchID > 0 {
		query = `SELECT t.status, COUNT(*) FROM trips t
		JOIN bookings b ON b.id = t.booking_id
		WHERE b.branch_id = ? AND t.start_time >= ? AND t.start_time < ?`
		args = []any{branchID, dayStart, dayEnd}
	}
	query += ` GROUP BY t.status`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[models.TripStatus]int{}
	for rows.Next() {
		var st models.TripStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
