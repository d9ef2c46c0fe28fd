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

type IncidentRepo struct {
	DB *sql.DB
}

func (r IncidentRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const incidentColumns = `id, trip_id, driver_id, description, severity, resolved,
	resolution_action, resolution_note, created_at, resolved_at`

func scanIncident(scan func(dest ...any) error) (models.Incident, error) {
	var in models.Incident
	var resolved int
	var resolvedAt sql.NullTime
	err := scan(
		&in.ID, &in.TripID, &in.DriverID, &in.Description, &in.Severity,
		&resolved, &in.ResolutionAction, &in.ResolutionNote, &in.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return models.Incident{}, err
	}
	in.Resolved = resolved == 1
	in.ResolvedAt = intdb.TimePtr(resolvedAt)
	return in, nil
}

func (r IncidentRepo) Insert(q DBTX, in models.Incident) (domain.ID, error) {
	res, err := q.Exec(
		`INSERT INTO trip_incidents (trip_id, driver_id, description, severity, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		in.TripID, in.DriverID, in.Description, in.Severity, in.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return domain.ID(id), nil
}

func (r IncidentRepo) GetIncident(q DBTX, id domain.ID) (models.Incident, error) {
	if id <= 0 {
		return models.Incident{}, domain.ValidationError{Field: "incident_id", Msg: "invalid incident id"}
	}
	if q == nil {
		q = r.db()
	}
	in, err := scanIncident(q.QueryRow(`SELECT `+incidentColumns+` FROM trip_incidents WHERE id=?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Incident{}, domain.NotFoundError{Resource: "incident", ID: id}
	}
	if err != nil {
		return models.Incident{}, err
	}
	return in, nil
}

// MarkResolved closes an incident; zero rows means it was already resolved
// or never existed.
func (r IncidentRepo) MarkResolved(q DBTX, id domain.ID, action, note string, at time.Time) error {
	res, err := q.Exec(
		`UPDATE trip_incidents SET resolved=1, resolution_action=?, resolution_note=?, resolved_at=?
		 WHERE id=? AND resolved=0`,
		action, note, at, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ConflictError{Resource: "incident", ResourceID: id, Msg: "incident already resolved"}
	}
	return nil
}

func (r IncidentRepo) CountOpen() (int, error) {
	var n int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM trip_incidents WHERE resolved=0`).Scan(&n)
	return n, err
}

func (r IncidentRepo) ListByTrip(tripID domain.ID) ([]models.Incident, error) {
	rows, err := r.db().Query(
		`SELECT `+incidentColumns+` FROM trip_incidents WHERE trip_id=? ORDER BY id ASC`, tripID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Incident{}
	for rows.Next() {
		in, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
