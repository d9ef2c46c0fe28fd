package repositories

import (
	"database/sql"
	"errors"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

type DriverRepo struct {
	DB *sql.DB
}

func (r DriverRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const driverColumns = `id, branch_id, full_name, phone, license_number, license_class,
	license_expiry, priority_level, rating, status`

func scanDriver(scan func(dest ...any) error) (models.Driver, error) {
	var d models.Driver
	var expiry sql.NullTime
	err := scan(
		&d.ID, &d.BranchID, &d.FullName, &d.Phone, &d.LicenseNumber,
		&d.LicenseClass, &expiry, &d.PriorityLevel, &d.Rating, &d.Status,
	)
	if err != nil {
		return models.Driver{}, err
	}
	if expiry.Valid {
		d.LicenseExpiry = expiry.Time
	}
	return d, nil
}

func (r DriverRepo) GetDriver(q DBTX, id domain.ID) (models.Driver, error) {
	return r.getDriver(q, id, "")
}

// GetDriverForUpdate locks the driver row so concurrent assigns serialize.
func (r DriverRepo) GetDriverForUpdate(q DBTX, id domain.ID) (models.Driver, error) {
	return r.getDriver(q, id, " FOR UPDATE")
}

func (r DriverRepo) getDriver(q DBTX, id domain.ID, suffix string) (models.Driver, error) {
	if id <= 0 {
		return models.Driver{}, domain.ValidationError{Field: "driver_id", Msg: "invalid driver id"}
	}
	d, err := scanDriver(q.QueryRow(`SELECT `+driverColumns+` FROM drivers WHERE id=?`+suffix, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Driver{}, domain.NotFoundError{Resource: "driver", ID: id}
	}
	if err != nil {
		return models.Driver{}, err
	}
	return d, nil
}

// ListCandidates returns workable drivers (not DAY_OFF, not INACTIVE) of a
// branch, or of all branches when branchID is zero. Ordered by id so
// downstream ranking starts from a stable list.
func (r DriverRepo) ListCandidates(branchID domain.ID) ([]models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE status NOT IN (?, ?)`
	args := []any{models.DriverDayOff, models.DriverInactive}
	if branchID > 0 {
		query += ` AND branch_id = ?`
		args = append(args, branchID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r DriverRepo) UpdateStatus(q DBTX, id domain.ID, status models.DriverStatus) error {
	_, err := q.Exec(`UPDATE drivers SET status=? WHERE id=?`, status, id)
	return err
}
