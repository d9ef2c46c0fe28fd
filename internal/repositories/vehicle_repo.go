package repositories

import (
	"database/sql"
	"errors"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

type VehicleRepo struct {
	DB *sql.DB
}

func (r VehicleRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const vehicleColumns = `id, branch_id, category_id, license_plate, model, capacity,
	odometer_km, last_maintenance, status`

func scanVehicle(scan func(dest ...any) error) (models.Vehicle, error) {
	var v models.Vehicle
	var maint sql.NullTime
	err := scan(
		&v.ID, &v.BranchID, &v.CategoryID, &v.LicensePlate, &v.Model,
		&v.Capacity, &v.OdometerKm, &maint, &v.Status,
	)
	if err != nil {
		return models.Vehicle{}, err
	}
	if maint.Valid {
		v.LastMaintenance = maint.Time
	}
	return v, nil
}

func (r VehicleRepo) GetVehicle(q DBTX, id domain.ID) (models.Vehicle, error) {
	return r.getVehicle(q, id, "")
}

func (r VehicleRepo) GetVehicleForUpdate(q DBTX, id domain.ID) (models.Vehicle, error) {
	return r.getVehicle(q, id, " FOR UPDATE")
}

func (r VehicleRepo) getVehicle(q DBTX, id domain.ID, suffix string) (models.Vehicle, error) {
	if id <= 0 {
		return models.Vehicle{}, domain.ValidationError{Field: "vehicle_id", Msg: "invalid vehicle id"}
	}
	v, err := scanVehicle(q.QueryRow(`SELECT `+vehicleColumns+` FROM vehicles WHERE id=?`+suffix, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vehicle{}, domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	if err != nil {
		return models.Vehicle{}, err
	}
	return v, nil
}

// ListCandidates returns workable vehicles of the required category within
// a branch (zero branch means all branches). Maintenance and inactive
// vehicles never make the list.
func (r VehicleRepo) ListCandidates(branchID, categoryID domain.ID) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE status NOT IN (?, ?)`
	args := []any{models.VehicleMaintenance, models.VehicleInactive}
	if categoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
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

	out := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r VehicleRepo) UpdateStatus(q DBTX, id domain.ID, status models.VehicleStatus) error {
	_, err := q.Exec(`UPDATE vehicles SET status=? WHERE id=?`, status, id)
	return err
}

func (r VehicleRepo) GetCategory(id domain.ID) (models.VehicleCategory, error) {
	if id <= 0 {
		return models.VehicleCategory{}, domain.ValidationError{Field: "category_id", Msg: "invalid category id"}
	}
	var c models.VehicleCategory
	err := r.db().QueryRow(`SELECT id, name, seats FROM vehicle_categories WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Seats)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VehicleCategory{}, domain.NotFoundError{Resource: "vehicle_category", ID: id}
	}
	if err != nil {
		return models.VehicleCategory{}, err
	}
	return c, nil
}
