package repositories

import (
	"database/sql"
	"errors"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r BookingRepo) GetBooking(q DBTX, id domain.ID) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid booking id"}
	}
	if q == nil {
		q = r.db()
	}
	var b models.Booking
	var deposit int
	err := q.QueryRow(
		`SELECT id, branch_id, customer_name, customer_phone, status,
			estimated_cost, total_cost, paid_confirmed, deposit_confirmed
		 FROM bookings WHERE id=?`, id,
	).Scan(
		&b.ID, &b.BranchID, &b.CustomerName, &b.CustomerPhone, &b.Status,
		&b.EstimatedCost, &b.TotalCost, &b.PaidConfirmed, &deposit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	if err != nil {
		return models.Booking{}, err
	}
	b.DepositConfirmed = deposit == 1
	return b, nil
}
