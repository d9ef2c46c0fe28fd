package models

import "backoffice/internal/domain"

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "INPROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// Booking is owned by the invoicing collaborator; dispatch only reads the
// fields that gate assignment.
type Booking struct {
	ID               domain.ID     `json:"id"`
	BranchID         domain.ID     `json:"branchId"`
	CustomerName     string        `json:"customerName"`
	CustomerPhone    string        `json:"customerPhone"`
	Status           BookingStatus `json:"status"`
	EstimatedCost    float64       `json:"estimatedCost"`
	TotalCost        float64       `json:"totalCost"`
	PaidConfirmed    float64       `json:"paidConfirmed"`
	DepositConfirmed bool          `json:"depositConfirmed"`
}

// DispatchEligible reports whether trips of this booking may be assigned at
// all. Cancelled and still-pending bookings never reach the dispatch board.
func (b Booking) DispatchEligible() bool {
	switch b.Status {
	case BookingConfirmed, BookingInProgress, BookingCompleted:
		return true
	default:
		return false
	}
}

// CostBasis is the amount the deposit ratio is measured against; total cost
// wins over the estimate when both are present.
func (b Booking) CostBasis() float64 {
	if b.TotalCost > 0 {
		return b.TotalCost
	}
	return b.EstimatedCost
}

// DepositSatisfied applies the dispatch precondition: a confirmed deposit, a
// confirmed-paid ratio at or above minRatio, or a COMPLETED booking (nothing
// left to secure).
func (b Booking) DepositSatisfied(minRatio float64) bool {
	if b.Status == BookingCompleted {
		return true
	}
	if b.DepositConfirmed {
		return true
	}
	basis := b.CostBasis()
	if basis <= 0 {
		return false
	}
	return b.PaidConfirmed/basis >= minRatio
}
