package repositories

import (
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestInsertMapsDuplicateKeyToConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO trip_assignments").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := AssignmentRepo{DB: db}
	_, err = repo.Insert(db, models.Assignment{
		TripID:     1,
		Kind:       models.AssignDriver,
		ResourceID: 7,
		Role:       models.RoleMainDriver,
		AssignedAt: time.Now(),
	})
	if !domain.IsConflict(err) {
		t.Fatalf("duplicate active assignment must surface as conflict, got %v", err)
	}
}

func TestMarkRemovedRequiresActiveRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE trip_assignments SET active=NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := AssignmentRepo{DB: db}
	err = repo.MarkRemoved(db, 99, "REASSIGNED", time.Now())
	if !domain.IsNotFound(err) {
		t.Fatalf("removing a missing row must be not found, got %v", err)
	}
}

func TestFindBlockingTripUsesStrictOverlap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	// The overlap predicate binds proposed end before proposed start:
	// existing.start < proposed.end AND existing.end > proposed.start.
	mock.ExpectQuery("t.start_time < \\? AND t.end_time > \\?").
		WithArgs("DRIVER", 7, 0, "ASSIGNED", "ONGOING", end, start).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := AssignmentRepo{DB: db}
	_, found, err := repo.FindBlockingTrip(db, models.AssignDriver, 7, models.Window{Start: start, End: end}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("no rows means no blocking trip")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
