package services

import (
	"testing"
	"time"

	"backoffice/internal/repositories"
	"backoffice/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDashboardScopesToBranch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	dayStart, dayEnd := utils.DayBounds(at)
	tripStart := dayStart.Add(8 * time.Hour)
	tripEnd := tripStart.Add(4 * time.Hour)

	mock.ExpectQuery("SELECT t.status, COUNT\\(\\*\\) FROM trips t").
		WithArgs(1, dayStart, dayEnd).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow("SCHEDULED", 1).
			AddRow("ASSIGNED", 2))
	mock.ExpectQuery("WHERE t.status = \\?").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(5, 10, "Hanoi", "Da Nang", tripStart, tripEnd, 600.0, 2, "SCHEDULED", 0))
	expectConfirmedBooking(mock)
	mock.ExpectQuery("FROM trip_assignments a").
		WillReturnRows(sqlmock.NewRows([]string{"kind", "resource_id", "id", "start_time", "end_time", "status", "start_location", "end_location", "role"}).
			AddRow("DRIVER", 7, 8, tripStart, tripEnd, "ASSIGNED", "Hanoi", "Hue", "Main Driver").
			AddRow("VEHICLE", 3, 8, tripStart, tripEnd, "ASSIGNED", "Hanoi", "Hue", "Vehicle"))
	mock.ExpectQuery("FROM trip_incidents WHERE resolved=0").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	svc := DispatchQueryService{EnvCfg: testEnv(), DB: db}
	dash, err := svc.DashboardForDay(1, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dash.BranchID != 1 {
		t.Fatalf("expected branch 1, got %d", dash.BranchID)
	}
	if dash.Date != utils.FormatDate(dayStart) {
		t.Fatalf("unexpected date %q", dash.Date)
	}
	if dash.PendingCount != 1 {
		t.Fatalf("expected pending count 1, got %d", dash.PendingCount)
	}
	if len(dash.Pending) != 1 || dash.Pending[0].Trip.ID != 5 {
		t.Fatalf("expected trip 5 in the pending queue, got %+v", dash.Pending)
	}
	if !dash.Pending[0].DepositSatisfied {
		t.Fatalf("fully paid booking must satisfy the deposit gate")
	}
	if dash.OpenIncidents != 2 {
		t.Fatalf("expected 2 open incidents, got %d", dash.OpenIncidents)
	}
	if len(dash.DriverSchedules) != 1 || dash.DriverSchedules[0].ResourceID != 7 {
		t.Fatalf("expected driver 7 on the board, got %+v", dash.DriverSchedules)
	}
	if len(dash.VehicleSchedules) != 1 || dash.VehicleSchedules[0].ResourceID != 3 {
		t.Fatalf("expected vehicle 3 on the board, got %+v", dash.VehicleSchedules)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGroupSchedulesSplitsByKindAndResource(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	blocks := []repositories.ResourceScheduleBlock{
		{Kind: "DRIVER", ResourceID: 7, ScheduleBlock: repositories.ScheduleBlock{TripID: 1, Start: start}},
		{Kind: "DRIVER", ResourceID: 7, ScheduleBlock: repositories.ScheduleBlock{TripID: 2, Start: start.Add(6 * time.Hour)}},
		{Kind: "DRIVER", ResourceID: 9, ScheduleBlock: repositories.ScheduleBlock{TripID: 1, Start: start}},
		{Kind: "VEHICLE", ResourceID: 3, ScheduleBlock: repositories.ScheduleBlock{TripID: 1, Start: start}},
	}
	drivers, vehicles := groupSchedules(blocks)
	if len(drivers) != 2 {
		t.Fatalf("expected 2 driver schedules, got %d", len(drivers))
	}
	if drivers[0].ResourceID != 7 || len(drivers[0].Blocks) != 2 {
		t.Fatalf("driver 7 should carry both blocks, got %+v", drivers[0])
	}
	if drivers[1].ResourceID != 9 || len(drivers[1].Blocks) != 1 {
		t.Fatalf("driver 9 should carry one block, got %+v", drivers[1])
	}
	if len(vehicles) != 1 || vehicles[0].ResourceID != 3 {
		t.Fatalf("expected vehicle 3 only, got %+v", vehicles)
	}
}
