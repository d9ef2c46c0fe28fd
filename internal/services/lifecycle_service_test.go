package services

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/notify"

	"github.com/DATA-DOG/go-sqlmock"
)

func driverContext(driverID int64) domain.RequestContext {
	return domain.RequestContext{UserID: 50, Role: domain.RoleDriver, DriverID: domain.ID(driverID)}
}

func TestAcceptRejectsDriverNotOnCrew(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ASSIGNED", 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, "").
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectRollback()

	svc := LifecycleService{Notifier: notify.Noop{}, DB: db}
	_, err = svc.Accept(context.Background(), driverContext(99), 1)
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error for stranger driver, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptStampsAssignment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ASSIGNED", 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectExec("UPDATE trip_assignments SET accepted_at=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := LifecycleService{
		Notifier: notify.Noop{},
		Now:      func() time.Time { return beforeNow },
		DB:       db,
	}
	trip, err := svc.Accept(context.Background(), driverContext(7), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != "ASSIGNED" {
		t.Fatalf("accept must not change trip status, got %s", trip.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartMovesTripToOngoing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ASSIGNED", 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectExec("UPDATE trips SET status=\\?, version=version\\+1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, "").
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectExec("UPDATE drivers SET status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE vehicles SET status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := LifecycleService{Notifier: notify.Noop{}, DB: db}
	trip, err := svc.Start(context.Background(), driverContext(7), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != "ONGOING" {
		t.Fatalf("expected ONGOING, got %s", trip.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartRejectsScheduledTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "SCHEDULED", 0))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectRollback()

	svc := LifecycleService{Notifier: notify.Noop{}, DB: db}
	_, err = svc.Start(context.Background(), driverContext(7), 1)
	if !domain.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestReportIncidentValidatesSeverity(t *testing.T) {
	svc := LifecycleService{Notifier: notify.Noop{}}
	_, err := svc.ReportIncident(context.Background(), driverContext(7), 1, IncidentReport{
		Description: "flat tire",
		Severity:    "TERRIBLE",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown severity, got %v", err)
	}
}

func TestResolveIncidentReplaceDriverReopensDispatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trip_incidents WHERE id=\\?").
		WillReturnRows(sqlmock.NewRows(incidentColumns()).
			AddRow(5, 1, 7, "driver sick", "CRITICAL", 0, "", "", beforeNow, nil))
	mock.ExpectExec("UPDATE trip_incidents SET resolved=1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ASSIGNED", 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, "").
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectExec("UPDATE trip_assignments SET active=NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE drivers SET status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips SET status=\\?, version=version\\+1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := LifecycleService{
		Notifier: notify.Noop{},
		Now:      func() time.Time { return beforeNow },
		DB:       db,
	}
	incident, err := svc.ResolveIncident(context.Background(), dispatcherRC, 5, IncidentResolution{
		Action: "REPLACE_DRIVER",
		Note:   "substitute en route",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !incident.Resolved {
		t.Fatalf("incident should be resolved")
	}
	if incident.ResolutionAction != "REPLACE_DRIVER" {
		t.Fatalf("resolution action lost, got %s", incident.ResolutionAction)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveIncidentWithSubstituteRestaffsTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trip_incidents WHERE id=\\?").
		WillReturnRows(sqlmock.NewRows(incidentColumns()).
			AddRow(5, 1, 7, "driver sick", "CRITICAL", 0, "", "", beforeNow, nil))
	mock.ExpectExec("UPDATE trip_incidents SET resolved=1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ASSIGNED", 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, "").
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	// retire the sick driver, vehicle 3 stays on
	mock.ExpectExec("UPDATE trip_assignments SET active=NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE drivers SET status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips SET status=\\?, version=version\\+1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// substitute driver 8 goes through the assignment engine in-transaction
	mock.ExpectQuery("FROM bookings WHERE id=\\?").
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(10, 1, "ACME Tours", "0900", "CONFIRMED", 0.0, 1000.0, 1000.0, 0))
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "SCHEDULED", 2))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectQuery("FROM drivers WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(driverColumns()).
			AddRow(8, 1, "Cuong", "0902", "DL-8", "D", nil, 2, 4.8, "AVAILABLE"))
	mock.ExpectQuery("FROM vehicle_categories WHERE id=\\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "seats"}).AddRow(2, "16-seat", 16))
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM vehicles WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(vehicleColumns()).
			AddRow(3, 1, 2, "29A-12345", "Ford Transit", 16, 52000.0, nil, "AVAILABLE"))
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO trip_assignments").
		WillReturnResult(sqlmock.NewResult(102, 1))
	mock.ExpectExec("UPDATE trips SET status=\\?, version=version\\+1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, "").
			AddRow(102, 1, "DRIVER", 8, "Main Driver", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectCommit()

	svc := LifecycleService{
		Notifier: notify.Noop{},
		EnvCfg:   testEnv(),
		Now:      func() time.Time { return beforeNow },
		DB:       db,
	}
	incident, err := svc.ResolveIncident(context.Background(), dispatcherRC, 5, IncidentResolution{
		Action:   "REPLACE_DRIVER",
		Note:     "driver 8 takes over",
		DriverID: 8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !incident.Resolved {
		t.Fatalf("incident should be resolved")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("substitute must be dispatched in the same transaction: %v", err)
	}
}

func TestCompleteKeepsBusyVehicleStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(tripColumns()).
			AddRow(1, 10, "Hanoi", "Ha Long", tripStart, tripEnd, 150.0, 2, "ONGOING", 2))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, ""))
	mock.ExpectExec("UPDATE trips SET status=\\?, version=version\\+1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE trip_id=\\? AND active=1 ORDER BY id").
		WillReturnRows(sqlmock.NewRows(assignmentColumns()).
			AddRow(100, 1, "DRIVER", 7, "Main Driver", "", 1, beforeNow, nil, nil, "").
			AddRow(101, 1, "VEHICLE", 3, "Vehicle", "", 1, beforeNow, nil, nil, ""))
	// driver is free elsewhere, vehicle already rolled onto another trip
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE drivers SET status=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN trips t ON t.id = a.trip_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
	mock.ExpectCommit()

	svc := LifecycleService{
		Notifier: notify.Noop{},
		Now:      func() time.Time { return beforeNow },
		DB:       db,
	}
	trip, err := svc.Complete(context.Background(), driverContext(7), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", trip.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("busy vehicle must keep its status: %v", err)
	}
}

func incidentColumns() []string {
	return []string{"id", "trip_id", "driver_id", "description", "severity", "resolved",
		"resolution_action", "resolution_note", "created_at", "resolved_at"}
}
