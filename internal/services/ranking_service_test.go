package services

import (
	"testing"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
)

func TestDriverCandidateOrderDeterministic(t *testing.T) {
	mk := func(id int64, eligible bool, score float64) DriverCandidate {
		return DriverCandidate{
			Driver:   models.Driver{ID: domain.ID(id)},
			Eligible: eligible,
			Score:    score,
		}
	}

	cs := []DriverCandidate{
		mk(5, true, 0.70),
		mk(2, false, 0),
		mk(3, true, 0.70),
		mk(1, true, 0.90),
		mk(4, false, 0),
	}
	sortDriverCandidates(cs)

	wantOrder := []domain.ID{1, 3, 5, 2, 4}
	for i, want := range wantOrder {
		if cs[i].Driver.ID != want {
			t.Fatalf("position %d: got driver %d, want %d", i, cs[i].Driver.ID, want)
		}
	}
}

func TestVehicleCandidateTiesBreakByID(t *testing.T) {
	mk := func(id int64, score float64) VehicleCandidate {
		return VehicleCandidate{
			Vehicle:  models.Vehicle{ID: domain.ID(id)},
			Eligible: true,
			Score:    score,
		}
	}
	cs := []VehicleCandidate{mk(9, 0.5), mk(4, 0.5), mk(7, 0.5)}
	sortVehicleCandidates(cs)

	wantOrder := []domain.ID{4, 7, 9}
	for i, want := range wantOrder {
		if cs[i].Vehicle.ID != want {
			t.Fatalf("position %d: got vehicle %d, want %d", i, cs[i].Vehicle.ID, want)
		}
	}
}

func TestWorkloadScoreFavorsIdleDrivers(t *testing.T) {
	idle := workloadScore(0, 0)
	busyToday := workloadScore(2, 2)
	busyWeek := workloadScore(0, 5)

	if idle != 1 {
		t.Fatalf("idle driver should score 1, got %f", idle)
	}
	if busyToday >= busyWeek {
		t.Fatalf("same-day trips must weigh more than weekly trips: today=%f week=%f", busyToday, busyWeek)
	}
	if busyWeek >= idle {
		t.Fatalf("any recent trips must lower the score")
	}
}

func TestCapacitySlackScorePrefersTightestFit(t *testing.T) {
	if capacitySlackScore(10, 16) != 0 {
		t.Fatalf("vehicle smaller than party must score 0")
	}
	exact := capacitySlackScore(16, 16)
	loose := capacitySlackScore(30, 16)
	if exact != 1 {
		t.Fatalf("exact fit should score 1, got %f", exact)
	}
	if loose >= exact {
		t.Fatalf("oversized vehicle must score below exact fit")
	}
}

func TestPriorityScoreFavorsTopLevelDrivers(t *testing.T) {
	if got := priorityScore(1); got != 1 {
		t.Fatalf("level 1 is the highest dispatch priority and must score 1.0, got %f", got)
	}
	if got := priorityScore(5); got != 0.2 {
		t.Fatalf("level 5 is the lowest dispatch priority and must score 0.2, got %f", got)
	}
	for level := 1; level < 5; level++ {
		if priorityScore(level) <= priorityScore(level+1) {
			t.Fatalf("level %d must outscore level %d", level, level+1)
		}
	}
}

func TestPriorityAndRatingScoresClamp(t *testing.T) {
	if priorityScore(0) != priorityScore(1) {
		t.Fatalf("priority below 1 should clamp to 1")
	}
	if priorityScore(9) != priorityScore(5) {
		t.Fatalf("priority above 5 should clamp to 5, got %f", priorityScore(9))
	}
	if ratingScore(6) != 1 {
		t.Fatalf("rating above 5 should clamp to 1.0")
	}
	if ratingScore(-1) != 0 {
		t.Fatalf("negative rating should score 0")
	}
}

func TestMaintenanceScoreRecencyWins(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	fresh := maintenanceScore(now.AddDate(0, 0, -3), now)
	stale := maintenanceScore(now.AddDate(0, -6, 0), now)
	if fresh <= stale {
		t.Fatalf("recent maintenance must score higher: fresh=%f stale=%f", fresh, stale)
	}
	if maintenanceScore(time.Time{}, now) != 0 {
		t.Fatalf("unknown maintenance history must score 0")
	}
}

func TestScoreWeightsSumToOne(t *testing.T) {
	const eps = 1e-9
	if w := weightDriverPriority + weightDriverWorkload + weightDriverRating; w < 1-eps || w > 1+eps {
		t.Fatalf("driver weights sum to %f", w)
	}
	if w := weightVehicleSlack + weightVehicleOdometer + weightVehicleMaintenance; w < 1-eps || w > 1+eps {
		t.Fatalf("vehicle weights sum to %f", w)
	}
}
