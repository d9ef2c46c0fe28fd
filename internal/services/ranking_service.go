package services

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	intconfig "backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
)

// Ranking weights. Driver and vehicle weights each sum to 1 so the final
// score stays in [0, 1].
const (
	weightDriverPriority = 0.35
	weightDriverWorkload = 0.35
	weightDriverRating   = 0.30

	weightVehicleSlack       = 0.40
	weightVehicleOdometer    = 0.30
	weightVehicleMaintenance = 0.30
)

// DriverScore breaks a candidate score into its weighted parts.
type DriverScore struct {
	Priority float64 `json:"priority"`
	Workload float64 `json:"workload"`
	Rating   float64 `json:"rating"`
}

type DriverCandidate struct {
	Driver     models.Driver `json:"driver"`
	Eligible   bool          `json:"eligible"`
	Reasons    []string      `json:"reasons,omitempty"`
	Score      float64       `json:"score"`
	SubScores  DriverScore   `json:"sub_scores"`
	TripsToday int           `json:"trips_today"`
	TripsWeek  int           `json:"trips_week"`
}

type VehicleScore struct {
	CapacitySlack float64 `json:"capacity_slack"`
	Odometer      float64 `json:"odometer"`
	Maintenance   float64 `json:"maintenance"`
}

type VehicleCandidate struct {
	Vehicle   models.Vehicle `json:"vehicle"`
	Eligible  bool           `json:"eligible"`
	Reasons   []string       `json:"reasons,omitempty"`
	Score     float64        `json:"score"`
	SubScores VehicleScore   `json:"sub_scores"`
}

// RankingService scores dispatch candidates for a trip. Output order is
// deterministic: score descending, then id ascending, with ineligible
// candidates trailing the eligible ones.
type RankingService struct {
	DriverRepo     repositories.DriverRepo
	VehicleRepo    repositories.VehicleRepo
	AssignmentRepo repositories.AssignmentRepo
	Availability   AvailabilityService
	EnvCfg         *intconfig.Env
	Now            func() time.Time
	DB             *sql.DB
}

func (s RankingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s RankingService) drivers() repositories.DriverRepo {
	if s.DriverRepo.DB != nil {
		return s.DriverRepo
	}
	return repositories.DriverRepo{DB: s.db()}
}

func (s RankingService) vehicles() repositories.VehicleRepo {
	if s.VehicleRepo.DB != nil {
		return s.VehicleRepo
	}
	return repositories.VehicleRepo{DB: s.db()}
}

func (s RankingService) assignments() repositories.AssignmentRepo {
	if s.AssignmentRepo.DB != nil {
		return s.AssignmentRepo
	}
	return repositories.AssignmentRepo{DB: s.db()}
}

func (s RankingService) availability() AvailabilityService {
	if s.Availability.DB != nil || s.Availability.AssignmentRepo.DB != nil {
		return s.Availability
	}
	return AvailabilityService{DB: s.db()}
}

func (s RankingService) env() intconfig.Env {
	if s.EnvCfg != nil {
		return *s.EnvCfg
	}
	return intconfig.LoadEnv()
}

func (s RankingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RankDrivers evaluates every workable driver against the trip. Ineligible
// drivers stay in the result with zero score and their reasons, so the
// dispatcher sees why someone was skipped.
func (s RankingService) RankDrivers(trip models.Trip, booking models.Booking) ([]DriverCandidate, error) {
	env := s.env()

	branch := booking.BranchID
	if env.AllowCrossBranch {
		branch = 0
	}
	list, err := s.drivers().ListCandidates(branch)
	if err != nil {
		return nil, err
	}

	var seats int
	if trip.RequiredCategoryID > 0 {
		cat, err := s.vehicles().GetCategory(trip.RequiredCategoryID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		seats = cat.Seats
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -env.WorkloadWindowDays)

	out := make([]DriverCandidate, 0, len(list))
	for _, d := range list {
		c := DriverCandidate{Driver: d}

		if !d.LicenseValidOn(trip.StartTime) {
			c.Reasons = append(c.Reasons, "license expired before trip start")
		}
		if !models.LicenseClassCoversSeats(d.LicenseClass, seats) {
			c.Reasons = append(c.Reasons, fmt.Sprintf("license class %s does not cover %d seats", d.LicenseClass, seats))
		}
		blocking, free, err := s.availability().CheckDriver(nil, d.ID, trip.Window(), trip.ID)
		if err != nil {
			return nil, err
		}
		if !free {
			c.Reasons = append(c.Reasons, fmt.Sprintf("busy on trip %d", blocking))
		}

		c.Eligible = len(c.Reasons) == 0
		if c.Eligible {
			tripsToday, err := s.assignments().CountDriverTripsBetween(d.ID, dayStart, dayStart.AddDate(0, 0, 1))
			if err != nil {
				return nil, err
			}
			tripsWeek, err := s.assignments().CountDriverTripsBetween(d.ID, weekStart, dayStart.AddDate(0, 0, 1))
			if err != nil {
				return nil, err
			}
			c.TripsToday = tripsToday
			c.TripsWeek = tripsWeek
			c.SubScores = DriverScore{
				Priority: priorityScore(d.PriorityLevel),
				Workload: workloadScore(tripsToday, tripsWeek),
				Rating:   ratingScore(d.Rating),
			}
			c.Score = weightDriverPriority*c.SubScores.Priority +
				weightDriverWorkload*c.SubScores.Workload +
				weightDriverRating*c.SubScores.Rating
		}
		out = append(out, c)
	}

	sortDriverCandidates(out)
	return out, nil
}

// RankVehicles evaluates every workable vehicle of the required category.
func (s RankingService) RankVehicles(trip models.Trip, booking models.Booking) ([]VehicleCandidate, error) {
	env := s.env()

	branch := booking.BranchID
	if env.AllowCrossBranch {
		branch = 0
	}
	list, err := s.vehicles().ListCandidates(branch, trip.RequiredCategoryID)
	if err != nil {
		return nil, err
	}

	var seats int
	if trip.RequiredCategoryID > 0 {
		cat, err := s.vehicles().GetCategory(trip.RequiredCategoryID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
		seats = cat.Seats
	}

	now := s.now()
	out := make([]VehicleCandidate, 0, len(list))
	for _, v := range list {
		c := VehicleCandidate{Vehicle: v}

		if trip.RequiredCategoryID > 0 && v.CategoryID != trip.RequiredCategoryID {
			c.Reasons = append(c.Reasons, "vehicle category does not match trip requirement")
		}
		blocking, free, err := s.availability().CheckVehicle(nil, v.ID, trip.Window(), trip.ID)
		if err != nil {
			return nil, err
		}
		if !free {
			c.Reasons = append(c.Reasons, fmt.Sprintf("busy on trip %d", blocking))
		}

		c.Eligible = len(c.Reasons) == 0
		if c.Eligible {
			c.SubScores = VehicleScore{
				CapacitySlack: capacitySlackScore(v.Capacity, seats),
				Odometer:      odometerScore(v.OdometerKm),
				Maintenance:   maintenanceScore(v.LastMaintenance, now),
			}
			c.Score = weightVehicleSlack*c.SubScores.CapacitySlack +
				weightVehicleOdometer*c.SubScores.Odometer +
				weightVehicleMaintenance*c.SubScores.Maintenance
		}
		out = append(out, c)
	}

	sortVehicleCandidates(out)
	return out, nil
}

func sortDriverCandidates(cs []DriverCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Eligible != cs[j].Eligible {
			return cs[i].Eligible
		}
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Driver.ID < cs[j].Driver.ID
	})
}

func sortVehicleCandidates(cs []VehicleCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Eligible != cs[j].Eligible {
			return cs[i].Eligible
		}
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Vehicle.ID < cs[j].Vehicle.ID
	})
}

// priorityScore maps the 1..5 priority level to [0.2, 1.0]. Level 1 is the
// highest dispatch priority, so it gets the top score.
func priorityScore(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	return float64(6-level) / 5
}

// workloadScore favors drivers with fewer recent trips. Same-day trips
// weigh double against the rolling window.
func workloadScore(tripsToday, tripsWeek int) float64 {
	return 1 / float64(1+2*tripsToday+tripsWeek)
}

func ratingScore(rating float64) float64 {
	if rating < 0 {
		return 0
	}
	if rating > 5 {
		rating = 5
	}
	return rating / 5
}

// capacitySlackScore favors the tightest vehicle that still fits, so big
// buses are not burned on small parties.
func capacitySlackScore(capacity, requiredSeats int) float64 {
	if requiredSeats <= 0 {
		requiredSeats = capacity
	}
	slack := capacity - requiredSeats
	if slack < 0 {
		return 0
	}
	return 1 / float64(1+slack)
}

func odometerScore(km float64) float64 {
	if km < 0 {
		km = 0
	}
	return 1 / (1 + km/10000)
}

func maintenanceScore(last time.Time, now time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	days := now.Sub(last).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 / (1 + days/30)
}
