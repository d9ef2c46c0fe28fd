package handlers

import (
	"net/http"
	"time"

	intconfig "backoffice/internal/config"
	"backoffice/internal/http/middleware"
	"backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/dispatch/pending?branch_id=&from=&to=
func GetPendingTrips(env intconfig.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		branchID, ok := QueryID(c, "branch_id")
		if !ok {
			return
		}
		from, ok := QueryDate(c, "from")
		if !ok {
			return
		}
		to, ok := QueryDate(c, "to")
		if !ok {
			return
		}

		svc := services.DispatchQueryService{EnvCfg: &env}
		trips, err := svc.PendingTrips(branchID, from, to)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"trips": trips, "count": len(trips)})
	}
}

// GET /api/dispatch/trips/:id/suggestions
func GetTripSuggestions(env intconfig.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := ParamID(c, "id")
		if !ok {
			return
		}
		svc := services.DispatchQueryService{EnvCfg: &env}
		out, err := svc.SuggestionsForTrip(tripID)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/dispatch/assign
func AssignCrew(env intconfig.Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.AssignRequest
		if !BindJSONOrError(c, &req) {
			return
		}
		svc := services.AssignmentService{
			EnvCfg:    &env,
			RequestID: middleware.GetRequestID(c),
		}
		result, err := svc.Assign(c.Request.Context(), middleware.GetRequestContext(c), req)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type unassignRequest struct {
	Reason string `json:"reason"`
}

// POST /api/dispatch/trips/:id/unassign
func UnassignTrip(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req unassignRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if !BindJSONOrError(c, &req) {
			return
		}
	}
	svc := services.AssignmentService{RequestID: middleware.GetRequestID(c)}
	result, err := svc.Unassign(c.Request.Context(), middleware.GetRequestContext(c), tripID, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/dispatch/dashboard?branch_id=&date=
func GetDashboard(c *gin.Context) {
	branchID, ok := QueryID(c, "branch_id")
	if !ok {
		return
	}
	at, ok := QueryDate(c, "date")
	if !ok {
		return
	}
	var svc services.DispatchQueryService
	out, err := svc.DashboardForDay(branchID, at)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/dispatch/trips/:id/sheet
func GetDispatchOrderSheet(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	svc := services.SheetService{RequestID: middleware.GetRequestID(c)}
	pdf, filename, err := svc.GenerateOrderSheet(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// POST /api/dispatch/trips/:id/cancel
func CancelTrip(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if !BindJSONOrError(c, &req) {
			return
		}
	}
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	trip, err := svc.Cancel(c.Request.Context(), middleware.GetRequestContext(c), tripID, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// GET /api/drivers/:id/schedule?from=&to=
func GetDriverScheduleByID(c *gin.Context) {
	driverID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	from, to, ok := driverScheduleWindow(c)
	if !ok {
		return
	}
	var svc services.DispatchQueryService
	blocks, err := svc.DriverSchedule(driverID, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": driverID, "schedule": blocks})
}

// driverScheduleWindow resolves the schedule window shared by driver-facing
// and dispatcher-facing schedule endpoints.
func driverScheduleWindow(c *gin.Context) (time.Time, time.Time, bool) {
	from, ok := QueryDate(c, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := QueryDate(c, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
