package handlers

import (
	"net/http"

	"backoffice/internal/http/middleware"
	"backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// Driver-facing trip actions. RequireDriver guarantees a driver profile on
// the request context; crew membership is still checked in the service so
// a driver cannot act on someone else's trip.

// POST /api/driver/trips/:id/accept
func DriverAcceptTrip(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	rc := middleware.GetRequestContext(c)
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	trip, err := svc.Accept(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "accepted": true})
}

// POST /api/driver/trips/:id/start
func DriverStartTrip(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	rc := middleware.GetRequestContext(c)
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	trip, err := svc.Start(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// POST /api/driver/trips/:id/complete
func DriverCompleteTrip(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	rc := middleware.GetRequestContext(c)
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	trip, err := svc.Complete(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// GET /api/driver/schedule?from=&to=
func DriverOwnSchedule(c *gin.Context) {
	rc := middleware.GetRequestContext(c)
	from, to, ok := driverScheduleWindow(c)
	if !ok {
		return
	}
	var svc services.DispatchQueryService
	blocks, err := svc.DriverSchedule(rc.DriverID, from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": rc.DriverID, "schedule": blocks})
}

// POST /api/driver/trips/:id/incidents
func DriverReportIncident(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req services.IncidentReport
	if !BindJSONOrError(c, &req) {
		return
	}
	rc := middleware.GetRequestContext(c)
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	incident, err := svc.ReportIncident(c.Request.Context(), rc, tripID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"incident": incident})
}
