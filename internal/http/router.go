package api

import (
	"log"
	stdhttp "net/http"

	intconfig "backoffice/internal/config"
	h "backoffice/internal/http/handlers"
	"backoffice/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/login", h.Login(env))

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(env))

		// Dispatcher surface
		dispatch := authed.Group("/dispatch")
		dispatch.Use(middleware.RequireDispatcher())
		dispatch.GET("/pending", h.GetPendingTrips(env))
		dispatch.GET("/dashboard", h.GetDashboard)
		dispatch.POST("/assign", h.AssignCrew(env))
		dispatch.GET("/trips/:id/suggestions", h.GetTripSuggestions(env))
		dispatch.POST("/trips/:id/unassign", h.UnassignTrip)
		dispatch.POST("/trips/:id/cancel", h.CancelTrip)
		dispatch.GET("/trips/:id/sheet", h.GetDispatchOrderSheet)

		authed.GET("/trips/:id", h.GetTripDetail)
		authed.GET("/drivers/:id/schedule", middleware.RequireDispatcher(), h.GetDriverScheduleByID)

		incidents := authed.Group("/incidents")
		incidents.Use(middleware.RequireDispatcher())
		incidents.POST("/:id/resolve", h.ResolveIncident)

		// Driver surface
		driver := authed.Group("/driver")
		driver.Use(middleware.RequireDriver())
		driver.GET("/schedule", h.DriverOwnSchedule)
		driver.POST("/trips/:id/accept", h.DriverAcceptTrip)
		driver.POST("/trips/:id/start", h.DriverStartTrip)
		driver.POST("/trips/:id/complete", h.DriverCompleteTrip)
		driver.POST("/trips/:id/incidents", h.DriverReportIncident)
	}

	return r
}
