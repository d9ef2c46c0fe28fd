package handlers

import (
	"net/http"

	"backoffice/internal/http/middleware"
	"backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/incidents/:id/resolve
func ResolveIncident(c *gin.Context) {
	incidentID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req services.IncidentResolution
	if !BindJSONOrError(c, &req) {
		return
	}
	svc := services.LifecycleService{RequestID: middleware.GetRequestID(c)}
	incident, err := svc.ResolveIncident(c.Request.Context(), middleware.GetRequestContext(c), incidentID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"incident": incident})
}
