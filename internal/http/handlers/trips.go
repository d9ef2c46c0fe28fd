package handlers

import (
	"net/http"

	"backoffice/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/trips/:id
func GetTripDetail(c *gin.Context) {
	tripID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var svc services.DispatchQueryService
	detail, err := svc.GetTripDetail(tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
