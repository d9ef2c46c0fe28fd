package handlers

import (
	"errors"
	"net/http"

	"backoffice/internal/domain"
	"backoffice/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses. Conflicts carry
// the blocking trip id so the frontend can link to it; eligibility errors
// surface their code (CategoryMismatch, LicenseIncompatible).
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsConflict(err):
		var conflict domain.ConflictError
		errors.As(err, &conflict)
		var details any
		if conflict.BlockingTripID > 0 {
			details = gin.H{"blocking_trip_id": conflict.BlockingTripID}
		}
		respondError(c, http.StatusConflict, "resource_conflict", err.Error(), details)
	case domain.IsEligibility(err):
		var el domain.EligibilityError
		errors.As(err, &el)
		respondError(c, http.StatusUnprocessableEntity, el.Code, err.Error(), nil)
	case domain.IsNotDispatchable(err):
		respondError(c, http.StatusUnprocessableEntity, "not_dispatchable", err.Error(), nil)
	case domain.IsInvalidTransition(err):
		respondError(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
