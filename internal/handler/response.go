package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"movix/internal/repository"
	"movix/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidClientID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRequestID),
		errors.Is(err, service.ErrInvalidOfferID),
		errors.Is(err, service.ErrInvalidServiceType),
		errors.Is(err, service.ErrInvalidMandaditoType),
		errors.Is(err, service.ErrInvalidOrigin),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidOfferType),
		errors.Is(err, service.ErrInvalidTrackingStep),
		errors.Is(err, service.ErrInvalidPin),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingReason),
		errors.Is(err, service.ErrInvalidStopID),
		errors.Is(err, service.ErrInvalidItemID):
		return http.StatusBadRequest

	// Precondition and conflict errors
	case errors.Is(err, service.ErrRequestExpired),
		errors.Is(err, service.ErrRequestNotExpired),
		errors.Is(err, service.ErrRequestClosed),
		errors.Is(err, service.ErrRequestTerminal),
		errors.Is(err, service.ErrRequestNotInProgress),
		errors.Is(err, service.ErrRequestNotAssigned),
		errors.Is(err, service.ErrStepNotMonotonic),
		errors.Is(err, service.ErrOfferNotPending),
		errors.Is(err, service.ErrOfferExpired),
		errors.Is(err, service.ErrPinMismatch),
		errors.Is(err, service.ErrItemsUnpurchased),
		errors.Is(err, service.ErrStopNotOpen),
		errors.Is(err, service.ErrPurchasedItemsExist),
		errors.Is(err, service.ErrDriverTooClose),
		errors.Is(err, service.ErrCancelWindowElapsed),
		errors.Is(err, service.ErrAcceptConflict):
		return http.StatusConflict

	// Authorization errors
	case errors.Is(err, service.ErrNotRequestClient),
		errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, service.ErrNotOfferOwner):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
