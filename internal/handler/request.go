package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"movix/internal/domain"
	"movix/internal/service"
)

// RequestHandler handles HTTP requests for service requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateRequestBody is the HTTP request body for creating a service request.
type CreateRequestBody struct {
	ClientID           string   `json:"client_id"`
	ServiceType        string   `json:"service_type"`
	MandaditoType      string   `json:"mandadito_type,omitempty"`
	OriginLat          float64  `json:"origin_lat"`
	OriginLng          float64  `json:"origin_lng"`
	OriginAddress      string   `json:"origin_address,omitempty"`
	DestinationLat     *float64 `json:"destination_lat,omitempty"`
	DestinationLng     *float64 `json:"destination_lng,omitempty"`
	DestinationAddress string   `json:"destination_address,omitempty"`
	EstimatedPrice     float64  `json:"estimated_price"`
}

// RequestResponse is the HTTP representation of a service request.
type RequestResponse struct {
	ID                 string   `json:"id"`
	ClientID           string   `json:"client_id"`
	ServiceType        string   `json:"service_type"`
	MandaditoType      string   `json:"mandadito_type,omitempty"`
	OriginLat          float64  `json:"origin_lat"`
	OriginLng          float64  `json:"origin_lng"`
	OriginAddress      string   `json:"origin_address,omitempty"`
	DestinationLat     *float64 `json:"destination_lat,omitempty"`
	DestinationLng     *float64 `json:"destination_lng,omitempty"`
	DestinationAddress string   `json:"destination_address,omitempty"`
	EstimatedPrice     float64  `json:"estimated_price"`
	FinalPrice         float64  `json:"final_price,omitempty"`
	Status             string   `json:"status"`
	TrackingStep       string   `json:"tracking_step,omitempty"`
	AssignedDriverID   string   `json:"assigned_driver_id,omitempty"`
	CancellationReason string   `json:"cancellation_reason,omitempty"`
	CreatedAt          string   `json:"created_at"`
	ExpiresAt          string   `json:"expires_at,omitempty"`

	// Countdown snapshot, anchored to the server clock.
	ServerTime       string `json:"server_time"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Expired          bool   `json:"expired"`

	// BoardingPin is only disclosed to the request's client.
	BoardingPin string `json:"boarding_pin,omitempty"`
}

func requestResponse(req *domain.ServiceRequest, serverTime time.Time, remaining int64, expired bool, includePin bool) RequestResponse {
	resp := RequestResponse{
		ID:                 req.ID,
		ClientID:           req.ClientID,
		ServiceType:        string(req.ServiceType),
		MandaditoType:      string(req.MandaditoType),
		OriginLat:          req.OriginLat,
		OriginLng:          req.OriginLng,
		OriginAddress:      req.OriginAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		DestinationAddress: req.DestinationAddress,
		EstimatedPrice:     req.EstimatedPrice,
		FinalPrice:         req.FinalPrice,
		Status:             string(req.Status),
		TrackingStep:       string(req.TrackingStep),
		AssignedDriverID:   req.AssignedDriverID,
		CancellationReason: req.CancellationReason,
		CreatedAt:          req.CreatedAt.UTC().Format(time.RFC3339),
		ServerTime:         serverTime.UTC().Format(time.RFC3339),
		RemainingSeconds:   remaining,
		Expired:            expired,
	}
	if req.Status == domain.RequestStatusPending {
		resp.ExpiresAt = req.RequestExpiresAt.UTC().Format(time.RFC3339)
	}
	if includePin {
		resp.BoardingPin = req.BoardingPin
	}
	return resp
}

// CreateRequest handles POST /v1/requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.CreateRequest(c.Request.Context(), service.CreateRequestParams{
		ClientID:           body.ClientID,
		ServiceType:        domain.ServiceType(body.ServiceType),
		MandaditoType:      domain.MandaditoType(body.MandaditoType),
		OriginLat:          body.OriginLat,
		OriginLng:          body.OriginLng,
		OriginAddress:      body.OriginAddress,
		DestinationLat:     body.DestinationLat,
		DestinationLng:     body.DestinationLng,
		DestinationAddress: body.DestinationAddress,
		EstimatedPrice:     body.EstimatedPrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	remaining := int64(time.Until(req.RequestExpiresAt).Seconds())
	respondJSON(c, http.StatusCreated, requestResponse(req, time.Now(), remaining, false, false))
}

// GetRequest handles GET /v1/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	view, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	// The client sees its own PIN so it can read it to the driver.
	includePin := c.Query("client_id") == view.Request.ClientID && view.Request.ClientID != ""
	respondJSON(c, http.StatusOK, requestResponse(view.Request, view.ServerTime, view.RemainingSeconds, view.Expired, includePin))
}

// StatusResponse is the compact poll payload for negotiation screens.
type StatusResponse struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	TrackingStep     string  `json:"tracking_step,omitempty"`
	AssignedDriverID string  `json:"assigned_driver_id,omitempty"`
	FinalPrice       float64 `json:"final_price,omitempty"`
	ServerTime       string  `json:"server_time"`
}

// GetStatus handles GET /v1/requests/:id/status
func (h *RequestHandler) GetStatus(c *gin.Context) {
	view, err := h.requestService.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatusResponse{
		ID:               view.ID,
		Status:           view.Status,
		TrackingStep:     view.TrackingStep,
		AssignedDriverID: view.AssignedDriverID,
		FinalPrice:       view.FinalPrice,
		ServerTime:       view.ServerTime.UTC().Format(time.RFC3339),
	})
}

// ListActiveForDriver handles GET /v1/drivers/:id/requests
func (h *RequestHandler) ListActiveForDriver(c *gin.Context) {
	requests, err := h.requestService.ActiveForDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	out := make([]RequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, requestResponse(req, now, 0, false, false))
	}
	respondJSON(c, http.StatusOK, gin.H{"requests": out})
}

// ReissueRequestBody is the HTTP request body for reissuing a request.
type ReissueRequestBody struct {
	ClientID string `json:"client_id"`
}

// ReissueRequest handles POST /v1/requests/:id/reissue
func (h *RequestHandler) ReissueRequest(c *gin.Context) {
	var body ReissueRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.ReissueRequest(c.Request.Context(), c.Param("id"), body.ClientID)
	if err != nil {
		respondError(c, err)
		return
	}

	remaining := int64(time.Until(req.RequestExpiresAt).Seconds())
	respondJSON(c, http.StatusOK, requestResponse(req, time.Now(), remaining, false, false))
}

// AdvanceStepBody is the HTTP request body for advancing the tracking step.
type AdvanceStepBody struct {
	DriverID string `json:"driver_id"`
	Step     string `json:"step"`
}

// AdvanceTrackingStep handles POST /v1/requests/:id/tracking-step
func (h *RequestHandler) AdvanceTrackingStep(c *gin.Context) {
	var body AdvanceStepBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.AdvanceTrackingStep(c.Request.Context(), c.Param("id"), body.DriverID, domain.TrackingStep(body.Step))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, requestResponse(req, time.Now(), 0, false, false))
}

// ValidatePinBody is the HTTP request body for PIN validation.
type ValidatePinBody struct {
	DriverID string `json:"driver_id"`
	Pin      string `json:"pin"`
}

// ValidatePinResponse is the HTTP response for a successful PIN validation.
type ValidatePinResponse struct {
	Request  RequestResponse `json:"request"`
	Earnings float64         `json:"earnings"`
}

// ValidatePin handles POST /v1/requests/:id/validate-pin
func (h *RequestHandler) ValidatePin(c *gin.Context) {
	var body ValidatePinBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.requestService.ValidateBoardingPin(c.Request.Context(), c.Param("id"), body.DriverID, body.Pin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, ValidatePinResponse{
		Request:  requestResponse(result.Request, time.Now(), 0, false, false),
		Earnings: result.Earnings,
	})
}

// CancelRequestBody is the HTTP request body for cancelling a request.
type CancelRequestBody struct {
	ClientID string `json:"client_id,omitempty"`
	DriverID string `json:"driver_id,omitempty"`
	Reason   string `json:"reason"`
}

// CancelByClient handles POST /v1/requests/:id/cancel/client
func (h *RequestHandler) CancelByClient(c *gin.Context) {
	var body CancelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.CancelByClient(c.Request.Context(), c.Param("id"), body.ClientID, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, requestResponse(req, time.Now(), 0, false, false))
}

// CancelByDriver handles POST /v1/requests/:id/cancel/driver
func (h *RequestHandler) CancelByDriver(c *gin.Context) {
	var body CancelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.CancelByDriver(c.Request.Context(), c.Param("id"), body.DriverID, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, requestResponse(req, time.Now(), 0, false, false))
}
