package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"movix/internal/domain"
	"movix/internal/service"
)

// OfferHandler handles HTTP requests for offers.
type OfferHandler struct {
	offerService *service.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offerService *service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// SubmitOfferBody is the HTTP request body for submitting an offer.
type SubmitOfferBody struct {
	DriverID string  `json:"driver_id"`
	Price    float64 `json:"price"`
}

// CounterOfferBody is the HTTP request body for countering an offer.
type CounterOfferBody struct {
	ActorID string  `json:"actor_id"`
	Price   float64 `json:"price"`
}

// ActorBody is the HTTP request body for accept/reject actions.
type ActorBody struct {
	ActorID string `json:"actor_id"`
}

// OfferResponse is the HTTP representation of an offer.
type OfferResponse struct {
	ID           string  `json:"id"`
	RequestID    string  `json:"request_id"`
	DriverID     string  `json:"driver_id"`
	OfferedPrice float64 `json:"offered_price"`
	OfferType    string  `json:"offer_type"`
	Status       string  `json:"status"`
	ExpiresAt    string  `json:"expires_at"`
	CreatedAt    string  `json:"created_at"`
}

func offerResponse(o *domain.Offer) OfferResponse {
	return OfferResponse{
		ID:           o.ID,
		RequestID:    o.RequestID,
		DriverID:     o.DriverID,
		OfferedPrice: o.OfferedPrice,
		OfferType:    string(o.OfferType),
		Status:       string(o.Status),
		ExpiresAt:    o.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:    o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SubmitOffer handles POST /v1/requests/:id/offers
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	var body SubmitOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.offerService.SubmitOffer(c.Request.Context(), c.Param("id"), body.DriverID, body.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, offerResponse(offer))
}

// ListOffers handles GET /v1/requests/:id/offers
func (h *OfferHandler) ListOffers(c *gin.Context) {
	offers, err := h.offerService.ListOffers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]OfferResponse, 0, len(offers))
	for _, o := range offers {
		resp = append(resp, offerResponse(o))
	}
	respondJSON(c, http.StatusOK, resp)
}

// CounterOffer handles POST /v1/offers/:id/counter
func (h *OfferHandler) CounterOffer(c *gin.Context) {
	var body CounterOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.offerService.CounterOffer(c.Request.Context(), c.Param("id"), body.ActorID, body.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, offerResponse(offer))
}

// RejectOffer handles POST /v1/offers/:id/reject
func (h *OfferHandler) RejectOffer(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.offerService.RejectOffer(c.Request.Context(), c.Param("id"), body.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, offerResponse(offer))
}

// AcceptOffer handles POST /v1/offers/:id/accept
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	var body ActorBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.offerService.AcceptOffer(c.Request.Context(), c.Param("id"), body.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Acceptance by the client discloses the PIN in the response.
	includePin := body.ActorID == req.ClientID
	respondJSON(c, http.StatusOK, requestResponse(req, time.Now(), 0, false, includePin))
}
