package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"movix/internal/domain"
	"movix/internal/service"
)

// StopHandler handles HTTP requests for mandadito stops and items.
type StopHandler struct {
	stopService *service.StopService
}

// NewStopHandler creates a new StopHandler.
func NewStopHandler(stopService *service.StopService) *StopHandler {
	return &StopHandler{stopService: stopService}
}

// AddStopBody is the HTTP request body for adding a stop.
type AddStopBody struct {
	ClientID  string         `json:"client_id"`
	StopOrder int            `json:"stop_order"`
	Address   string         `json:"address,omitempty"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Items     []StopItemBody `json:"items,omitempty"`
}

// StopItemBody is one shopping-list line in an AddStop request.
type StopItemBody struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// StopResponse is the HTTP representation of a stop.
type StopResponse struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id"`
	StopOrder int     `json:"stop_order"`
	Address   string  `json:"address,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    string  `json:"status"`
}

// ItemResponse is the HTTP representation of a stop item.
type ItemResponse struct {
	ID          string  `json:"id"`
	StopID      string  `json:"stop_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	ActualCost  float64 `json:"actual_cost"`
	IsPurchased bool    `json:"is_purchased"`
}

func stopResponse(s *domain.Stop) StopResponse {
	return StopResponse{
		ID:        s.ID,
		RequestID: s.RequestID,
		StopOrder: s.StopOrder,
		Address:   s.Address,
		Lat:       s.Lat,
		Lng:       s.Lng,
		Status:    string(s.Status),
	}
}

func itemResponse(i *domain.StopItem) ItemResponse {
	return ItemResponse{
		ID:          i.ID,
		StopID:      i.StopID,
		Name:        i.Name,
		Quantity:    i.Quantity,
		ActualCost:  i.ActualCost,
		IsPurchased: i.IsPurchased,
	}
}

// AddStop handles POST /v1/requests/:id/stops
func (h *StopHandler) AddStop(c *gin.Context) {
	var body AddStopBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	items := make([]service.AddItemParams, 0, len(body.Items))
	for _, it := range body.Items {
		items = append(items, service.AddItemParams{Name: it.Name, Quantity: it.Quantity})
	}

	stop, err := h.stopService.AddStop(c.Request.Context(), service.AddStopParams{
		RequestID: c.Param("id"),
		ClientID:  body.ClientID,
		StopOrder: body.StopOrder,
		Address:   body.Address,
		Lat:       body.Lat,
		Lng:       body.Lng,
		Items:     items,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, stopResponse(stop))
}

// ListStops handles GET /v1/requests/:id/stops
func (h *StopHandler) ListStops(c *gin.Context) {
	stops, err := h.stopService.ListStops(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]StopResponse, 0, len(stops))
	for _, s := range stops {
		resp = append(resp, stopResponse(s))
	}
	respondJSON(c, http.StatusOK, resp)
}

// ListItems handles GET /v1/stops/:id/items
func (h *StopHandler) ListItems(c *gin.Context) {
	items, err := h.stopService.ListItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, itemResponse(it))
	}
	respondJSON(c, http.StatusOK, resp)
}

// DriverBody is the HTTP request body for driver stop actions.
type DriverBody struct {
	DriverID string `json:"driver_id"`
}

// StartStop handles POST /v1/stops/:id/start
func (h *StopHandler) StartStop(c *gin.Context) {
	var body DriverBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	stop, err := h.stopService.StartStop(c.Request.Context(), c.Param("id"), body.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stopResponse(stop))
}

// CompleteStop handles POST /v1/stops/:id/complete
func (h *StopHandler) CompleteStop(c *gin.Context) {
	var body DriverBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	stop, err := h.stopService.CompleteStop(c.Request.Context(), c.Param("id"), body.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stopResponse(stop))
}

// SkipStopBody is the HTTP request body for skipping a stop.
type SkipStopBody struct {
	ClientID string `json:"client_id"`
}

// SkipStop handles POST /v1/stops/:id/skip
func (h *StopHandler) SkipStop(c *gin.Context) {
	var body SkipStopBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	stop, err := h.stopService.SkipStop(c.Request.Context(), c.Param("id"), body.ClientID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stopResponse(stop))
}

// PurchaseItemBody is the HTTP request body for purchasing an item.
type PurchaseItemBody struct {
	DriverID   string  `json:"driver_id"`
	ActualCost float64 `json:"actual_cost"`
}

// PurchaseItem handles POST /v1/items/:id/purchase
func (h *StopHandler) PurchaseItem(c *gin.Context) {
	var body PurchaseItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.stopService.PurchaseItem(c.Request.Context(), c.Param("id"), body.DriverID, body.ActualCost)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, itemResponse(item))
}

// TotalResponse is the HTTP representation of a request's grand total.
type TotalResponse struct {
	ItemsTotal   float64 `json:"items_total"`
	ServicePrice float64 `json:"service_price"`
	ServiceFee   float64 `json:"service_fee"`
	Total        float64 `json:"total"`
}

// RequestTotal handles GET /v1/requests/:id/total
func (h *StopHandler) RequestTotal(c *gin.Context) {
	total, err := h.stopService.RequestTotal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, TotalResponse{
		ItemsTotal:   total.ItemsTotal,
		ServicePrice: total.ServicePrice,
		ServiceFee:   total.ServiceFee,
		Total:        total.Total,
	})
}
