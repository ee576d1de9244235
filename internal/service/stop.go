package service

import (
	"context"

	"github.com/google/uuid"

	"movix/internal/config"
	"movix/internal/domain"
	"movix/internal/geo"
	"movix/internal/repository"
)

// StopService manages the ordered sub-tasks of a mandadito and the
// purchase gating on shopping stops.
type StopService struct {
	requestRepo repository.RequestRepository
	stopRepo    repository.StopRepository
	events      *EventService

	commercial config.CommercialConfig
}

// NewStopService creates a new StopService.
func NewStopService(
	requestRepo repository.RequestRepository,
	stopRepo repository.StopRepository,
	events *EventService,
	commercial config.CommercialConfig,
) *StopService {
	return &StopService{
		requestRepo: requestRepo,
		stopRepo:    stopRepo,
		events:      events,
		commercial:  commercial,
	}
}

// AddStopParams contains the parameters for adding a stop to a request.
type AddStopParams struct {
	RequestID string
	ClientID  string
	StopOrder int
	Address   string
	Lat       float64
	Lng       float64
	Items     []AddItemParams
}

// AddItemParams describes one purchasable line item of a shopping stop.
type AddItemParams struct {
	Name     string
	Quantity int
}

// AddStop attaches a stop (and its shopping list, if any) to a mandadito
// request before a driver is assigned.
func (s *StopService) AddStop(ctx context.Context, params AddStopParams) (*domain.Stop, error) {
	if params.RequestID == "" {
		return nil, ErrInvalidRequestID
	}
	if params.ClientID == "" {
		return nil, ErrInvalidClientID
	}
	if !geo.ValidLatitude(params.Lat) || !geo.ValidLongitude(params.Lng) {
		return nil, ErrInvalidOrigin
	}

	req, err := s.requestRepo.GetByID(ctx, params.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != params.ClientID {
		return nil, ErrNotRequestClient
	}
	if req.ServiceType != domain.ServiceTypeMandadito {
		return nil, ErrInvalidServiceType
	}
	if req.Terminal() || req.Status == domain.RequestStatusInProgress {
		return nil, ErrRequestClosed
	}

	stop := &domain.Stop{
		ID:        uuid.New().String(),
		RequestID: params.RequestID,
		StopOrder: params.StopOrder,
		Address:   params.Address,
		Lat:       params.Lat,
		Lng:       params.Lng,
		Status:    domain.StopStatusPending,
	}
	if err := s.stopRepo.CreateStop(ctx, stop); err != nil {
		return nil, err
	}

	for _, it := range params.Items {
		if it.Name == "" || it.Quantity <= 0 {
			return nil, ErrInvalidItemID
		}
		item := &domain.StopItem{
			ID:       uuid.New().String(),
			StopID:   stop.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
		}
		if err := s.stopRepo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}
	return stop, nil
}

// ListStops returns the request's stops in route order.
func (s *StopService) ListStops(ctx context.Context, requestID string) ([]*domain.Stop, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	return s.stopRepo.ListByRequest(ctx, requestID)
}

// ListItems returns the items of a stop.
func (s *StopService) ListItems(ctx context.Context, stopID string) ([]*domain.StopItem, error) {
	if stopID == "" {
		return nil, ErrInvalidStopID
	}
	return s.stopRepo.ListItems(ctx, stopID)
}

// StartStop marks a stop as the one the driver is working on.
func (s *StopService) StartStop(ctx context.Context, stopID, driverID string) (*domain.Stop, error) {
	stop, _, err := s.authorizedStop(ctx, stopID, driverID)
	if err != nil {
		return nil, err
	}
	if stop.Status != domain.StopStatusPending {
		return nil, ErrStopNotOpen
	}

	stop.Status = domain.StopStatusInProgress
	if err := s.stopRepo.UpdateStopStatus(ctx, stop.ID, stop.Status); err != nil {
		return nil, err
	}
	return stop, nil
}

// PurchaseItem records a bought item with the price the driver actually
// paid. Actual cost replaces any estimate; the client reimburses it on
// completion.
func (s *StopService) PurchaseItem(ctx context.Context, itemID, driverID string, actualCost float64) (*domain.StopItem, error) {
	if itemID == "" {
		return nil, ErrInvalidItemID
	}
	if actualCost < 0 {
		return nil, ErrInvalidPrice
	}

	item, err := s.stopRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	stop, _, err := s.authorizedStop(ctx, item.StopID, driverID)
	if err != nil {
		return nil, err
	}
	if stop.Status != domain.StopStatusInProgress {
		return nil, ErrStopNotOpen
	}

	item.ActualCost = actualCost
	item.IsPurchased = true
	if err := s.stopRepo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CompleteStop closes a stop. A shopping stop cannot complete while any
// of its items is unpurchased; skipping items is an explicit client
// decision, not a driver shortcut.
func (s *StopService) CompleteStop(ctx context.Context, stopID, driverID string) (*domain.Stop, error) {
	stop, req, err := s.authorizedStop(ctx, stopID, driverID)
	if err != nil {
		return nil, err
	}
	if stop.Status != domain.StopStatusInProgress {
		return nil, ErrStopNotOpen
	}

	unpurchased, err := s.stopRepo.CountUnpurchased(ctx, stop.ID)
	if err != nil {
		return nil, err
	}
	if unpurchased > 0 {
		return nil, ErrItemsUnpurchased
	}

	stop.Status = domain.StopStatusCompleted
	if err := s.stopRepo.UpdateStopStatus(ctx, stop.ID, stop.Status); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "stop_completed", req)
	}
	return stop, nil
}

// SkipStop abandons a stop on the client's instruction. Items already
// purchased at the stop stay purchased and are still reimbursed.
func (s *StopService) SkipStop(ctx context.Context, stopID, clientID string) (*domain.Stop, error) {
	if stopID == "" {
		return nil, ErrInvalidStopID
	}
	if clientID == "" {
		return nil, ErrInvalidClientID
	}

	stop, err := s.stopRepo.GetStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.GetByID(ctx, stop.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, ErrNotRequestClient
	}
	if stop.Status == domain.StopStatusCompleted || stop.Status == domain.StopStatusSkipped {
		return nil, ErrStopNotOpen
	}

	stop.Status = domain.StopStatusSkipped
	if err := s.stopRepo.UpdateStopStatus(ctx, stop.ID, stop.Status); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "stop_skipped", req)
	}
	return stop, nil
}

// GrandTotal is the amount the client owes on a shopping mandadito:
// purchased item costs plus the agreed service price and the flat fee.
type GrandTotal struct {
	ItemsTotal   float64
	ServicePrice float64
	ServiceFee   float64
	Total        float64
}

// RequestTotal computes the running grand total for a request.
func (s *StopService) RequestTotal(ctx context.Context, requestID string) (*GrandTotal, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	itemsTotal, err := s.stopRepo.ItemsTotalForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	price := req.FinalPrice
	if price == 0 {
		price = req.EstimatedPrice
	}
	return &GrandTotal{
		ItemsTotal:   itemsTotal,
		ServicePrice: price,
		ServiceFee:   s.commercial.ServiceFee,
		Total:        itemsTotal + price + s.commercial.ServiceFee,
	}, nil
}

// authorizedStop loads a stop and checks the acting driver is assigned to
// its request and the request is underway.
func (s *StopService) authorizedStop(ctx context.Context, stopID, driverID string) (*domain.Stop, *domain.ServiceRequest, error) {
	if stopID == "" {
		return nil, nil, ErrInvalidStopID
	}
	if driverID == "" {
		return nil, nil, ErrInvalidDriverID
	}

	stop, err := s.stopRepo.GetStop(ctx, stopID)
	if err != nil {
		return nil, nil, err
	}
	req, err := s.requestRepo.GetByID(ctx, stop.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req.AssignedDriverID != driverID {
		return nil, nil, ErrNotAssignedDriver
	}
	if req.Status != domain.RequestStatusAssigned && req.Status != domain.RequestStatusInProgress {
		return nil, nil, ErrRequestNotInProgress
	}
	return stop, req, nil
}
