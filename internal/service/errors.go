package service

import "errors"

// Validation errors: bad input, rejected before any mutation.
var (
	// ErrInvalidClientID is returned when the client ID is empty.
	ErrInvalidClientID = errors.New("invalid client id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRequestID is returned when the request ID is empty.
	ErrInvalidRequestID = errors.New("invalid request id")

	// ErrInvalidOfferID is returned when the offer ID is empty.
	ErrInvalidOfferID = errors.New("invalid offer id")

	// ErrInvalidServiceType is returned for an unknown service type.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidMandaditoType is returned when a mandadito request carries
	// an unknown sub-type, or a non-mandadito request carries one at all.
	ErrInvalidMandaditoType = errors.New("invalid mandadito type")

	// ErrInvalidOrigin is returned when origin coordinates are out of range.
	ErrInvalidOrigin = errors.New("invalid origin location")

	// ErrInvalidDestination is returned when destination coordinates are out of range.
	ErrInvalidDestination = errors.New("invalid destination location")

	// ErrInvalidPrice is returned when a price is zero or negative.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidOfferType is returned for an unknown offer type.
	ErrInvalidOfferType = errors.New("invalid offer type")

	// ErrInvalidTrackingStep is returned for an unknown tracking step.
	ErrInvalidTrackingStep = errors.New("invalid tracking step")

	// ErrInvalidPin is returned when the submitted PIN is not a 4-digit number.
	ErrInvalidPin = errors.New("invalid pin format")

	// ErrInvalidLocation is returned when sample coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingReason is returned when a cancellation carries no reason.
	ErrMissingReason = errors.New("cancellation reason required")

	// ErrInvalidStopID is returned when the stop ID is empty.
	ErrInvalidStopID = errors.New("invalid stop id")

	// ErrInvalidItemID is returned when the stop item ID is empty.
	ErrInvalidItemID = errors.New("invalid item id")
)

// Precondition errors: a state-machine guard refused the transition.
// Nothing was mutated.
var (
	// ErrRequestExpired is returned when acting on a pending request whose
	// negotiation deadline has passed.
	ErrRequestExpired = errors.New("request expired")

	// ErrRequestNotExpired is returned when re-issuing a request that is
	// still inside its negotiation window.
	ErrRequestNotExpired = errors.New("request not expired")

	// ErrRequestClosed is returned when bidding on a request that is no
	// longer open for offers.
	ErrRequestClosed = errors.New("request not open for offers")

	// ErrRequestTerminal is returned when acting on a completed or
	// cancelled request.
	ErrRequestTerminal = errors.New("request already in a terminal state")

	// ErrRequestNotInProgress is returned when completing a request that
	// has not started its trip yet.
	ErrRequestNotInProgress = errors.New("request not in progress")

	// ErrRequestNotAssigned is returned when advancing a request that has
	// no assigned driver.
	ErrRequestNotAssigned = errors.New("request not assigned")

	// ErrStepNotMonotonic is returned when the tracking step would move
	// backwards or stand still.
	ErrStepNotMonotonic = errors.New("tracking step must advance")

	// ErrOfferNotPending is returned when accepting, countering, or
	// rejecting an offer that is not pending.
	ErrOfferNotPending = errors.New("offer not pending")

	// ErrOfferExpired is returned when acting on an expired offer.
	ErrOfferExpired = errors.New("offer expired")

	// ErrPinMismatch is returned when the submitted boarding PIN does not
	// match the one generated at assignment.
	ErrPinMismatch = errors.New("boarding pin mismatch")

	// ErrItemsUnpurchased is returned when completing a stop that still
	// has unpurchased items.
	ErrItemsUnpurchased = errors.New("stop has unpurchased items")

	// ErrStopNotOpen is returned when mutating a stop that is already
	// completed or skipped.
	ErrStopNotOpen = errors.New("stop already closed")

	// ErrPurchasedItemsExist is returned when a driver cancels after
	// shopping items were purchased.
	ErrPurchasedItemsExist = errors.New("cannot cancel after items were purchased")

	// ErrDriverTooClose is returned when a client cancels while the driver
	// is within the proximity threshold of the origin.
	ErrDriverTooClose = errors.New("driver is already near the pickup point")

	// ErrCancelWindowElapsed is returned when a client cancels after the
	// free-cancellation window has closed.
	ErrCancelWindowElapsed = errors.New("free cancellation window elapsed")
)

// Conflict errors: an optimistic-concurrency race was lost. The caller
// must refetch current state before retrying.
var (
	// ErrAcceptConflict is returned when another offer won the assignment
	// race for the same request.
	ErrAcceptConflict = errors.New("request was assigned concurrently")
)

// Authorization errors: the caller is not a party to the request.
var (
	// ErrNotRequestClient is returned when the caller is not the request's client.
	ErrNotRequestClient = errors.New("caller is not the request's client")

	// ErrNotAssignedDriver is returned when the caller is not the request's
	// assigned driver.
	ErrNotAssignedDriver = errors.New("caller is not the assigned driver")

	// ErrNotOfferOwner is returned when the caller does not own the offer.
	ErrNotOfferOwner = errors.New("caller does not own this offer")
)
