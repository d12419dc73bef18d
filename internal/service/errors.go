package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when a user lacks permission for an action
	ErrForbidden = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrStageMoveDenied is returned when a stage transition is rejected
	ErrStageMoveDenied = errors.New("stage move denied")

	// ErrLossReasonRequired is returned when a deal is moved to closed_lost
	// without a loss reason
	ErrLossReasonRequired = errors.New("loss reason required to close a deal as lost")

	// ErrDealAlreadyClosed is returned when closing a deal that already
	// reached a terminal stage
	ErrDealAlreadyClosed = errors.New("deal is already closed")

	// ErrCommissionsProcessed is returned when closing would duplicate an
	// already approved or paid closing commission
	ErrCommissionsProcessed = errors.New("deal already has a processed closing commission")

	// ErrInvalidTierSchedule is returned for overlapping or non-ascending
	// commission tiers
	ErrInvalidTierSchedule = errors.New("invalid commission tier schedule")

	// ErrRetainerFieldsRequired is returned when a retainer deal is missing
	// monthly value or contract duration
	ErrRetainerFieldsRequired = errors.New("retainer deals require monthly value and contract duration")

	// ErrInvalidStatusTransition is returned for illegal commission or
	// invoice status changes
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
