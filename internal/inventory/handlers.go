package inventory

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// EventHandler observes movement events. Implementations must not block.
type EventHandler interface {
	HandleMovementEvent(ctx context.Context, evt MovementEvent)
}

// RejectionReason maps a domain error onto a short label for metrics and logs.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSKU):
		return "unknown_sku"
	case errors.Is(err, ErrDeactivatedSKU):
		return "deactivated_sku"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrMovementNotFound), errors.Is(err, ErrInventoryNotFound):
		return "not_found"
	case errors.Is(err, ErrIncreaseNotAllowed):
		return "increase_not_allowed"
	case errors.Is(err, ErrAllocationConflict):
		return "allocation_conflict"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrSameLocation):
		return "same_location"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrEmptySubmission):
		return "empty_submission"
	case errors.Is(err, ErrLocationRequired):
		return "location_required"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return "duplicate_submission"
	default:
		return "internal"
	}
}
