package inventory

import (
	"errors"
	"fmt"
)

// Business-rule failures are returned as typed errors so the API layer can
// map them to status codes instead of treating them as opaque faults.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNoInventory       = errors.New("no more tickets available for this type")
	ErrNoTicketsToCancel = errors.New("no tickets found to cancel")
	ErrInsufficientStock = errors.New("insufficient available tickets")
	ErrConflict          = errors.New("allocation conflict, retries exhausted")
)

// LimitExceededError is returned when a booking asks for more tickets than
// the event's per-user-per-type limit allows.
type LimitExceededError struct {
	Limit int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("you can't book more than %d tickets of this type", e.Limit)
}
