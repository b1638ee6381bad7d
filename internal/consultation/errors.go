package consultation

import (
	"errors"
	"fmt"

	"telemed-server/internal/models"
)

var (
	// ErrInvalidRequest rejects a malformed submission or command payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned when a consultation (or doctor) id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrSlotUnavailable means the slot is booked, locked by another actor,
	// or not part of the doctor's template for that date.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrInvalidTransition means the command is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMalformedTimeSlot means a date or slot label could not be parsed.
	ErrMalformedTimeSlot = errors.New("malformed time slot")
	// ErrConflict means another server instance changed the record after it
	// was read. Retrying the command reads the committed state.
	ErrConflict = errors.New("consultation changed concurrently")
)

// TransitionError carries the state a rejected command was attempted from.
type TransitionError struct {
	ID         string
	From       models.ConsultationStatus
	Transition string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s consultation %s in status %q", e.Transition, e.ID, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
