package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentConflict     = errors.New("appointment time slot is already booked")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
	ErrScheduledInPast         = errors.New("cannot schedule appointment in the past")
	ErrInvalidDuration         = errors.New("appointment duration must be between 5 and 480 minutes")
	ErrInvalidAppointmentType  = errors.New("invalid appointment type")
	ErrInvalidStatus           = errors.New("invalid appointment status")
)

// ConflictError identifies the provider and instant that is already taken.
type ConflictError struct {
	ProviderID uuid.UUID
	At         time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("provider %s already has an appointment at %s", e.ProviderID, e.At.UTC().Format(time.RFC3339))
}

func (e *ConflictError) Unwrap() error {
	return ErrAppointmentConflict
}

type TransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
