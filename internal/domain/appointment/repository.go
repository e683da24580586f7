package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new appointment. Returns ErrAppointmentConflict when the
	// storage-level slot uniqueness constraint rejects the row.
	Create(ctx context.Context, a *Appointment) error

	// GetByID returns an active appointment. Returns ErrAppointmentNotFound otherwise.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// GetByIDIncludingArchived is the administrative lookup that also sees archived rows.
	GetByIDIncludingArchived(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Save writes every mutable column of an existing appointment.
	// Returns ErrAppointmentConflict on a slot uniqueness violation.
	Save(ctx context.Context, a *Appointment) error

	// Archive soft-deletes the appointment.
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error

	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)
	ListArchived(ctx context.Context, page, pageSize int) (*PagedAppointments, error)

	// ListByPatient and ListByProvider return newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Appointment, error)

	Upcoming(ctx context.Context, q UpcomingQuery) ([]*Appointment, error)

	// ProviderSchedule returns slot-blocking appointments in [start, end).
	ProviderSchedule(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*Appointment, error)

	// HasConflict reports whether the provider already holds a slot-blocking
	// appointment at exactly the given instant.
	HasConflict(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error)

	Count(ctx context.Context) (int64, error)
}
