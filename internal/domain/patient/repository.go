package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on a duplicate user link.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves an active patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)

	// Save writes every mutable column of an existing patient.
	Save(ctx context.Context, p *Patient) error

	// Archive marks the patient as archived (retention requirement).
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error

	// List returns a paginated list of active patients.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// ExistsForUser checks whether the user already has a patient profile.
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)

	Count(ctx context.Context) (int64, error)
}
