package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new provider. Returns ErrLicenseAlreadyExists or
	// ErrProviderAlreadyExists when a uniqueness constraint rejects the row.
	Create(ctx context.Context, p *Provider) error

	// GetByID retrieves an active provider. Returns ErrProviderNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	GetByUserID(ctx context.Context, userID uuid.UUID) (*Provider, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*Provider, error)

	Save(ctx context.Context, p *Provider) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error

	// List returns a paginated, filtered list of active providers.
	List(ctx context.Context, q *ListProvidersQuery) (*PagedProviders, error)

	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	LicenseExists(ctx context.Context, licenseNumber string) (bool, error)

	Count(ctx context.Context) (int64, error)
}
