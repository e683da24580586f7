package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	store *Store
}

func (r *ProviderRepository) active(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).Model(&provider.Provider{}).Where("record_state = ?", domain.RecordActive)
}

func translateProviderWrite(err error) error {
	name, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	if name == database.IndexProvidersUserID {
		return provider.ErrProviderAlreadyExists
	}
	// The license index is the only other unique constraint on the table.
	return provider.ErrLicenseAlreadyExists
}

func (r *ProviderRepository) Create(ctx context.Context, p *provider.Provider) error {
	if err := r.store.conn(ctx).Create(p).Error; err != nil {
		if derr := translateProviderWrite(err); derr != nil {
			return derr
		}
		return fmt.Errorf("inserting provider: %w", err)
	}
	return nil
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProviderRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*provider.Provider, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *ProviderRepository) GetByLicense(ctx context.Context, licenseNumber string) (*provider.Provider, error) {
	return r.first(ctx, "license_number = ?", strings.TrimSpace(licenseNumber))
}

func (r *ProviderRepository) first(ctx context.Context, cond string, arg any) (*provider.Provider, error) {
	var p provider.Provider
	if err := r.active(ctx).Where(cond, arg).First(&p).Error; err != nil {
		if notFound(err) {
			return nil, provider.ErrProviderNotFound
		}
		return nil, fmt.Errorf("fetching provider: %w", err)
	}
	return &p, nil
}

func (r *ProviderRepository) Save(ctx context.Context, p *provider.Provider) error {
	res := r.store.conn(ctx).Model(p).
		Where("record_state = ?", domain.RecordActive).
		Select("*").Omit("id", "created_at", "user_id").
		Updates(p)
	if res.Error != nil {
		if derr := translateProviderWrite(res.Error); derr != nil {
			return derr
		}
		return fmt.Errorf("updating provider: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return provider.ErrProviderNotFound
	}
	return nil
}

func (r *ProviderRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"record_state": domain.RecordArchived,
		"archived_at":  at,
	})
	if res.Error != nil {
		return fmt.Errorf("archiving provider: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return provider.ErrProviderNotFound
	}
	return nil
}

func (r *ProviderRepository) List(ctx context.Context, q *provider.ListProvidersQuery) (*provider.PagedProviders, error) {
	page := domain.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()

	base := r.active(ctx)
	if q.Specialty != "" {
		base = base.Where("specialty = ?", q.Specialty)
	}
	if q.AcceptingNewPatients != nil {
		base = base.Where("accepting_new_patients = ?", *q.AcceptingNewPatients)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting providers: %w", err)
	}

	providers := make([]*provider.Provider, 0, page.PageSize)
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}

	return &provider.PagedProviders{
		Providers:  providers,
		TotalCount: total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: domain.TotalPages(total, page.PageSize),
	}, nil
}

func (r *ProviderRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.exists(ctx, "user_id = ?", userID)
}

func (r *ProviderRepository) LicenseExists(ctx context.Context, licenseNumber string) (bool, error) {
	return r.exists(ctx, "license_number = ?", strings.TrimSpace(licenseNumber))
}

// exists looks at archived rows too; both unique indexes span every row.
func (r *ProviderRepository) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var n int64
	if err := r.store.conn(ctx).Model(&provider.Provider{}).Where(cond, arg).Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking provider: %w", err)
	}
	return n > 0, nil
}

func (r *ProviderRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.active(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting providers: %w", err)
	}
	return n, nil
}
