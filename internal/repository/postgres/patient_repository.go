package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	store *Store
}

func (r *PatientRepository) active(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).Model(&patient.Patient{}).Where("record_state = ?", domain.RecordActive)
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.store.conn(ctx).Create(p).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.active(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if notFound(err) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.active(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if notFound(err) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("fetching patient by user: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	res := r.store.conn(ctx).Model(p).
		Where("record_state = ?", domain.RecordActive).
		Select("*").Omit("id", "created_at", "user_id").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("updating patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"record_state": domain.RecordArchived,
		"archived_at":  at,
	})
	if res.Error != nil {
		return fmt.Errorf("archiving patient: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	page := domain.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()
	base := r.active(ctx)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	patients := make([]*patient.Patient, 0, page.PageSize)
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}

	return &patient.PagedPatients{
		Patients:   patients,
		TotalCount: total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: domain.TotalPages(total, page.PageSize),
	}, nil
}

// ExistsForUser also sees archived profiles: the user link is unique across
// every row, archived or not.
func (r *PatientRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.store.conn(ctx).Model(&patient.Patient{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking patient profile: %w", err)
	}
	return n > 0, nil
}

func (r *PatientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.active(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting patients: %w", err)
	}
	return n, nil
}
