package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var nonBlockingStatuses = []appointment.AppointmentStatus{
	appointment.StatusCancelled,
	appointment.StatusNoShow,
}

var upcomingStatuses = []appointment.AppointmentStatus{
	appointment.StatusScheduled,
	appointment.StatusConfirmed,
}

type AppointmentRepository struct {
	store *Store
}

func (r *AppointmentRepository) active(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).Model(&appointment.Appointment{}).Where("record_state = ?", domain.RecordActive)
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.store.conn(ctx).Create(a).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return appointment.ErrAppointmentConflict
		}
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.first(r.active(ctx), id)
}

func (r *AppointmentRepository) GetByIDIncludingArchived(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.first(r.store.conn(ctx).Model(&appointment.Appointment{}), id)
}

func (r *AppointmentRepository) first(q *gorm.DB, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := q.Where("id = ?", id).First(&a).Error; err != nil {
		if notFound(err) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("fetching appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Save(ctx context.Context, a *appointment.Appointment) error {
	res := r.store.conn(ctx).Model(a).
		Where("record_state = ?", domain.RecordActive).
		Select("*").Omit("id", "created_at", "patient_id", "provider_id").
		Updates(a)
	if res.Error != nil {
		if _, ok := uniqueViolation(res.Error); ok {
			return appointment.ErrAppointmentConflict
		}
		return fmt.Errorf("updating appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"record_state": domain.RecordArchived,
		"archived_at":  at,
	})
	if res.Error != nil {
		return fmt.Errorf("archiving appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	base := r.active(ctx)
	if q.PatientID != nil {
		base = base.Where("patient_id = ?", *q.PatientID)
	}
	if q.ProviderID != nil {
		base = base.Where("provider_id = ?", *q.ProviderID)
	}
	if q.Status != nil {
		base = base.Where("status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		base = base.Where("appointment_datetime >= ?", appointment.NormalizeInstant(*q.DateFrom))
	}
	if q.DateTo != nil {
		base = base.Where("appointment_datetime < ?", appointment.NormalizeInstant(*q.DateTo))
	}
	return r.paged(base, q.Page, q.PageSize)
}

func (r *AppointmentRepository) ListArchived(ctx context.Context, page, pageSize int) (*appointment.PagedAppointments, error) {
	base := r.store.conn(ctx).Model(&appointment.Appointment{}).Where("record_state = ?", domain.RecordArchived)
	return r.paged(base, page, pageSize)
}

func (r *AppointmentRepository) paged(base *gorm.DB, pageNum, pageSize int) (*appointment.PagedAppointments, error) {
	page := domain.Page{Page: pageNum, PageSize: pageSize}.Normalize()

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	items := make([]*appointment.Appointment, 0, page.PageSize)
	err := base.Session(&gorm.Session{}).
		Order("appointment_datetime DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &appointment.PagedAppointments{
		Appointments: items,
		TotalCount:   total,
		Page:         page.Page,
		PageSize:     page.PageSize,
		TotalPages:   domain.TotalPages(total, page.PageSize),
	}, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	return r.find(r.active(ctx).Where("patient_id = ?", patientID).Order("appointment_datetime DESC"))
}

func (r *AppointmentRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error) {
	return r.find(r.active(ctx).Where("provider_id = ?", providerID).Order("appointment_datetime DESC"))
}

func (r *AppointmentRepository) Upcoming(ctx context.Context, q appointment.UpcomingQuery) ([]*appointment.Appointment, error) {
	base := r.active(ctx).
		Where("appointment_datetime >= ?", appointment.NormalizeInstant(q.From)).
		Where("status IN ?", upcomingStatuses)
	if q.PatientID != nil {
		base = base.Where("patient_id = ?", *q.PatientID)
	}
	if q.ProviderID != nil {
		base = base.Where("provider_id = ?", *q.ProviderID)
	}
	return r.find(base.Order("appointment_datetime ASC"))
}

func (r *AppointmentRepository) ProviderSchedule(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*appointment.Appointment, error) {
	return r.find(r.active(ctx).
		Where("provider_id = ?", providerID).
		Where("appointment_datetime >= ? AND appointment_datetime < ?",
			appointment.NormalizeInstant(start), appointment.NormalizeInstant(end)).
		Where("status NOT IN ?", nonBlockingStatuses).
		Order("appointment_datetime ASC"))
}

func (r *AppointmentRepository) find(q *gorm.DB) ([]*appointment.Appointment, error) {
	var items []*appointment.Appointment
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	return items, nil
}

func (r *AppointmentRepository) HasConflict(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.active(ctx).
		Where("provider_id = ?", providerID).
		Where("appointment_datetime = ?", appointment.NormalizeInstant(at)).
		Where("status NOT IN ?", nonBlockingStatuses)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking appointment conflict: %w", err)
	}
	return n > 0, nil
}

func (r *AppointmentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.active(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting appointments: %w", err)
	}
	return n, nil
}
