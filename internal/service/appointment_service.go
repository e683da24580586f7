package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/carepoint/internal/service")

type AppointmentService struct {
	repo         appointment.Repository
	patientRepo  patient.Repository
	providerRepo provider.Repository
	auditSvc     *AuditService
	metrics      *metrics.Collector
	log          *zap.Logger
	now          func() time.Time
}

func NewAppointmentService(
	repo appointment.Repository,
	patientRepo patient.Repository,
	providerRepo provider.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:         repo,
		patientRepo:  patientRepo,
		providerRepo: providerRepo,
		auditSvc:     auditSvc,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create books a new appointment. After the request shape is checked, the
// first failing step wins and nothing is written: past instant, patient,
// provider, provider acceptance, slot conflict.
func (s *AppointmentService) Create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (a *appointment.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Create", trace.WithAttributes(
		attribute.String("provider_id", cmd.ProviderID.String()),
		attribute.String("patient_id", cmd.PatientID.String()),
	))
	defer func() { endSpan(span, err) }()

	if !appointment.ValidDuration(cmd.DurationMins) {
		return nil, appointment.ErrInvalidDuration
	}
	if cmd.Type != nil && !cmd.Type.IsValid() {
		return nil, appointment.ErrInvalidAppointmentType
	}

	at := appointment.NormalizeInstant(cmd.ScheduledAt)
	if at.Before(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}

	if _, err := s.patientRepo.GetByID(ctx, cmd.PatientID); err != nil {
		return nil, err
	}

	pr, err := s.providerRepo.GetByID(ctx, cmd.ProviderID)
	if err != nil {
		return nil, err
	}
	if !pr.AcceptingNewPatients {
		return nil, provider.ErrNotAcceptingPatients
	}

	if err := s.ensureSlotFree(ctx, cmd.ProviderID, at, nil); err != nil {
		return nil, err
	}

	a = &appointment.Appointment{
		PatientID:      cmd.PatientID,
		ProviderID:     cmd.ProviderID,
		ScheduledAt:    at,
		DurationMins:   cmd.DurationMins,
		Status:         appointment.StatusScheduled,
		Type:           cmd.Type,
		ChiefComplaint: cmd.ChiefComplaint,
		Notes:          cmd.Notes,
		Symptoms:       orEmpty(cmd.Symptoms),
		Diagnoses:      []appointment.Diagnosis{},
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, s.translateWriteError(err, a.ProviderID, at)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.Record(ctx, domain.ActionCreate, "appointment", a.ID.String(), map[string]any{
		"provider_id":          a.ProviderID,
		"patient_id":           a.PatientID,
		"appointment_datetime": a.ScheduledAt,
	})
	s.log.Info("appointment scheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.String("provider_id", a.ProviderID.String()),
		zap.Time("at", a.ScheduledAt),
	)

	return a, nil
}

// ensureSlotFree fails with a *ConflictError if the provider already holds a
// slot-blocking appointment at exactly at.
func (s *AppointmentService) ensureSlotFree(ctx context.Context, providerID uuid.UUID, at time.Time, excludeID *uuid.UUID) error {
	taken, err := s.repo.HasConflict(ctx, providerID, at, excludeID)
	if err != nil {
		return fmt.Errorf("checking conflicts: %w", err)
	}
	if taken {
		s.metrics.AppointmentConflicts.Inc()
		return &appointment.ConflictError{ProviderID: providerID, At: at}
	}
	return nil
}

// translateWriteError maps the storage-level slot constraint to the same
// error the pre-check produces. A concurrent booking can pass the pre-check.
func (s *AppointmentService) translateWriteError(err error, providerID uuid.UUID, at time.Time) error {
	if errors.Is(err, appointment.ErrAppointmentConflict) {
		s.metrics.AppointmentConflicts.Inc()
		s.log.Warn("slot taken by concurrent booking",
			zap.String("provider_id", providerID.String()),
			zap.Time("at", at),
		)
		return &appointment.ConflictError{ProviderID: providerID, At: at}
	}
	return err
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// GetIncludingArchived is the administrative lookup.
func (s *AppointmentService) GetIncludingArchived(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.repo.GetByIDIncludingArchived(ctx, id)
}

// Update applies a partial change. A status equal to the current one is not
// a transition and is ignored. A new instant is checked against the past and
// against the provider's other appointments.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand) (a *appointment.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Update", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	a, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := map[string]any{}
	statusChanged := false

	if cmd.Status != nil && *cmd.Status != a.Status {
		if !cmd.Status.IsValid() {
			return nil, appointment.ErrInvalidStatus
		}
		from := a.Status
		if err := a.TransitionTo(*cmd.Status); err != nil {
			return nil, err
		}
		statusChanged = true
		changed["status"] = map[string]any{"from": from, "to": a.Status}
	}

	if cmd.ScheduledAt != nil {
		at := appointment.NormalizeInstant(*cmd.ScheduledAt)
		if at.Before(s.now()) {
			return nil, appointment.ErrScheduledInPast
		}
		if !at.Equal(a.ScheduledAt) {
			if err := s.ensureSlotFree(ctx, a.ProviderID, at, &a.ID); err != nil {
				return nil, err
			}
			a.ScheduledAt = at
			changed["appointment_datetime"] = at
		}
	}

	if cmd.DurationMins != nil {
		if !appointment.ValidDuration(*cmd.DurationMins) {
			return nil, appointment.ErrInvalidDuration
		}
		a.DurationMins = *cmd.DurationMins
		changed["duration"] = a.DurationMins
	}
	if cmd.Type != nil {
		if !cmd.Type.IsValid() {
			return nil, appointment.ErrInvalidAppointmentType
		}
		t := *cmd.Type
		a.Type = &t
		changed["type"] = t
	}
	if cmd.ChiefComplaint != nil {
		a.ChiefComplaint = *cmd.ChiefComplaint
		changed["chief_complaint"] = true
	}
	if cmd.Notes != nil {
		a.Notes = *cmd.Notes
		changed["notes"] = true
	}
	if cmd.Symptoms != nil {
		a.Symptoms = orEmpty(*cmd.Symptoms)
		changed["symptoms"] = true
	}
	if cmd.Diagnoses != nil {
		a.Diagnoses = orEmpty(*cmd.Diagnoses)
		changed["diagnosis"] = true
	}
	if cmd.Cancellation != nil {
		c := *cmd.Cancellation
		a.Cancellation = &c
		changed["canceled_by_and_why"] = c
	}

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, s.translateWriteError(err, a.ProviderID, a.ScheduledAt)
	}

	if statusChanged {
		s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	}
	s.auditSvc.Record(ctx, domain.ActionUpdate, "appointment", a.ID.String(), changed)

	return a, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, cmd *appointment.CancelAppointmentCommand) (*appointment.Appointment, error) {
	return s.transition(ctx, id, "cancel", func(a *appointment.Appointment) error {
		return a.Cancel(cmd.CanceledBy, cmd.Reason)
	})
}

func (s *AppointmentService) Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, "confirm", (*appointment.Appointment).Confirm)
}

func (s *AppointmentService) Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, "complete", (*appointment.Appointment).Complete)
}

func (s *AppointmentService) MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return s.transition(ctx, id, "no_show", (*appointment.Appointment).MarkNoShow)
}

func (s *AppointmentService) transition(ctx context.Context, id uuid.UUID, op string, apply func(*appointment.Appointment) error) (a *appointment.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Transition", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("op", op),
	))
	defer func() { endSpan(span, err) }()

	a, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := a.Status
	if err := apply(a); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, s.translateWriteError(err, a.ProviderID, a.ScheduledAt)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	changes := map[string]any{"status": map[string]any{"from": from, "to": a.Status}}
	if a.Cancellation != nil && a.Status == appointment.StatusCancelled {
		changes["canceled_by_and_why"] = a.Cancellation
	}
	s.auditSvc.Record(ctx, domain.ActionUpdate, "appointment", a.ID.String(), changes)

	return a, nil
}

// Delete archives the appointment; it stays reachable through the
// administrative queries.
func (s *AppointmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.auditSvc.Record(ctx, domain.ActionDelete, "appointment", id.String(), nil)
	return nil
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, appointment.ErrInvalidStatus
	}
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) ListArchived(ctx context.Context, page, pageSize int) (*appointment.PagedAppointments, error) {
	return s.repo.ListArchived(ctx, page, pageSize)
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *AppointmentService) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error) {
	if _, err := s.providerRepo.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.ListByProvider(ctx, providerID)
}

func (s *AppointmentService) UpcomingForPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.Upcoming(ctx, appointment.UpcomingQuery{PatientID: &patientID, From: s.now()})
}

func (s *AppointmentService) UpcomingForProvider(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error) {
	if _, err := s.providerRepo.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.Upcoming(ctx, appointment.UpcomingQuery{ProviderID: &providerID, From: s.now()})
}

// ProviderSchedule returns the provider's slot-blocking appointments in [start, end).
func (s *AppointmentService) ProviderSchedule(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*appointment.Appointment, error) {
	if !end.After(start) {
		return nil, &ValidationError{Fields: []string{"end must be after start"}}
	}
	if _, err := s.providerRepo.GetByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.ProviderSchedule(ctx, providerID, start, end)
}

func (s *AppointmentService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
