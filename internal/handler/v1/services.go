package v1

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/google/uuid"
)

// The handler-side views of the service layer. *service.XService satisfies each.

type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
}

type UserService interface {
	Create(ctx context.Context, cmd *domain.CreateUserCommand) (*domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, id uuid.UUID, cmd *domain.UpdateUserCommand) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *domain.ListUsersQuery) (*domain.PagedUsers, error)
	Count(ctx context.Context) (int64, error)
}

type PatientService interface {
	Register(ctx context.Context, cmd *patient.RegisterPatientCommand) (*patient.Patient, error)
	Create(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error)
	Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error)
	Count(ctx context.Context) (int64, error)
}

type ProviderService interface {
	Register(ctx context.Context, cmd *provider.RegisterProviderCommand) (*provider.Provider, error)
	Create(ctx context.Context, cmd *provider.CreateProviderCommand) (*provider.Provider, error)
	Get(ctx context.Context, id uuid.UUID) (*provider.Provider, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*provider.Provider, error)
	GetByLicense(ctx context.Context, license string) (*provider.Provider, error)
	Update(ctx context.Context, id uuid.UUID, cmd *provider.UpdateProviderCommand) (*provider.Provider, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *provider.ListProvidersQuery) (*provider.PagedProviders, error)
	Count(ctx context.Context) (int64, error)
}

type AppointmentService interface {
	Create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	GetIncludingArchived(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, cmd *appointment.CancelAppointmentCommand) (*appointment.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error)
	ListArchived(ctx context.Context, page, pageSize int) (*appointment.PagedAppointments, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error)
	UpcomingForPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error)
	UpcomingForProvider(ctx context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error)
	ProviderSchedule(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]*appointment.Appointment, error)
	Count(ctx context.Context) (int64, error)
}
