package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PatientService struct {
	tx       Transactor
	repo     patient.Repository
	users    *UserService
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewPatientService(
	tx Transactor,
	repo patient.Repository,
	users *UserService,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *PatientService {
	return &PatientService{
		tx:       tx,
		repo:     repo,
		users:    users,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
	}
}

// Register creates the user account (role patient) and its patient profile
// in one transaction.
func (s *PatientService) Register(ctx context.Context, cmd *patient.RegisterPatientCommand) (*patient.Patient, error) {
	if err := validateProfile(&cmd.Profile); err != nil {
		return nil, err
	}

	var (
		u *domain.User
		p *patient.Patient
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.create(ctx, &domain.CreateUserCommand{
			Email:       cmd.Email,
			Password:    cmd.Password,
			FirstName:   cmd.FirstName,
			LastName:    cmd.LastName,
			PhoneNumber: cmd.PhoneNumber,
			Role:        domain.RolePatient,
		})
		if err != nil {
			return err
		}

		p = newPatient(u.ID, &cmd.Profile)
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.users.recordCreated(ctx, u)
	s.recordCreated(ctx, p)
	return p, nil
}

// Create attaches a patient profile to an existing user.
func (s *PatientService) Create(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error) {
	if err := validateProfile(&cmd.Profile); err != nil {
		return nil, err
	}

	if _, err := s.users.Get(ctx, cmd.UserID); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForUser(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("checking existing profile: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	p := newPatient(cmd.UserID, &cmd.Profile)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.recordCreated(ctx, p)
	return p, nil
}

func (s *PatientService) recordCreated(ctx context.Context, p *patient.Patient) {
	s.metrics.PatientsCreatedTotal.Inc()
	s.auditSvc.Record(ctx, domain.ActionCreate, "patient", p.ID.String(), map[string]any{"user_id": p.UserID})
	s.log.Info("patient created", zap.String("patient_id", p.ID.String()), zap.String("user_id", p.UserID.String()))
}

func (s *PatientService) Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PatientService) GetByUserID(ctx context.Context, userID uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *PatientService) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.DateOfBirth != nil {
		if err := validateDateOfBirth(*cmd.DateOfBirth); err != nil {
			return nil, err
		}
		p.DateOfBirth = *cmd.DateOfBirth
	}

	setString(&p.Gender, cmd.Gender)
	setString(&p.BloodType, cmd.BloodType)
	setString(&p.AddressLine1, cmd.AddressLine1)
	setString(&p.AddressLine2, cmd.AddressLine2)
	setString(&p.City, cmd.City)
	setString(&p.PostalCode, cmd.PostalCode)
	setString(&p.Country, cmd.Country)
	setString(&p.InsuranceProvider, cmd.InsuranceProvider)
	setString(&p.InsurancePolicyNumber, cmd.InsurancePolicyNumber)

	if cmd.Allergies != nil {
		p.Allergies = *cmd.Allergies
	}
	if cmd.ChronicConditions != nil {
		p.ChronicConditions = *cmd.ChronicConditions
	}
	if cmd.Medications != nil {
		p.Medications = *cmd.Medications
	}
	if cmd.EmergencyContact != nil {
		p.EmergencyContact = cmd.EmergencyContact
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, domain.ActionUpdate, "patient", p.ID.String(), cmd)
	return p, nil
}

func (s *PatientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.auditSvc.Record(ctx, domain.ActionDelete, "patient", id.String(), nil)
	return nil
}

func (s *PatientService) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	return s.repo.List(ctx, q)
}

func (s *PatientService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func newPatient(userID uuid.UUID, pr *patient.Profile) *patient.Patient {
	return &patient.Patient{
		UserID:            userID,
		DateOfBirth:       pr.DateOfBirth,
		Gender:            strings.TrimSpace(pr.Gender),
		BloodType:         strings.TrimSpace(pr.BloodType),
		Address:           pr.Address,
		Insurance:         pr.Insurance,
		Allergies:         orEmpty(pr.Allergies),
		ChronicConditions: orEmpty(pr.ChronicConditions),
		Medications:       orEmpty(pr.Medications),
		EmergencyContact:  pr.EmergencyContact,
	}
}

func validateProfile(pr *patient.Profile) error {
	return validateDateOfBirth(pr.DateOfBirth)
}

func validateDateOfBirth(dob time.Time) error {
	if dob.IsZero() {
		return patient.ErrDateOfBirthRequired
	}
	if dob.After(time.Now()) {
		return patient.ErrInvalidDateOfBirth
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// orEmpty stores absent lists as [] rather than JSON null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
