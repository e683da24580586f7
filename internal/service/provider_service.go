package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var defaultLanguages = []string{"English"}

type ProviderService struct {
	tx       Transactor
	repo     provider.Repository
	users    *UserService
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewProviderService(
	tx Transactor,
	repo provider.Repository,
	users *UserService,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *ProviderService {
	return &ProviderService{
		tx:       tx,
		repo:     repo,
		users:    users,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
	}
}

// Register creates the user account (role provider) and its provider
// profile in one transaction.
func (s *ProviderService) Register(ctx context.Context, cmd *provider.RegisterProviderCommand) (*provider.Provider, error) {
	if err := validateProviderProfile(&cmd.Profile); err != nil {
		return nil, err
	}

	var (
		u *domain.User
		p *provider.Provider
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureLicenseFree(ctx, cmd.LicenseNumber); err != nil {
			return err
		}

		var err error
		u, err = s.users.create(ctx, &domain.CreateUserCommand{
			Email:       cmd.Email,
			Password:    cmd.Password,
			FirstName:   cmd.FirstName,
			LastName:    cmd.LastName,
			PhoneNumber: cmd.PhoneNumber,
			Role:        domain.RoleProvider,
		})
		if err != nil {
			return err
		}

		p = newProvider(u.ID, &cmd.Profile)
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.users.recordCreated(ctx, u)
	s.recordCreated(ctx, p)
	return p, nil
}

// Create attaches a provider profile to an existing user.
func (s *ProviderService) Create(ctx context.Context, cmd *provider.CreateProviderCommand) (*provider.Provider, error) {
	if err := validateProviderProfile(&cmd.Profile); err != nil {
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
		return nil, provider.ErrProviderAlreadyExists
	}

	if err := s.ensureLicenseFree(ctx, cmd.LicenseNumber); err != nil {
		return nil, err
	}

	p := newProvider(cmd.UserID, &cmd.Profile)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.recordCreated(ctx, p)
	return p, nil
}

func (s *ProviderService) ensureLicenseFree(ctx context.Context, license string) error {
	taken, err := s.repo.LicenseExists(ctx, strings.TrimSpace(license))
	if err != nil {
		return fmt.Errorf("checking license uniqueness: %w", err)
	}
	if taken {
		return provider.ErrLicenseAlreadyExists
	}
	return nil
}

func (s *ProviderService) recordCreated(ctx context.Context, p *provider.Provider) {
	s.metrics.ProvidersCreatedTotal.Inc()
	s.auditSvc.Record(ctx, domain.ActionCreate, "provider", p.ID.String(), map[string]any{
		"user_id":        p.UserID,
		"license_number": p.LicenseNumber,
	})
	s.log.Info("provider created", zap.String("provider_id", p.ID.String()), zap.String("specialty", p.Specialty))
}

func (s *ProviderService) Get(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProviderService) GetByUserID(ctx context.Context, userID uuid.UUID) (*provider.Provider, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *ProviderService) GetByLicense(ctx context.Context, license string) (*provider.Provider, error) {
	return s.repo.GetByLicense(ctx, strings.TrimSpace(license))
}

func (s *ProviderService) Update(ctx context.Context, id uuid.UUID, cmd *provider.UpdateProviderCommand) (*provider.Provider, error) {
	if err := validateProviderUpdate(cmd); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.LicenseNumber != nil {
		license := strings.TrimSpace(*cmd.LicenseNumber)
		if license != p.LicenseNumber {
			if err := s.ensureLicenseFree(ctx, license); err != nil {
				return nil, err
			}
			p.LicenseNumber = license
		}
	}
	if cmd.YearsOfExperience != nil {
		if *cmd.YearsOfExperience < 0 {
			return nil, provider.ErrInvalidYearsOfExperience
		}
		years := *cmd.YearsOfExperience
		p.YearsOfExperience = &years
	}

	setString(&p.Specialty, cmd.Specialty)
	setString(&p.Credentials, cmd.Credentials)

	if cmd.AcceptingNewPatients != nil {
		p.AcceptingNewPatients = *cmd.AcceptingNewPatients
	}
	if cmd.LanguagesSpoken != nil {
		p.LanguagesSpoken = *cmd.LanguagesSpoken
		if len(p.LanguagesSpoken) == 0 {
			p.LanguagesSpoken = append([]string(nil), defaultLanguages...)
		}
	}
	if cmd.AcceptedInsurances != nil {
		p.AcceptedInsurances = *cmd.AcceptedInsurances
	}
	if cmd.Certifications != nil {
		p.Certifications = *cmd.Certifications
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, domain.ActionUpdate, "provider", p.ID.String(), cmd)
	return p, nil
}

func (s *ProviderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.auditSvc.Record(ctx, domain.ActionDelete, "provider", id.String(), nil)
	return nil
}

func (s *ProviderService) List(ctx context.Context, q *provider.ListProvidersQuery) (*provider.PagedProviders, error) {
	q.Specialty = strings.TrimSpace(q.Specialty)
	return s.repo.List(ctx, q)
}

func (s *ProviderService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func newProvider(userID uuid.UUID, pr *provider.Profile) *provider.Provider {
	languages := pr.LanguagesSpoken
	if len(languages) == 0 {
		languages = append([]string(nil), defaultLanguages...)
	}
	return &provider.Provider{
		UserID:               userID,
		Specialty:            strings.TrimSpace(pr.Specialty),
		LicenseNumber:        strings.TrimSpace(pr.LicenseNumber),
		Credentials:          strings.TrimSpace(pr.Credentials),
		YearsOfExperience:    pr.YearsOfExperience,
		AcceptingNewPatients: pr.AcceptingNewPatients,
		LanguagesSpoken:      languages,
		AcceptedInsurances:   orEmpty(pr.AcceptedInsurances),
		Certifications:       orEmpty(pr.Certifications),
	}
}

func validateProviderProfile(pr *provider.Profile) error {
	var errs []string
	if strings.TrimSpace(pr.Specialty) == "" {
		errs = append(errs, "specialty is required")
	}
	if strings.TrimSpace(pr.LicenseNumber) == "" {
		errs = append(errs, "license_number is required")
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	if pr.YearsOfExperience != nil && *pr.YearsOfExperience < 0 {
		return provider.ErrInvalidYearsOfExperience
	}
	return nil
}

// validateProviderUpdate keeps the fields required on create from being blanked.
func validateProviderUpdate(cmd *provider.UpdateProviderCommand) error {
	var errs []string
	if cmd.Specialty != nil && strings.TrimSpace(*cmd.Specialty) == "" {
		errs = append(errs, "specialty cannot be empty")
	}
	if cmd.LicenseNumber != nil && strings.TrimSpace(*cmd.LicenseNumber) == "" {
		errs = append(errs, "license_number cannot be empty")
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
