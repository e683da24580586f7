package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	Save(ctx context.Context, u *domain.User) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, q *domain.ListUsersQuery) (*domain.PagedUsers, error)
	RecordLoginFailure(ctx context.Context, id uuid.UUID, lockAfter int, lockFor time.Duration) (bool, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

type UserService struct {
	repo     UserRepository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewUserService(repo UserRepository, auditSvc *AuditService, log *zap.Logger) *UserService {
	return &UserService{repo: repo, auditSvc: auditSvc, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Create(ctx context.Context, cmd *domain.CreateUserCommand) (*domain.User, error) {
	u, err := s.create(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.recordCreated(ctx, u)
	return u, nil
}

// create persists the user without auditing so register flows can audit
// only after their transaction commits.
func (s *UserService) create(ctx context.Context, cmd *domain.CreateUserCommand) (*domain.User, error) {
	if err := validateCreateUser(cmd); err != nil {
		return nil, err
	}

	email := normalizeEmail(cmd.Email)
	exists, err := s.repo.EmailExists(ctx, email, nil)
	if err != nil {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(cmd.FirstName),
		LastName:          strings.TrimSpace(cmd.LastName),
		PhoneNumber:       strings.TrimSpace(cmd.PhoneNumber),
		Role:              cmd.Role,
		IsActive:          true,
		PasswordChangedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) recordCreated(ctx context.Context, u *domain.User) {
	s.auditSvc.Record(ctx, domain.ActionCreate, "user", u.ID.String(), map[string]any{"role": u.Role})
	s.log.Info("user created", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, cmd *domain.UpdateUserCommand) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := map[string]any{}

	if cmd.Email != nil {
		email := normalizeEmail(*cmd.Email)
		if email != u.Email {
			exists, err := s.repo.EmailExists(ctx, email, &u.ID)
			if err != nil {
				return nil, fmt.Errorf("checking email uniqueness: %w", err)
			}
			if exists {
				return nil, domain.ErrEmailAlreadyExists
			}
			u.Email = email
			changed["email"] = email
		}
	}
	if cmd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*cmd.FirstName)
		changed["first_name"] = u.FirstName
	}
	if cmd.LastName != nil {
		u.LastName = strings.TrimSpace(*cmd.LastName)
		changed["last_name"] = u.LastName
	}
	if cmd.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*cmd.PhoneNumber)
		changed["phone_number"] = u.PhoneNumber
	}
	if cmd.IsActive != nil {
		u.IsActive = *cmd.IsActive
		changed["is_active"] = u.IsActive
	}
	if cmd.Password != nil {
		if err := auth.ValidatePassword(*cmd.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*cmd.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		u.PasswordChangedAt = time.Now().UTC()
		changed["password"] = "changed"
	}

	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, domain.ActionUpdate, "user", u.ID.String(), changed)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.auditSvc.Record(ctx, domain.ActionDelete, "user", id.String(), nil)
	return nil
}

func (s *UserService) List(ctx context.Context, q *domain.ListUsersQuery) (*domain.PagedUsers, error) {
	if q.Role != nil && !q.Role.IsValid() {
		return nil, domain.ErrInvalidRole
	}
	return s.repo.List(ctx, q)
}

func (s *UserService) ListByRole(ctx context.Context, role domain.Role, page, pageSize int) (*domain.PagedUsers, error) {
	return s.List(ctx, &domain.ListUsersQuery{Role: &role, Page: page, PageSize: pageSize})
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func validateCreateUser(cmd *domain.CreateUserCommand) error {
	if !cmd.Role.IsValid() {
		return domain.ErrInvalidRole
	}
	if err := auth.ValidatePassword(cmd.Password); err != nil {
		return err
	}

	var errs []string
	if normalizeEmail(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if strings.TrimSpace(cmd.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
