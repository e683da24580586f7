package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) active(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).Model(&domain.User{}).Where("record_state = ?", domain.RecordActive)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.store.conn(ctx).Create(u).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.active(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if notFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.active(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		if notFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	q := r.active(ctx).Where("lower(email) = ?", strings.ToLower(email))
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	res := r.store.conn(ctx).Model(u).
		Where("record_state = ?", domain.RecordActive).
		Select("*").Omit("id", "created_at").
		Updates(u)
	if res.Error != nil {
		if _, ok := uniqueViolation(res.Error); ok {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"record_state": domain.RecordArchived,
		"archived_at":  at,
		"is_active":    false,
	})
	if res.Error != nil {
		return fmt.Errorf("archiving user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, q *domain.ListUsersQuery) (*domain.PagedUsers, error) {
	page := domain.Page{Page: q.Page, PageSize: q.PageSize}.Normalize()

	base := r.active(ctx)
	if q.Role != nil {
		base = base.Where("role = ?", *q.Role)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	users := make([]*domain.User, 0, page.PageSize)
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return &domain.PagedUsers{
		Users:      users,
		TotalCount: total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: domain.TotalPages(total, page.PageSize),
	}, nil
}

// RecordLoginFailure bumps the failure counter and locks the account for
// lockFor once lockAfter consecutive failures are reached. The counter
// restarts when the lock is applied.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, lockAfter int, lockFor time.Duration) (bool, error) {
	until := time.Now().Add(lockFor).UTC()

	var u domain.User
	res := r.store.conn(ctx).Model(&u).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "locked_until"}}}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_count": gorm.Expr("CASE WHEN failed_login_count + 1 >= ? THEN 0 ELSE failed_login_count + 1 END", lockAfter),
			"locked_until":       gorm.Expr("CASE WHEN failed_login_count + 1 >= ? THEN ?::timestamptz ELSE locked_until END", lockAfter, until),
		})
	if res.Error != nil {
		return false, fmt.Errorf("recording login failure: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, domain.ErrUserNotFound
	}
	return u.IsLocked(), nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.store.conn(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      at,
	})
	if res.Error != nil {
		return fmt.Errorf("recording login success: %w", res.Error)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"password_hash":       hash,
		"password_changed_at": at,
	})
	if res.Error != nil {
		return fmt.Errorf("updating password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.active(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
