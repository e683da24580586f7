package postgres

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
)

type AuditRepository struct {
	store *Store
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.store.conn(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
