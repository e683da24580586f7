// Package postgres implements the domain repository ports on gorm.
package postgres

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Store owns the connection pool and runs units of work. Repositories built
// from the same Store join the transaction carried on the context.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Patients() *PatientRepository {
	return &PatientRepository{store: s}
}

func (s *Store) Providers() *ProviderRepository {
	return &ProviderRepository{store: s}
}

func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{store: s}
}

func (s *Store) AuditLogs() *AuditRepository {
	return &AuditRepository{store: s}
}
