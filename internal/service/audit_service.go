package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type AuditService struct {
	repo    AuditRepository
	cfg     config.AuditConfig
	metrics *metrics.Collector
	log     *zap.Logger

	mu      sync.RWMutex
	closed  bool
	entries chan *domain.AuditLog
	done    chan struct{}
}

func NewAuditService(repo AuditRepository, cfg config.AuditConfig, m *metrics.Collector, log *zap.Logger) *AuditService {
	svc := &AuditService{
		repo:    repo,
		cfg:     cfg,
		metrics: m,
		log:     log.Named("audit"),
		entries: make(chan *domain.AuditLog, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// Record enqueues an audit entry attributed to the actor on ctx. It never
// blocks: with the buffer full the entry is dropped and counted.
func (s *AuditService) Record(ctx context.Context, action domain.AuditAction, resourceType, resourceID string, changes any) {
	entry := &domain.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      "{}",
	}

	if actor, ok := domain.ActorFromContext(ctx); ok {
		if actor.UserID != uuid.Nil {
			uid := actor.UserID
			entry.UserID = &uid
			entry.UserRole = actor.Role
		}
		entry.IPAddress = actor.IPAddress
		entry.RequestID = actor.RequestID
	}

	if changes != nil {
		if raw, err := json.Marshal(changes); err == nil {
			entry.Changes = string(raw)
		} else {
			s.log.Warn("audit changes not serializable", zap.Error(err))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn("audit service closed, dropping entry", zap.String("resource", resourceType))
		return
	}

	select {
	case s.entries <- entry:
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(action)),
			zap.String("resource", resourceType),
		)
	}
}

// Shutdown stops accepting entries and waits for the worker to drain the
// buffer, up to the configured timeout.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.log.Warn("audit service shutdown timed out; some entries may be lost",
			zap.Int("pending", len(s.entries)))
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
