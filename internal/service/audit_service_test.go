package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAudit_AttributesActor(t *testing.T) {
	repo := &fakeAuditRepo{}
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	svc := NewAuditService(repo, testAuditConfig(), m, zap.NewNop())

	actor := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin, IPAddress: "10.0.0.7", RequestID: "req-1"}
	ctx := domain.WithActor(context.Background(), actor)
	svc.Record(ctx, domain.ActionUpdate, "appointment", "abc", map[string]any{"status": "confirmed"})
	svc.Record(context.Background(), domain.ActionCreate, "user", "def", nil)
	svc.Shutdown()

	entries := repo.snapshot()
	require.Len(t, entries, 2)

	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, actor.UserID, *entries[0].UserID)
	assert.Equal(t, domain.RoleAdmin, entries[0].UserRole)
	assert.Equal(t, "10.0.0.7", entries[0].IPAddress)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.JSONEq(t, `{"status":"confirmed"}`, entries[0].Changes)

	assert.Nil(t, entries[1].UserID)
	assert.Equal(t, "{}", entries[1].Changes)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditEntriesTotal))
}

func TestAudit_FullBufferDrops(t *testing.T) {
	block := make(chan struct{})
	repo := &fakeAuditRepo{block: block}
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	cfg := testAuditConfig()
	cfg.BufferSize = 1
	svc := NewAuditService(repo, cfg, m, zap.NewNop())

	// The worker holds at most one entry and the buffer one more; the rest drop.
	for range 5 {
		svc.Record(context.Background(), domain.ActionRead, "patient", "x", nil)
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.AuditBufferDropped), 3.0)

	close(block)
	svc.Shutdown()
	assert.LessOrEqual(t, len(repo.snapshot()), 2)
}

func TestAudit_ShutdownIsIdempotent(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, testAuditConfig(), metrics.NewCollector("test", prometheus.NewRegistry()), zap.NewNop())

	svc.Record(context.Background(), domain.ActionLogin, "user", "u1", nil)
	svc.Shutdown()
	svc.Shutdown()

	// Entries after shutdown are ignored rather than panicking on a closed channel.
	svc.Record(context.Background(), domain.ActionLogin, "user", "u2", nil)
	assert.Len(t, repo.snapshot(), 1)
}

func TestAudit_ShutdownTimesOut(t *testing.T) {
	repo := &fakeAuditRepo{block: make(chan struct{})}
	cfg := testAuditConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond
	svc := NewAuditService(repo, cfg, metrics.NewCollector("test", prometheus.NewRegistry()), zap.NewNop())

	svc.Record(context.Background(), domain.ActionLogin, "user", "u1", nil)

	start := time.Now()
	svc.Shutdown()
	assert.Less(t, time.Since(start), time.Second)
	close(repo.block)
}
