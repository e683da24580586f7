package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// fakeTx runs fn inline without rollback.
type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func page[T any](items []T, pageNum, pageSize int) ([]T, domain.Page) {
	p := domain.Page{Page: pageNum, PageSize: pageSize}.Normalize()
	start := min(p.Offset(), len(items))
	end := min(start+p.PageSize, len(items))
	return items[start:end], p
}

// ---- users ----

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if !existing.IsArchived() && strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.RecordState = domain.RecordActive
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsArchived() {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if !u.IsArchived() && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) EmailExists(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return excludeID == nil || u.ID != *excludeID, nil
}

func (r *fakeUserRepo) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) Archive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsArchived() {
		return domain.ErrUserNotFound
	}
	u.Archive(at)
	u.IsActive = false
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, q *domain.ListUsersQuery) (*domain.PagedUsers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.User
	for _, u := range r.users {
		if u.IsArchived() || (q.Role != nil && u.Role != *q.Role) {
			continue
		}
		all = append(all, &u)
	}
	items, p := page(all, q.Page, q.PageSize)
	return &domain.PagedUsers{Users: items, TotalCount: int64(len(all)), Page: p.Page, PageSize: p.PageSize, TotalPages: domain.TotalPages(int64(len(all)), p.PageSize)}, nil
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, lockAfter int, lockFor time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedLoginCount++
	if u.FailedLoginCount >= lockAfter {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
		u.FailedLoginCount = 0
	}
	r.users[id] = u
	return u.IsLocked(), nil
}

func (r *fakeUserRepo) RecordLoginSuccess(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = at
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if !u.IsArchived() {
			n++
		}
	}
	return n, nil
}

// ---- patients ----

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]patient.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: map[uuid.UUID]patient.Patient{}}
}

func (r *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.UserID == p.UserID {
			return patient.ErrPatientAlreadyExists
		}
	}
	p.ID = uuid.New()
	p.RecordState = domain.RecordActive
	r.patients[p.ID] = *p
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.IsArchived() {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (r *fakePatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.UserID == userID && !p.IsArchived() {
			return &p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *fakePatientRepo) Save(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return patient.ErrPatientNotFound
	}
	r.patients[p.ID] = *p
	return nil
}

func (r *fakePatientRepo) Archive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.IsArchived() {
		return patient.ErrPatientNotFound
	}
	p.Archive(at)
	r.patients[id] = p
	return nil
}

func (r *fakePatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*patient.Patient
	for _, p := range r.patients {
		if !p.IsArchived() {
			all = append(all, &p)
		}
	}
	items, pg := page(all, q.Page, q.PageSize)
	return &patient.PagedPatients{Patients: items, TotalCount: int64(len(all)), Page: pg.Page, PageSize: pg.PageSize, TotalPages: domain.TotalPages(int64(len(all)), pg.PageSize)}, nil
}

func (r *fakePatientRepo) ExistsForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePatientRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.patients {
		if !p.IsArchived() {
			n++
		}
	}
	return n, nil
}

// ---- providers ----

type fakeProviderRepo struct {
	mu        sync.Mutex
	providers map[uuid.UUID]provider.Provider
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{providers: map[uuid.UUID]provider.Provider{}}
}

func (r *fakeProviderRepo) Create(_ context.Context, p *provider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if existing.UserID == p.UserID {
			return provider.ErrProviderAlreadyExists
		}
		if existing.LicenseNumber == p.LicenseNumber {
			return provider.ErrLicenseAlreadyExists
		}
	}
	p.ID = uuid.New()
	p.RecordState = domain.RecordActive
	r.providers[p.ID] = *p
	return nil
}

func (r *fakeProviderRepo) find(match func(provider.Provider) bool) (*provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if !p.IsArchived() && match(p) {
			return &p, nil
		}
	}
	return nil, provider.ErrProviderNotFound
}

func (r *fakeProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	return r.find(func(p provider.Provider) bool { return p.ID == id })
}

func (r *fakeProviderRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*provider.Provider, error) {
	return r.find(func(p provider.Provider) bool { return p.UserID == userID })
}

func (r *fakeProviderRepo) GetByLicense(_ context.Context, license string) (*provider.Provider, error) {
	return r.find(func(p provider.Provider) bool { return p.LicenseNumber == license })
}

func (r *fakeProviderRepo) Save(_ context.Context, p *provider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.ID]; !ok {
		return provider.ErrProviderNotFound
	}
	r.providers[p.ID] = *p
	return nil
}

func (r *fakeProviderRepo) Archive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok || p.IsArchived() {
		return provider.ErrProviderNotFound
	}
	p.Archive(at)
	r.providers[id] = p
	return nil
}

func (r *fakeProviderRepo) List(_ context.Context, q *provider.ListProvidersQuery) (*provider.PagedProviders, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*provider.Provider
	for _, p := range r.providers {
		if p.IsArchived() ||
			(q.Specialty != "" && p.Specialty != q.Specialty) ||
			(q.AcceptingNewPatients != nil && p.AcceptingNewPatients != *q.AcceptingNewPatients) {
			continue
		}
		all = append(all, &p)
	}
	items, pg := page(all, q.Page, q.PageSize)
	return &provider.PagedProviders{Providers: items, TotalCount: int64(len(all)), Page: pg.Page, PageSize: pg.PageSize, TotalPages: domain.TotalPages(int64(len(all)), pg.PageSize)}, nil
}

func (r *fakeProviderRepo) ExistsForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProviderRepo) LicenseExists(_ context.Context, license string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.LicenseNumber == license {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProviderRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.providers {
		if !p.IsArchived() {
			n++
		}
	}
	return n, nil
}

// ---- appointments ----

// fakeAppointmentRepo mirrors the partial unique index: Create and Save
// reject a second slot-blocking row for the same provider and instant.
// blindPrecheck makes HasConflict always answer false, standing in for a
// concurrent writer that slips between the pre-check and the insert.
type fakeAppointmentRepo struct {
	mu            sync.Mutex
	items         map[uuid.UUID]appointment.Appointment
	blindPrecheck bool
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: map[uuid.UUID]appointment.Appointment{}}
}

func (r *fakeAppointmentRepo) slotTaken(a *appointment.Appointment) bool {
	if !a.Status.BlocksSlot() {
		return false
	}
	for id, other := range r.items {
		if id != a.ID && !other.IsArchived() && other.Status.BlocksSlot() &&
			other.ProviderID == a.ProviderID && other.ScheduledAt.Equal(a.ScheduledAt) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotTaken(a) {
		return appointment.ErrAppointmentConflict
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.RecordState = domain.RecordActive
	r.items[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) get(id uuid.UUID, includeArchived bool) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || (a.IsArchived() && !includeArchived) {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.get(id, false)
}

func (r *fakeAppointmentRepo) GetByIDIncludingArchived(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.get(id, true)
}

func (r *fakeAppointmentRepo) Save(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[a.ID]
	if !ok || existing.IsArchived() {
		return appointment.ErrAppointmentNotFound
	}
	if r.slotTaken(a) {
		return appointment.ErrAppointmentConflict
	}
	r.items[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) Archive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.IsArchived() {
		return appointment.ErrAppointmentNotFound
	}
	a.Archive(at)
	r.items[id] = a
	return nil
}

func (r *fakeAppointmentRepo) filter(keep func(appointment.Appointment) bool, ascending bool) []*appointment.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.items {
		if keep(a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out
}

func (r *fakeAppointmentRepo) paged(all []*appointment.Appointment, pageNum, pageSize int) *appointment.PagedAppointments {
	items, pg := page(all, pageNum, pageSize)
	return &appointment.PagedAppointments{Appointments: items, TotalCount: int64(len(all)), Page: pg.Page, PageSize: pg.PageSize, TotalPages: domain.TotalPages(int64(len(all)), pg.PageSize)}
}

func (r *fakeAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	all := r.filter(func(a appointment.Appointment) bool {
		return !a.IsArchived() &&
			(q.PatientID == nil || a.PatientID == *q.PatientID) &&
			(q.ProviderID == nil || a.ProviderID == *q.ProviderID) &&
			(q.Status == nil || a.Status == *q.Status) &&
			(q.DateFrom == nil || !a.ScheduledAt.Before(*q.DateFrom)) &&
			(q.DateTo == nil || a.ScheduledAt.Before(*q.DateTo))
	}, false)
	return r.paged(all, q.Page, q.PageSize), nil
}

func (r *fakeAppointmentRepo) ListArchived(_ context.Context, pageNum, pageSize int) (*appointment.PagedAppointments, error) {
	all := r.filter(func(a appointment.Appointment) bool { return a.IsArchived() }, false)
	return r.paged(all, pageNum, pageSize), nil
}

func (r *fakeAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	return r.filter(func(a appointment.Appointment) bool { return !a.IsArchived() && a.PatientID == patientID }, false), nil
}

func (r *fakeAppointmentRepo) ListByProvider(_ context.Context, providerID uuid.UUID) ([]*appointment.Appointment, error) {
	return r.filter(func(a appointment.Appointment) bool { return !a.IsArchived() && a.ProviderID == providerID }, false), nil
}

func (r *fakeAppointmentRepo) Upcoming(_ context.Context, q appointment.UpcomingQuery) ([]*appointment.Appointment, error) {
	upcoming := []appointment.AppointmentStatus{appointment.StatusScheduled, appointment.StatusConfirmed}
	return r.filter(func(a appointment.Appointment) bool {
		return !a.IsArchived() && !a.ScheduledAt.Before(q.From) &&
			slices.Contains(upcoming, a.Status) &&
			(q.PatientID == nil || a.PatientID == *q.PatientID) &&
			(q.ProviderID == nil || a.ProviderID == *q.ProviderID)
	}, true), nil
}

func (r *fakeAppointmentRepo) ProviderSchedule(_ context.Context, providerID uuid.UUID, start, end time.Time) ([]*appointment.Appointment, error) {
	return r.filter(func(a appointment.Appointment) bool {
		return !a.IsArchived() && a.ProviderID == providerID && a.Status.BlocksSlot() &&
			!a.ScheduledAt.Before(start) && a.ScheduledAt.Before(end)
	}, true), nil
}

func (r *fakeAppointmentRepo) HasConflict(_ context.Context, providerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	if r.blindPrecheck {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.items {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if !a.IsArchived() && a.Status.BlocksSlot() && a.ProviderID == providerID && a.ScheduledAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.filter(func(a appointment.Appointment) bool { return !a.IsArchived() }, true))), nil
}

// ---- audit ----

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	block   chan struct{}
}

func (r *fakeAuditRepo) Create(_ context.Context, e *domain.AuditLog) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) snapshot() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.entries...)
}

// ---- wiring ----

type testEnv struct {
	users        *fakeUserRepo
	patients     *fakePatientRepo
	providers    *fakeProviderRepo
	appointments *fakeAppointmentRepo
	audit        *fakeAuditRepo
	metrics      *metrics.Collector

	auditSvc       *AuditService
	userSvc        *UserService
	authSvc        *AuthService
	patientSvc     *PatientService
	providerSvc    *ProviderService
	appointmentSvc *AppointmentService
}

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{BufferSize: 100, WriteTimeout: time.Second, ShutdownTimeout: 2 * time.Second}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zap.NewNop()
	env := &testEnv{
		users:        newFakeUserRepo(),
		patients:     newFakePatientRepo(),
		providers:    newFakeProviderRepo(),
		appointments: newFakeAppointmentRepo(),
		audit:        &fakeAuditRepo{},
		metrics:      metrics.NewCollector("test", prometheus.NewRegistry()),
	}

	env.auditSvc = NewAuditService(env.audit, testAuditConfig(), env.metrics, log)
	t.Cleanup(env.auditSvc.Shutdown)

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "carepoint-test",
	})

	env.userSvc = NewUserService(env.users, env.auditSvc, log)
	env.authSvc = NewAuthService(env.users, jwtManager, env.auditSvc, env.metrics, log)
	env.patientSvc = NewPatientService(fakeTx{}, env.patients, env.userSvc, env.auditSvc, env.metrics, log)
	env.providerSvc = NewProviderService(fakeTx{}, env.providers, env.userSvc, env.auditSvc, env.metrics, log)
	env.appointmentSvc = NewAppointmentService(env.appointments, env.patients, env.providers, env.auditSvc, env.metrics, log)

	return env
}

// seedParticipants registers one patient and one provider accepting patients.
func (e *testEnv) seedParticipants(t *testing.T) (*patient.Patient, *provider.Provider) {
	t.Helper()
	ctx := context.Background()

	p, err := e.patientSvc.Register(ctx, &patient.RegisterPatientCommand{
		Email:     uuid.NewString() + "@example.test",
		Password:  "patient-pass",
		FirstName: "Pat",
		LastName:  "Ient",
		Profile:   patient.Profile{DateOfBirth: time.Date(1985, 3, 4, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}

	pr, err := e.providerSvc.Register(ctx, &provider.RegisterProviderCommand{
		Email:     uuid.NewString() + "@example.test",
		Password:  "provider-pass",
		FirstName: "Doc",
		LastName:  "Tor",
		Profile: provider.Profile{
			Specialty:            "Cardiology",
			LicenseNumber:        "LIC-" + uuid.NewString()[:8],
			AcceptingNewPatients: true,
		},
	})
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}

	return p, pr
}
