package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func createCmd(patientID, providerID uuid.UUID, at time.Time) *appointment.CreateAppointmentCommand {
	return &appointment.CreateAppointmentCommand{
		PatientID:    patientID,
		ProviderID:   providerID,
		ScheduledAt:  at,
		DurationMins: 30,
	}
}

func TestAppointment_BookConfirmRevertScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour)

	first, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, first.Status)

	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	var conflict *appointment.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pr.ID, conflict.ProviderID)
	assert.True(t, conflict.At.Equal(appointment.NormalizeInstant(at)))

	updated, err := env.appointmentSvc.Update(ctx, first.ID, &appointment.UpdateAppointmentCommand{Status: ptr(appointment.StatusConfirmed)})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, updated.Status)

	_, err = env.appointmentSvc.Update(ctx, first.ID, &appointment.UpdateAppointmentCommand{Status: ptr(appointment.StatusScheduled)})
	var te *appointment.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, appointment.StatusConfirmed, te.From)
	assert.Equal(t, appointment.StatusScheduled, te.To)

	stored, err := env.appointmentSvc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, stored.Status)
}

func TestAppointment_ConflictRegardlessOfPatient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	other, err := env.patientSvc.Register(ctx, &patient.RegisterPatientCommand{
		Email: "other@example.test", Password: "other-pass", FirstName: "O", LastName: "P",
		Profile: patient.Profile{DateOfBirth: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	at := time.Now().Add(48 * time.Hour)
	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)

	_, err = env.appointmentSvc.Create(ctx, createCmd(other.ID, pr.ID, at))
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AppointmentConflicts))
}

func TestAppointment_OverlapAtDifferentInstantIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour)

	_, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)

	// Starts inside the first appointment's 30 minutes; only exact instants collide.
	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at.Add(10*time.Minute)))
	assert.NoError(t, err)
}

func TestAppointment_SubMicrosecondDifferenceStillConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	_, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)

	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at.Add(300*time.Nanosecond).In(time.FixedZone("X", 3600))))
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)
}

func TestAppointment_PastRejected(t *testing.T) {
	env := newTestEnv(t)
	p, pr := env.seedParticipants(t)

	_, err := env.appointmentSvc.Create(context.Background(), createCmd(p.ID, pr.ID, time.Now().Add(-time.Minute)))
	assert.ErrorIs(t, err, appointment.ErrScheduledInPast)
}

func TestAppointment_CreatePipelineOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	future := time.Now().Add(time.Hour)
	missing := uuid.New()

	// Past wins over a missing patient.
	_, err := env.appointmentSvc.Create(ctx, createCmd(missing, missing, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, appointment.ErrScheduledInPast)

	// Missing patient wins over a missing provider.
	_, err = env.appointmentSvc.Create(ctx, createCmd(missing, missing, future))
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, missing, future))
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)

	_, err = env.providerSvc.Update(ctx, pr.ID, &provider.UpdateProviderCommand{AcceptingNewPatients: ptr(false)})
	require.NoError(t, err)
	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, future))
	assert.ErrorIs(t, err, provider.ErrNotAcceptingPatients)

	n, err := env.appointmentSvc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no failed create may write")
}

func TestAppointment_RequestShapeValidation(t *testing.T) {
	env := newTestEnv(t)
	p, pr := env.seedParticipants(t)

	cmd := createCmd(p.ID, pr.ID, time.Now().Add(time.Hour))
	cmd.DurationMins = 4
	_, err := env.appointmentSvc.Create(context.Background(), cmd)
	assert.ErrorIs(t, err, appointment.ErrInvalidDuration)

	cmd = createCmd(p.ID, pr.ID, time.Now().Add(time.Hour))
	cmd.Type = ptr(appointment.AppointmentType("house_call"))
	_, err = env.appointmentSvc.Create(context.Background(), cmd)
	assert.ErrorIs(t, err, appointment.ErrInvalidAppointmentType)
}

func TestAppointment_StorageConflictSurfacesAsConflictError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour)

	_, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)

	env.appointments.blindPrecheck = true
	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))

	var conflict *appointment.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pr.ID, conflict.ProviderID)
}

func TestAppointment_StorageConflictOnReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour)

	_, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)
	moving, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at.Add(time.Hour)))
	require.NoError(t, err)

	env.appointments.blindPrecheck = true
	_, err = env.appointmentSvc.Update(ctx, moving.ID, &appointment.UpdateAppointmentCommand{ScheduledAt: &at})

	var conflict *appointment.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, pr.ID, conflict.ProviderID)
	assert.True(t, conflict.At.Equal(appointment.NormalizeInstant(at)))
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AppointmentConflicts))

	stored, err := env.appointmentSvc.Get(ctx, moving.ID)
	require.NoError(t, err)
	assert.True(t, stored.ScheduledAt.Equal(moving.ScheduledAt), "rejected reschedule leaves the row untouched")
}

func TestAppointment_CancelledSlotCanBeRebooked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	at := time.Now().Add(24 * time.Hour)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	require.NoError(t, err)

	_, err = env.appointmentSvc.Cancel(ctx, a.ID, &appointment.CancelAppointmentCommand{CanceledBy: "patient", Reason: "sick"})
	require.NoError(t, err)

	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, at))
	assert.NoError(t, err)
}

func TestAppointment_CancelStoresRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	_, err = env.appointmentSvc.Confirm(ctx, a.ID)
	require.NoError(t, err)

	got, err := env.appointmentSvc.Cancel(ctx, a.ID, &appointment.CancelAppointmentCommand{CanceledBy: "provider", Reason: "emergency"})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, "provider", got.Cancellation.CanceledBy)
	assert.Equal(t, "emergency", got.Cancellation.Reason)

	_, err = env.appointmentSvc.Cancel(ctx, a.ID, &appointment.CancelAppointmentCommand{CanceledBy: "provider"})
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition)
}

func TestAppointment_CompleteAndNoShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = env.appointmentSvc.Complete(ctx, a.ID)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatusTransition, "scheduled cannot complete directly")

	_, err = env.appointmentSvc.Confirm(ctx, a.ID)
	require.NoError(t, err)
	done, err := env.appointmentSvc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, done.Status)

	b, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = env.appointmentSvc.Confirm(ctx, b.ID)
	require.NoError(t, err)
	ns, err := env.appointmentSvc.MarkNoShow(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusNoShow, ns.Status)
}

func TestAppointment_UpdateSameStatusIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	got, err := env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{
		Status: ptr(appointment.StatusScheduled),
		Notes:  ptr("bring lab results"),
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, got.Status)
	assert.Equal(t, "bring lab results", got.Notes)
}

func TestAppointment_Reschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	t1 := time.Now().Add(24 * time.Hour)
	t2 := t1.Add(time.Hour)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, t1))
	require.NoError(t, err)
	_, err = env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, t2))
	require.NoError(t, err)

	// Same instant: no conflict with itself.
	_, err = env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{ScheduledAt: ptr(t1)})
	require.NoError(t, err)

	_, err = env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{ScheduledAt: ptr(t2)})
	assert.ErrorIs(t, err, appointment.ErrAppointmentConflict)

	_, err = env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{ScheduledAt: ptr(time.Now().Add(-time.Hour))})
	assert.ErrorIs(t, err, appointment.ErrScheduledInPast)

	t3 := t2.Add(time.Hour)
	moved, err := env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{ScheduledAt: ptr(t3)})
	require.NoError(t, err)
	assert.True(t, moved.ScheduledAt.Equal(appointment.NormalizeInstant(t3)))
}

func TestAppointment_UpdateInvalidFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{Status: ptr(appointment.AppointmentStatus("pending"))})
	assert.ErrorIs(t, err, appointment.ErrInvalidStatus)

	_, err = env.appointmentSvc.Update(ctx, a.ID, &appointment.UpdateAppointmentCommand{DurationMins: ptr(500)})
	assert.ErrorIs(t, err, appointment.ErrInvalidDuration)

	_, err = env.appointmentSvc.Update(ctx, uuid.New(), &appointment.UpdateAppointmentCommand{})
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestAppointment_DeleteArchives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)

	a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, env.appointmentSvc.Delete(ctx, a.ID))

	_, err = env.appointmentSvc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)

	list, err := env.appointmentSvc.List(ctx, &appointment.ListAppointmentsQuery{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	archived, err := env.appointmentSvc.GetIncludingArchived(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	page, err := env.appointmentSvc.ListArchived(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Appointments, 1)
	assert.Equal(t, a.ID, page.Appointments[0].ID)

	assert.ErrorIs(t, env.appointmentSvc.Delete(ctx, a.ID), appointment.ErrAppointmentNotFound)
}

func TestAppointment_UpcomingAndSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, pr := env.seedParticipants(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	var ids []uuid.UUID
	for i := range 3 {
		a, err := env.appointmentSvc.Create(ctx, createCmd(p.ID, pr.ID, base.Add(time.Duration(2-i)*time.Hour)))
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	_, err := env.appointmentSvc.Cancel(ctx, ids[0], &appointment.CancelAppointmentCommand{CanceledBy: "patient"})
	require.NoError(t, err)

	up, err := env.appointmentSvc.UpcomingForPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.True(t, up[0].ScheduledAt.Before(up[1].ScheduledAt), "upcoming is ascending")

	byProvider, err := env.appointmentSvc.ListByProvider(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, byProvider, 3)
	assert.True(t, byProvider[0].ScheduledAt.After(byProvider[2].ScheduledAt), "history is newest first")

	sched, err := env.appointmentSvc.ProviderSchedule(ctx, pr.ID, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, sched, 2, "cancelled appointment and the exclusive end are left out")

	_, err = env.appointmentSvc.ProviderSchedule(ctx, pr.ID, base, base)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.appointmentSvc.UpcomingForProvider(ctx, uuid.New())
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}
