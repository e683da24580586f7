package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerPatientCmd(email string, dob time.Time) *patient.RegisterPatientCommand {
	return &patient.RegisterPatientCommand{
		Email: email, Password: "patient-pass", FirstName: "Pat", LastName: "Ient",
		Profile: patient.Profile{DateOfBirth: dob},
	}
}

func TestPatient_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.patientSvc.Register(ctx, registerPatientCmd("pat@example.test", time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.NotNil(t, p.Allergies, "absent lists are stored empty")

	u, err := env.userSvc.Get(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, u.Role)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PatientsCreatedTotal))

	byUser, err := env.patientSvc.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byUser.ID)
}

func TestPatient_DateOfBirthRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.patientSvc.Register(ctx, registerPatientCmd("f@example.test", time.Now().Add(48*time.Hour)))
	assert.ErrorIs(t, err, patient.ErrInvalidDateOfBirth)

	_, err = env.patientSvc.Register(ctx, registerPatientCmd("z@example.test", time.Time{}))
	assert.ErrorIs(t, err, patient.ErrDateOfBirthRequired)

	n, err := env.userSvc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "failed registration leaves no user behind")
}

func TestPatient_CreateForExistingUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "later@example.test", "long-enough", domain.RolePatient)
	profile := patient.Profile{DateOfBirth: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)}

	_, err := env.patientSvc.Create(ctx, &patient.CreatePatientCommand{UserID: u.ID, Profile: profile})
	require.NoError(t, err)

	_, err = env.patientSvc.Create(ctx, &patient.CreatePatientCommand{UserID: u.ID, Profile: profile})
	assert.ErrorIs(t, err, patient.ErrPatientAlreadyExists)

	_, err = env.patientSvc.Create(ctx, &patient.CreatePatientCommand{UserID: uuid.New(), Profile: profile})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPatient_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p, err := env.patientSvc.Register(ctx, registerPatientCmd("pat@example.test", time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	city := " Pune "
	allergies := []patient.Allergy{{Name: "penicillin", Severity: "high"}}
	got, err := env.patientSvc.Update(ctx, p.ID, &patient.UpdatePatientCommand{City: &city, Allergies: &allergies})
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.City)
	assert.Equal(t, allergies, got.Allergies)

	future := time.Now().Add(time.Hour)
	_, err = env.patientSvc.Update(ctx, p.ID, &patient.UpdatePatientCommand{DateOfBirth: &future})
	assert.ErrorIs(t, err, patient.ErrInvalidDateOfBirth)

	require.NoError(t, env.patientSvc.Delete(ctx, p.ID))
	_, err = env.patientSvc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)

	list, err := env.patientSvc.List(ctx, &patient.ListPatientsQuery{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}
