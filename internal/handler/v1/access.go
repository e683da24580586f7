package v1

import (
	"errors"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// access narrows what patient and provider callers may touch. Admins pass
// every check. Patients and providers are limited to their own profile and
// the appointments they take part in.
type access struct {
	patients  PatientService
	providers ProviderService
}

// ownPatientID returns the caller's patient id when the caller is a patient.
func (a access) ownPatientID(c *gin.Context) (uuid.UUID, bool, error) {
	cl := caller(c)
	if cl == nil || cl.Role != domain.RolePatient {
		return uuid.Nil, false, nil
	}
	p, err := a.patients.GetByUserID(c.Request.Context(), cl.UserID)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return uuid.Nil, true, service.ErrForbidden
		}
		return uuid.Nil, true, err
	}
	return p.ID, true, nil
}

func (a access) checkPatient(c *gin.Context, patientID uuid.UUID) error {
	own, isPatient, err := a.ownPatientID(c)
	if err != nil || !isPatient {
		return err
	}
	if own != patientID {
		return service.ErrForbidden
	}
	return nil
}

// ownProviderID returns the caller's provider id when the caller is a provider.
func (a access) ownProviderID(c *gin.Context) (uuid.UUID, bool, error) {
	cl := caller(c)
	if cl == nil || cl.Role != domain.RoleProvider {
		return uuid.Nil, false, nil
	}
	p, err := a.providers.GetByUserID(c.Request.Context(), cl.UserID)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotFound) {
			return uuid.Nil, true, service.ErrForbidden
		}
		return uuid.Nil, true, err
	}
	return p.ID, true, nil
}

func (a access) checkProvider(c *gin.Context, providerID uuid.UUID) error {
	own, isProvider, err := a.ownProviderID(c)
	if err != nil || !isProvider {
		return err
	}
	if own != providerID {
		return service.ErrForbidden
	}
	return nil
}

// checkAppointment limits patients and providers to appointments they take part in.
func (a access) checkAppointment(c *gin.Context, appt *appointment.Appointment) error {
	if err := a.checkPatient(c, appt.PatientID); err != nil {
		return err
	}
	return a.checkProvider(c, appt.ProviderID)
}
