package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentHandler struct {
	appointments AppointmentService
	access       access
	log          *zap.Logger
}

func NewAppointmentHandler(patients PatientService, providers ProviderService, appointments AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		access:       access{patients: patients, providers: providers},
		log:          log,
	}
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.access.checkPatient(c, req.PatientID)
	if err == nil {
		err = h.access.checkProvider(c, req.ProviderID)
	}
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	a, err := h.appointments.Create(c.Request.Context(), req.toCommand())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, a)
}

// load fetches the appointment and applies the participant ownership check.
func (h *AppointmentHandler) load(c *gin.Context) (*appointment.Appointment, bool) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return nil, false
	}
	a, err := h.appointments.Get(c.Request.Context(), id)
	if err == nil {
		err = h.access.checkAppointment(c, a)
	}
	if err != nil {
		respondServiceError(c, h.log, err)
		return nil, false
	}
	return a, true
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	current, ok := h.load(c)
	if !ok {
		return
	}
	a, err := h.appointments.Update(c.Request.Context(), current.ID, req.toCommand())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.appointments.Delete(c.Request.Context(), a.ID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req cancelAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, ok := h.load(c)
	if !ok {
		return
	}
	updated, err := h.appointments.Cancel(c.Request.Context(), a.ID, &appointment.CancelAppointmentCommand{
		CanceledBy: req.CanceledBy,
		Reason:     req.Reason,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, updated)
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	h.transition(c, h.appointments.Confirm)
}

func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.appointments.Complete)
}

func (h *AppointmentHandler) NoShow(c *gin.Context) {
	h.transition(c, h.appointments.MarkNoShow)
}

func (h *AppointmentHandler) transition(c *gin.Context, apply func(context.Context, uuid.UUID) (*appointment.Appointment, error)) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	a, err := apply(c.Request.Context(), current.ID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, a)
}

// List filters by patient_id, provider_id, status and [date_from, date_to).
// Patients and providers only ever see their own appointments.
func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}

	var ok bool
	if q.PatientID, ok = parseQueryUUID(c, "patient_id"); !ok {
		return
	}
	if q.ProviderID, ok = parseQueryUUID(c, "provider_id"); !ok {
		return
	}
	if q.DateFrom, ok = parseQueryTime(c, "date_from"); !ok {
		return
	}
	if q.DateTo, ok = parseQueryTime(c, "date_to"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := appointment.AppointmentStatus(raw)
		q.Status = &status
	}

	own, isPatient, err := h.access.ownPatientID(c)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if isPatient {
		q.PatientID = &own
	}
	ownProvider, isProvider, err := h.access.ownProviderID(c)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if isProvider {
		q.ProviderID = &ownProvider
	}

	res, err := h.appointments.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, paged(res.Appointments, res.TotalCount, res.Page, res.PageSize, res.TotalPages))
}
