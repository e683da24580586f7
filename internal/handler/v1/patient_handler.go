package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PatientHandler struct {
	patients     PatientService
	appointments AppointmentService
	access       access
	log          *zap.Logger
}

func NewPatientHandler(patients PatientService, providers ProviderService, appointments AppointmentService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{
		patients:     patients,
		appointments: appointments,
		access:       access{patients: patients, providers: providers},
		log:          log,
	}
}

// Register is the public sign-up: user account plus patient profile.
func (h *PatientHandler) Register(c *gin.Context) {
	var req registerPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.patients.Register(c.Request.Context(), &patient.RegisterPatientCommand{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Profile:     req.toProfile(),
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.patients.Create(c.Request.Context(), &patient.CreatePatientCommand{
		UserID:  req.UserID,
		Profile: req.toProfile(),
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.access.checkPatient(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	p, err := h.patients.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.access.checkPatient(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	p, err := h.patients.Update(c.Request.Context(), id, req.toCommand())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.patients.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PatientHandler) List(c *gin.Context) {
	res, err := h.patients.List(c.Request.Context(), &patient.ListPatientsQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, paged(res.Patients, res.TotalCount, res.Page, res.PageSize, res.TotalPages))
}

func (h *PatientHandler) Appointments(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.access.checkPatient(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	list, err := h.appointments.ListByPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, list)
}

func (h *PatientHandler) UpcomingAppointments(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.access.checkPatient(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	list, err := h.appointments.UpcomingForPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, list)
}
