package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	users        UserService
	patients     PatientService
	providers    ProviderService
	appointments AppointmentService
	log          *zap.Logger
}

func NewAdminHandler(users UserService, patients PatientService, providers ProviderService, appointments AppointmentService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{users: users, patients: patients, providers: providers, appointments: appointments, log: log}
}

type statsResponse struct {
	Users        int64 `json:"users"`
	Patients     int64 `json:"patients"`
	Providers    int64 `json:"providers"`
	Appointments int64 `json:"appointments"`
}

func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		s   statsResponse
		err error
	)
	if s.Users, err = h.users.Count(ctx); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if s.Patients, err = h.patients.Count(ctx); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if s.Providers, err = h.providers.Count(ctx); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if s.Appointments, err = h.appointments.Count(ctx); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, s)
}

func (h *AdminHandler) ArchivedAppointments(c *gin.Context) {
	res, err := h.appointments.ListArchived(c.Request.Context(), parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, paged(res.Appointments, res.TotalCount, res.Page, res.PageSize, res.TotalPages))
}

// Appointment returns an appointment whether or not it is archived.
func (h *AdminHandler) Appointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.appointments.GetIncludingArchived(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, a)
}
