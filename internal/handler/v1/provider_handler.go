package v1

import (
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProviderHandler struct {
	providers    ProviderService
	appointments AppointmentService
	access       access
	log          *zap.Logger
}

func NewProviderHandler(patients PatientService, providers ProviderService, appointments AppointmentService, log *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		providers:    providers,
		appointments: appointments,
		access:       access{patients: patients, providers: providers},
		log:          log,
	}
}

func (h *ProviderHandler) Register(c *gin.Context) {
	var req registerProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.providers.Register(c.Request.Context(), &provider.RegisterProviderCommand{
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

func (h *ProviderHandler) Create(c *gin.Context) {
	var req createProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.providers.Create(c.Request.Context(), &provider.CreateProviderCommand{
		UserID:  req.UserID,
		Profile: req.toProfile(),
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, p)
}

func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.providers.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *ProviderHandler) GetByLicense(c *gin.Context) {
	license := strings.TrimSpace(c.Param("license"))
	if license == "" {
		respondError(c, http.StatusBadRequest, "license is required")
		return
	}
	p, err := h.providers.GetByLicense(c.Request.Context(), license)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *ProviderHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.access.checkProvider(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	p, err := h.providers.Update(c.Request.Context(), id, req.toCommand())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, p)
}

func (h *ProviderHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.providers.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProviderHandler) List(c *gin.Context) {
	accepting, ok := parseQueryBool(c, "accepting_new_patients")
	if !ok {
		return
	}
	res, err := h.providers.List(c.Request.Context(), &provider.ListProvidersQuery{
		Specialty:            c.Query("specialty"),
		AcceptingNewPatients: accepting,
		Page:                 parseQueryInt(c, "page", 1),
		PageSize:             parseQueryInt(c, "page_size", 20),
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, paged(res.Providers, res.TotalCount, res.Page, res.PageSize, res.TotalPages))
}

func (h *ProviderHandler) Appointments(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.access.checkProvider(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	list, err := h.appointments.ListByProvider(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, list)
}

func (h *ProviderHandler) UpcomingAppointments(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.access.checkProvider(c, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	list, err := h.appointments.UpcomingForProvider(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, list)
}

// Schedule lists the provider's booked slots in [start, end). Open to any
// authenticated caller so patients can pick a free instant.
func (h *ProviderHandler) Schedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	start, ok := parseQueryTime(c, "start")
	if !ok {
		return
	}
	end, ok := parseQueryTime(c, "end")
	if !ok {
		return
	}
	if start == nil || end == nil {
		respondError(c, http.StatusBadRequest, "start and end are required")
		return
	}
	list, err := h.appointments.ProviderSchedule(c.Request.Context(), id, *start, *end)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, list)
}
