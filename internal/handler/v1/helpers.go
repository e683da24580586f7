package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// PagedResponse is the list envelope payload.
type PagedResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// errorStatus maps a service error to its HTTP status. Zero means unmapped.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, provider.ErrProviderNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, provider.ErrProviderAlreadyExists),
		errors.Is(err, provider.ErrLicenseAlreadyExists),
		errors.Is(err, appointment.ErrAppointmentConflict):
		return http.StatusConflict

	case errors.Is(err, appointment.ErrScheduledInPast),
		errors.Is(err, appointment.ErrInvalidDuration),
		errors.Is(err, appointment.ErrInvalidStatusTransition),
		errors.Is(err, appointment.ErrInvalidAppointmentType),
		errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, provider.ErrNotAcceptingPatients),
		errors.Is(err, provider.ErrInvalidYearsOfExperience),
		errors.Is(err, patient.ErrInvalidDateOfBirth),
		errors.Is(err, patient.ErrDateOfBirthRequired),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusTooManyRequests
	}
	return 0
}

func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch status := errorStatus(err); status {
	case 0:
		_ = c.Error(err)
		log.Error("unhandled service error",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})

	case http.StatusForbidden:
		c.JSON(status, ErrorResponse{Error: "access denied"})

	case http.StatusTooManyRequests:
		c.JSON(status, ErrorResponse{Error: "account temporarily locked", Code: "ACCOUNT_LOCKED"})

	default:
		c.JSON(status, ErrorResponse{Error: err.Error()})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// parseQueryUUID returns nil when the parameter is absent.
func parseQueryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key+": must be a valid UUID")
		return nil, false
	}
	return &id, true
}

// parseQueryTime accepts RFC 3339; nil when absent.
func parseQueryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key+": must be an RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}

func parseQueryBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key+": must be a boolean")
		return nil, false
	}
	return &v, true
}

func paged[T any](items []T, total int64, page, pageSize, totalPages int) PagedResponse[T] {
	if items == nil {
		items = []T{}
	}
	return PagedResponse[T]{Items: items, TotalCount: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// caller returns the authenticated claims; routes using it sit behind RequireAuth.
func caller(c *gin.Context) *domain.Claims {
	claims, _ := middleware.ClaimsFrom(c)
	return claims
}
