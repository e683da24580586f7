package v1

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/carepoint/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Auth         AuthService
	Users        UserService
	Patients     PatientService
	Providers    ProviderService
	Appointments AppointmentService

	Authenticator middleware.Authenticator
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer
	Ping          func(ctx context.Context) error

	// RateLimiter guards every route; AuthRateLimiter additionally guards
	// login, refresh and registration. Either may be nil.
	RateLimiter     *middleware.RateLimiter
	AuthRateLimiter *middleware.RateLimiter

	CORS    config.CORSConfig
	Version string
	Log     *zap.Logger
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	}
	if slices.Contains(cfg.AllowedOrigins, "*") {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(cc)
}

func NewRouter(d RouterDeps) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, fmt.Errorf("registering validators: %w", err)
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.AccessLog(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.SecurityHeaders(),
	)
	if len(d.CORS.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(d.CORS))
	}
	if d.RateLimiter != nil {
		r.Use(middleware.RateLimit(d.RateLimiter, d.Metrics))
	}

	health := NewHealthHandler(d.Ping, d.Version, d.Log)
	r.GET("/health", health.Health)
	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))

	authH := NewAuthHandler(d.Auth, d.Log)
	userH := NewUserHandler(d.Users, d.Log)
	patientH := NewPatientHandler(d.Patients, d.Providers, d.Appointments, d.Log)
	providerH := NewProviderHandler(d.Patients, d.Providers, d.Appointments, d.Log)
	apptH := NewAppointmentHandler(d.Patients, d.Providers, d.Appointments, d.Log)
	adminH := NewAdminHandler(d.Users, d.Patients, d.Providers, d.Appointments, d.Log)

	api := r.Group("/api/v1")

	public := api.Group("")
	if d.AuthRateLimiter != nil {
		public.Use(middleware.RateLimit(d.AuthRateLimiter, d.Metrics))
	}
	public.POST("/auth/login", authH.Login)
	public.POST("/auth/refresh", authH.Refresh)
	public.POST("/patients/register", patientH.Register)
	public.POST("/providers/register", providerH.Register)

	authed := api.Group("", middleware.RequireAuth(d.Authenticator))

	admin := middleware.RequireRole(domain.RoleAdmin)
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleProvider)
	adminOrPatient := middleware.RequireRole(domain.RoleAdmin, domain.RolePatient)

	authed.GET("/auth/me", authH.Me)
	authed.POST("/auth/password", authH.ChangePassword)

	users := authed.Group("/users", admin)
	users.GET("", userH.List)
	users.POST("", userH.Create)
	users.GET("/:id", userH.Get)
	users.PATCH("/:id", userH.Update)
	users.DELETE("/:id", userH.Delete)

	patients := authed.Group("/patients")
	patients.GET("", staff, patientH.List)
	patients.POST("", admin, patientH.Create)
	patients.GET("/:id", patientH.Get)
	patients.PATCH("/:id", adminOrPatient, patientH.Update)
	patients.DELETE("/:id", admin, patientH.Delete)
	patients.GET("/:id/appointments", patientH.Appointments)
	patients.GET("/:id/appointments/upcoming", patientH.UpcomingAppointments)

	providers := authed.Group("/providers")
	providers.GET("", providerH.List)
	providers.POST("", admin, providerH.Create)
	providers.GET("/license/:license", providerH.GetByLicense)
	providers.GET("/:id", providerH.Get)
	providers.PATCH("/:id", staff, providerH.Update)
	providers.DELETE("/:id", admin, providerH.Delete)
	providers.GET("/:id/appointments", staff, providerH.Appointments)
	providers.GET("/:id/appointments/upcoming", staff, providerH.UpcomingAppointments)
	providers.GET("/:id/schedule", providerH.Schedule)

	appts := authed.Group("/appointments")
	appts.GET("", apptH.List)
	appts.POST("", apptH.Create)
	appts.GET("/:id", apptH.Get)
	appts.PATCH("/:id", staff, apptH.Update)
	appts.DELETE("/:id", admin, apptH.Delete)
	appts.POST("/:id/cancel", apptH.Cancel)
	appts.POST("/:id/confirm", staff, apptH.Confirm)
	appts.POST("/:id/complete", staff, apptH.Complete)
	appts.POST("/:id/no-show", staff, apptH.NoShow)

	adm := authed.Group("/admin", admin)
	adm.GET("/appointments/archived", adminH.ArchivedAppointments)
	adm.GET("/appointments/:id", adminH.Appointment)
	adm.GET("/stats", adminH.Stats)

	return r, nil
}
