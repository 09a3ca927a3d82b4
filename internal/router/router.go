package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/handler/appointment"
	authhandler "github.com/medicura/medicura-api/internal/handler/auth"
	"github.com/medicura/medicura-api/internal/handler/billing"
	"github.com/medicura/medicura-api/internal/handler/dashboard"
	"github.com/medicura/medicura-api/internal/handler/inventory"
	onboardinghandler "github.com/medicura/medicura-api/internal/handler/onboarding"
	"github.com/medicura/medicura-api/internal/handler/prescription"
	userhandler "github.com/medicura/medicura-api/internal/handler/user"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
)

// Handlers bundles the route surfaces mounted by the router.
type Handlers struct {
	Auth          *authhandler.Handler
	Onboarding    *onboardinghandler.Handler
	Dashboard     *dashboard.Handler
	Appointments  *appointment.Handler
	Prescriptions *prescription.Handler
	Inventory     *inventory.Handler
	Billing       *billing.Handler
	Users         *userhandler.Handler
	Base          *handler.Handler
}

type Config struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	CORS             middleware.CORSConfig
	MetricsPrefix    string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
	limiter  *middleware.RateLimiter
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, cfg Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  newRouterMetrics(cfg.MetricsPrefix),
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
		middleware.CORS(cfg.CORS),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
	)

	if cfg.RateLimitEnabled {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		})
		engine.Use(r.limiter.RateLimit())
	}

	return r
}

// Stop releases background resources held by the middleware chain.
func (r *Router) Stop() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	// Public surface plus the authenticated-but-unguarded onboarding flow.
	r.handlers.Auth.RegisterRoutes(api)
	r.handlers.Onboarding.RegisterRoutes(api)

	// Each dashboard lives under its role path; the guard on the group makes
	// every route inside require that exact role.
	patient := r.roleGroup(api, model.RolePatient)
	{
		patient.GET("/dashboard", r.handlers.Dashboard.Patient)
		r.handlers.Onboarding.RegisterProfileRoutes(patient)
		r.handlers.Appointments.RegisterPatientRoutes(patient)
		r.handlers.Prescriptions.RegisterPatientRoutes(patient)
		r.handlers.Billing.RegisterPatientRoutes(patient)
	}

	doctor := r.roleGroup(api, model.RoleDoctor)
	{
		doctor.GET("/dashboard", r.handlers.Dashboard.Doctor)
		r.handlers.Onboarding.RegisterProfileRoutes(doctor)
		r.handlers.Appointments.RegisterDoctorRoutes(doctor)
		r.handlers.Prescriptions.RegisterDoctorRoutes(doctor)
	}

	pharmacist := r.roleGroup(api, model.RolePharmacist)
	{
		pharmacist.GET("/dashboard", r.handlers.Dashboard.Pharmacist)
		r.handlers.Onboarding.RegisterProfileRoutes(pharmacist)
		r.handlers.Prescriptions.RegisterPharmacistRoutes(pharmacist)
		r.handlers.Inventory.RegisterPharmacistRoutes(pharmacist)
	}

	receptionist := r.roleGroup(api, model.RoleReceptionist)
	{
		receptionist.GET("/dashboard", r.handlers.Dashboard.Receptionist)
		r.handlers.Onboarding.RegisterProfileRoutes(receptionist)
		r.handlers.Appointments.RegisterReceptionistRoutes(receptionist)
		r.handlers.Billing.RegisterReceptionistRoutes(receptionist)
	}

	admin := r.roleGroup(api, model.RoleAdmin)
	{
		admin.GET("/dashboard", r.handlers.Dashboard.Admin)
		r.handlers.Users.RegisterAdminRoutes(admin)
	}
}

func (r *Router) roleGroup(api *gin.RouterGroup, role model.Role) *gin.RouterGroup {
	grp := api.Group("/"+string(role), r.auth.Authenticate(), r.auth.RequireRole(role))
	return grp
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.handlers.Base.LivenessCheck)
		health.GET("/ready", r.handlers.Base.ReadinessCheck)
	}
	rg.GET("/metrics", r.handlers.Base.MetricsHandler)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func newRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
