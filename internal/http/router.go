package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the HTTP layer needs. Zero-value optional fields
// disable their feature (no rate store, no CORS origins, no metrics).
type Deps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger

	Auth   handlers.AuthFlows
	Users  handlers.UserManager
	Authn  auth.Authenticator
	Checks map[string]handlers.Check
	// ShuttingDown flips readiness to 503 during graceful shutdown.
	ShuttingDown func() bool
	Prom         *observability.Prom
	Gatherer     prometheus.Gatherer

	RateStore   middlewares.RateStore
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
	MaxBody     int64
}

var (
	everyone   = []user.Role{user.RoleCustomer, user.RoleAdmin, user.RoleManagement}
	privileged = []user.Role{user.RoleAdmin, user.RoleManagement}
)

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.ServiceName == "" {
		d.ServiceName = "authhub"
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBody))
	r.Use(middlewares.RequireJSON())

	health := handlers.NewHealthHandler(d.Checks, d.ShuttingDown)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// anonymous auth calls are limited per IP; writes under /users hash
	// passwords too, so they are limited per caller
	limitByIP, limitByUser := noLimit, noLimit
	if d.RateStore != nil && d.RateLimit > 0 {
		rl := middlewares.NewRateLimiter(d.RateStore, d.RateLimit, d.RateWindow, d.Log)
		limitByIP = rl.Middleware(middlewares.KeyByIP)
		limitByUser = rl.Middleware(middlewares.KeyByUserOrIP)
	}

	authH := handlers.NewAuthHandler(d.Auth)
	authGroup := r.Group("/auth", limitByIP)
	authGroup.POST("/register", authH.Register)
	authGroup.POST("/login", authH.Login)

	mw := middlewares.NewAuthMiddleware(d.Authn)
	usersH := handlers.NewUsersHandler(d.Users)

	users := r.Group("/users", mw.RequireAuth())
	users.POST("", mw.RequireRoles(privileged...), limitByUser, usersH.Create)
	users.GET("", mw.RequireRoles(everyone...), usersH.List)

	// self routes only need a valid token
	users.GET("/me", usersH.Me)
	users.PATCH("/me", limitByUser, usersH.UpdateMe)
	users.DELETE("/me", limitByUser, usersH.DeleteMe)

	users.GET("/:id", mw.RequireRoles(everyone...), usersH.Get)

	return r
}

func noLimit(c *gin.Context) { c.Next() }
