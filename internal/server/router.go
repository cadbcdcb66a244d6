// Package server assembles the HTTP router: middleware chain, handler
// registration, and the operational endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"testhub/backend/internal/audit"
	audithandler "testhub/backend/internal/audit/handler"
	auditrepo "testhub/backend/internal/audit/repository"
	filemodulehandler "testhub/backend/internal/filemodule/handler"
	identityhandler "testhub/backend/internal/identity/handler"
	identityservice "testhub/backend/internal/identity/service"
	permissionhandler "testhub/backend/internal/permission/handler"
	permissionrepo "testhub/backend/internal/permission/repository"
	"testhub/backend/internal/security"
	"testhub/backend/internal/server/middleware"
	"testhub/backend/internal/session"
	userhandler "testhub/backend/internal/user/handler"

	filemoduleservice "testhub/backend/internal/filemodule/service"
)

// publicPaths bypass bearer auth entirely: they are how a client obtains
// tokens in the first place.
var publicPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
	"/api/auth/refresh":  true,
}

// authSurface additionally skips the ProjectId header and the permission
// check: logout carries identity but is not project-scoped.
var authSurface = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
	"/api/auth/refresh":  true,
	"/api/auth/logout":   true,
}

// Deps holds the wired components the router serves.
type Deps struct {
	Auth           *identityservice.AuthService
	Modules        *filemoduleservice.Service
	PermissionRepo permissionrepo.Repository
	Checker        middleware.PermissionChecker
	Tokens         *security.TokenProvider
	Sessions       session.Store
	Auditor        audit.EventLogger
	AuditRepo      auditrepo.Repository
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
	Log            *zap.Logger
	// HealthPinger reports backing-store readiness for /healthz (e.g. *sql.DB).
	HealthPinger Pinger
}

// NewRouter builds the full router. The middleware order is fixed: recovery
// outermost, then logging and metrics, the global timeout, bearer auth,
// ProjectId validation, and the permission check just before the handlers.
func NewRouter(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthHandler(deps.HealthPinger)).Methods(http.MethodGet)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(
		middleware.Timeout(deps.RequestTimeout),
		middleware.Auth(deps.Tokens, deps.Sessions, publicPaths, deps.Log),
		middleware.ProjectHeader(authSurface, deps.Log),
		middleware.Permission(deps.Checker, deps.Auditor, authSurface, deps.Log),
	)

	identityhandler.NewAuthHandler(deps.Auth, deps.Log).Register(api)
	filemodulehandler.NewModuleHandler(deps.Modules, deps.Log).Register(api)
	userhandler.NewUserHandler(deps.Auth, deps.Log).Register(api)
	permissionhandler.NewRoleHandler(deps.PermissionRepo, deps.Log).Register(api)
	audithandler.NewAuditHandler(deps.AuditRepo, deps.Log).Register(api)

	var handler http.Handler = r
	if deps.Registry != nil {
		handler = middleware.Metrics(middleware.NewHTTPMetrics(deps.Registry))(handler)
	}
	handler = middleware.RequestLog(deps.Log)(handler)
	handler = middleware.Recovery(deps.Log)(handler)
	return handler
}
