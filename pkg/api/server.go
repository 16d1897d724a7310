package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/middleware"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/orgs"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/reports"
	"github.com/relatoapp/relato/pkg/tenant"
)

// Deps carries everything the server needs. All fields are required except
// Hub and Limiter.
type Deps struct {
	Config  *config.Config
	Logger  *observability.Logger
	Metrics *observability.Metrics

	Tokens    *auth.TokenManager
	Users     auth.UserStore
	Orgs      orgs.Service
	OrgCache  *tenant.OrgCache
	PermCache *permissions.Cache
	Perms     *permissions.Service
	Notify    *notify.Service
	Auditor   audit.Logger
	Catalog   *equipment.Store
	Reports   *reports.Store

	Hub     http.Handler       // WebSocket endpoint; nil disables /ws
	Limiter middleware.Limiter // nil disables rate limiting
}

// wrappers are the middleware combinations routes pick from: authed means a
// valid session, scoped additionally pins the request to one tenant, and
// perm checks the permission matrix for the caller's access level.
type wrappers struct {
	authed httputil.Middleware
	scoped httputil.Middleware
	perm   func(permissions.Resource, permissions.Action, http.HandlerFunc) http.Handler
}

// Server is the assembled HTTP API.
type Server struct {
	deps   Deps
	router *mux.Router
}

// NewServer builds the router and registers every handler group.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Router returns the root handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	d := s.deps

	gate := auth.NewGate(d.Tokens, d.Users, d.OrgCache, d.Logger)
	resolver := tenant.NewResolver(d.OrgCache, d.Config.Server.BaseDomain, d.Metrics)

	base := httputil.Chain(
		httputil.RequestIDMiddleware(),
		httputil.LoggingMiddleware(d.Logger),
		httputil.RecoveryMiddleware(d.Logger),
		httputil.CORSMiddleware(d.Config.Server.CORSAllowedOrigins),
	)
	r := s.router
	r.Use(mux.MiddlewareFunc(base))
	if d.Metrics != nil {
		r.Use(mux.MiddlewareFunc(d.Metrics.HTTPMiddleware(routePattern)))
	}

	authed := httputil.Chain(gate.Middleware)
	if d.Limiter != nil {
		authed = httputil.Chain(gate.Middleware,
			middleware.RateLimit(d.Limiter, d.Config.RateLimit, d.Logger))
	}
	w := wrappers{
		authed: authed,
		scoped: httputil.Chain(authed, resolver.Middleware, tenant.RequireTenant),
		perm: func(resource permissions.Resource, action permissions.Action, h http.HandlerFunc) http.Handler {
			return permissions.Require(d.PermCache, resource, action)(h)
		},
	}

	// The handshake goes through the gate like any other request, so a
	// revoked account cannot keep a live channel on an old token.
	if d.Hub != nil {
		r.Handle("/ws", w.authed(d.Hub)).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/login", http.HandlerFunc((&AuthHandlers{deps: d}).login)).
		Methods("POST", "OPTIONS")

	(&OrgHandlers{deps: d}).RegisterRoutes(api, w)
	(&UserHandlers{deps: d}).RegisterRoutes(api, w)
	(&CatalogHandlers{deps: d}).RegisterRoutes(api, w)
	(&MachineHandlers{deps: d}).RegisterRoutes(api, w)
	(&ReportHandlers{deps: d}).RegisterRoutes(api, w)
	(&NotificationHandlers{deps: d}).RegisterRoutes(api, w)
	(&PermissionHandlers{deps: d}).RegisterRoutes(api, w)
	(&AuditHandlers{deps: d}).RegisterRoutes(api, w)
}

// routePattern labels request metrics with the mux route template instead
// of the raw path, keeping label cardinality bounded.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
