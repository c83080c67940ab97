package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vessia-direct/api/internal/platform/auth"
	"github.com/vessia-direct/api/internal/platform/httpx"
)

const (
	defaultAPIPrefix      = "/api/v1"
	defaultRequestTimeout = 60 * time.Second
)

// RouteRegistrar mounts a handler group onto a chi sub-router.
type RouteRegistrar func(chi.Router)

type routerConfig struct {
	apiPrefix      string
	requestTimeout time.Duration

	authenticator *auth.Authenticator
	limiter       rateLimiter

	health      *HealthHandlers
	public      RouteRegistrar
	cart        RouteRegistrar
	orders      RouteRegistrar
	commissions RouteRegistrar
	payouts     RouteRegistrar
	admin       RouteRegistrar

	middlewares []func(http.Handler) http.Handler
}

// Option configures the router assembly.
type Option func(*routerConfig)

// WithAPIPrefix overrides the default /api/v1 mount point.
func WithAPIPrefix(prefix string) Option {
	return func(cfg *routerConfig) {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			return
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		cfg.apiPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithRequestTimeout overrides the per-request timeout middleware.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *routerConfig) {
		if d > 0 {
			cfg.requestTimeout = d
		}
	}
}

// WithAuthenticator wires the gateway token middleware. Without it the protected groups
// respond 501 so the surface stays discoverable in partial deployments.
func WithAuthenticator(a *auth.Authenticator) Option {
	return func(cfg *routerConfig) {
		cfg.authenticator = a
	}
}

// WithRateLimiter enables the in-memory request rate limiter.
func WithRateLimiter(limit int, window time.Duration) Option {
	return func(cfg *routerConfig) {
		cfg.limiter = newSimpleRateLimiter(limit, window, time.Now)
	}
}

// WithHealthHandlers mounts the health probe handlers.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithPublicRoutes mounts the unauthenticated storefront group.
func WithPublicRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = registrar
	}
}

// WithCartRoutes mounts the consultant cart group.
func WithCartRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.cart = registrar
	}
}

// WithOrderRoutes mounts the order lifecycle group.
func WithOrderRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.orders = registrar
	}
}

// WithCommissionRoutes mounts the commission read group.
func WithCommissionRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.commissions = registrar
	}
}

// WithPayoutRoutes mounts the payout group.
func WithPayoutRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.payouts = registrar
	}
}

// WithAdminRoutes mounts the back-office group.
func WithAdminRoutes(registrar RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.admin = registrar
	}
}

// WithMiddleware appends extra middleware to the root chain.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		for _, m := range mw {
			if m != nil {
				cfg.middlewares = append(cfg.middlewares, m)
			}
		}
	}
}

// NewRouter assembles the HTTP surface: health probes at the root, versioned API groups
// under the prefix, and JSON errors for unmatched routes.
func NewRouter(opts ...Option) chi.Router {
	cfg := &routerConfig{
		apiPrefix:      defaultAPIPrefix,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.requestTimeout))
	if cfg.limiter != nil {
		r.Use(rateLimitMiddleware(cfg.limiter))
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	if cfg.health != nil {
		r.Get("/healthz", cfg.health.Healthz)
		r.Get("/readyz", cfg.health.Readyz)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}

	r.Route(cfg.apiPrefix, func(api chi.Router) {
		if cfg.public != nil {
			cfg.public(api)
		}
		mountGroup(api, "/cart", cfg.cart, cfg.requireAuth(auth.RoleConsultant, auth.RoleStaff, auth.RoleAdmin))
		mountGroup(api, "/orders", cfg.orders, cfg.requireAuth(auth.RoleConsultant, auth.RoleStaff, auth.RoleAdmin))
		mountGroup(api, "/commissions", cfg.commissions, cfg.requireAuth(auth.RoleConsultant, auth.RoleStaff, auth.RoleAdmin))
		mountGroup(api, "/payouts", cfg.payouts, cfg.requireAuth(auth.RoleConsultant, auth.RoleStaff, auth.RoleAdmin))
		mountGroup(api, "/admin", cfg.admin, cfg.requireAuth(auth.RoleStaff, auth.RoleAdmin))
	})

	return r
}

func (cfg *routerConfig) requireAuth(roles ...string) func(http.Handler) http.Handler {
	if cfg.authenticator == nil {
		return nil
	}
	return cfg.authenticator.RequireAuth(roles...)
}

func mountGroup(api chi.Router, pattern string, registrar RouteRegistrar, guard func(http.Handler) http.Handler) {
	if registrar == nil {
		registerNotImplemented(api, pattern)
		return
	}
	if guard == nil {
		// Protected groups without an authenticator stay dark rather than open.
		registerNotImplemented(api, pattern)
		return
	}
	api.Route(pattern, func(group chi.Router) {
		if guard != nil {
			group.Use(guard)
		}
		registrar(group)
	})
}

func registerNotImplemented(api chi.Router, pattern string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(
			"not_implemented",
			fmt.Sprintf("%s endpoints are not available", strings.Trim(pattern, "/")),
			http.StatusNotImplemented,
		))
	}
	api.HandleFunc(pattern, handler)
	api.HandleFunc(pattern+"/*", handler)
}

// rateLimitMiddleware keys on the authenticated consultant when present, falling back to
// the client address for anonymous traffic.
func rateLimitMiddleware(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := req.RemoteAddr
			if identity, ok := auth.IdentityFromContext(req.Context()); ok && identity != nil && identity.ConsultantID != "" {
				key = identity.ConsultantID
			}
			if !limiter.Allow(key) {
				httpx.WriteError(req.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
