package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/ck3fence/ck3fence/internal/api/handlers"
	"github.com/ck3fence/ck3fence/internal/api/middleware"
	"github.com/ck3fence/ck3fence/internal/config"
	"github.com/ck3fence/ck3fence/pkg/contracts"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers, authChain contracts.AuthProviderChain) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.SessionExtractor)
	r.Use(middleware.Telemetry)

	// Pluggable auth middleware — walks registered providers (API key,
	// service account, or a production deployment's OIDC/SAML/LDAP/mTLS)
	// and stores the resulting Identity in context.
	if authChain != nil {
		authMW := middleware.NewAuthMiddleware(authChain)
		r.Use(authMW.Handler)
	}

	corsOrigins := parseCORSOrigins()
	isWildcard := len(corsOrigins) == 1 && corsOrigins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session", "X-Request-Id", "X-API-Key", "X-Service-Token"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: !isWildcard,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)

	r.Route("/v1", func(r chi.Router) {
		// Resolve (C4) — standalone inspection endpoint; tool calls below
		// invoke the same resolver internally as step one of their contract.
		r.Post("/resolve", h.Resolve)

		// Tool calls — resolve, enforce (C9), then perform, per tool/command.
		r.Post("/tools/{tool}/{command}", h.ToolCall)

		// Active mod list (C2), session-scoped.
		r.Route("/mods", func(r chi.Router) {
			r.Get("/", h.GetMods)
			r.Put("/", h.SetMods)
		})

		// Approvals / contracts (C11).
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.OpenContract)
			r.Delete("/", h.CloseContract)
			r.Route("/{session}", func(r chi.Router) {
				r.Get("/", h.GetContract)
				r.Post("/scripts", h.SignScript)
			})
		})

		// Audit events — read-only (events are created by the tool gateway).
		r.Route("/audit", func(r chi.Router) {
			r.Get("/", h.ListAuditEvents)
			r.Get("/count", h.CountAuditEvents)
		})
	})

	return r
}

// parseCORSOrigins reads allowed CORS origins from the environment.
// Default: wildcard (open access, no credentials).
func parseCORSOrigins() []string {
	originsEnv := os.Getenv("CK3FENCE_CORS_ORIGINS")
	if originsEnv == "" {
		return []string{"*"}
	}

	var origins []string
	for _, o := range strings.Split(originsEnv, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
