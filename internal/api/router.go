package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/incidentdesk/internal/api/auth"
	"github.com/good-yellow-bee/incidentdesk/internal/api/catalog"
	"github.com/good-yellow-bee/incidentdesk/internal/api/incidents"
	"github.com/good-yellow-bee/incidentdesk/internal/api/middleware"
	"github.com/good-yellow-bee/incidentdesk/internal/policy"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger, s.config.Verbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestMetrics)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	sessionAuth := middleware.SessionAuth(s.deps.Issuer, s.cookies, s.deps.Storage.Users())
	authz := func(resource policy.Resource, action policy.Action) func(http.Handler) http.Handler {
		return middleware.Authorize(s.deps.Authorizer, resource, action)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			Key:            s.config.CSRFKey,
			Secure:         s.cookies.ForceSecure,
			TrustedOrigins: s.config.TrustedOrigins,
		}))

		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.deps.Authenticator, s.deps.Issuer, s.cookies, s.lockout)

			r.With(middleware.RateLimitByIP(s.ipLimiter)).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(sessionAuth)
				r.Get("/csrf", authHandler.CSRFToken)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(middleware.RateLimitByUser(s.userLimiter))

			incidentHandler := incidents.NewHandler(s.deps.Incidents)
			catalogHandler := catalog.NewHandler(s.deps.Incidents)

			r.Route("/incidents", func(r chi.Router) {
				r.With(authz(policy.ResourceIncidents, policy.ActionRead)).Get("/", incidentHandler.List)
				r.With(authz(policy.ResourceIncidents, policy.ActionWrite)).Post("/", incidentHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.With(authz(policy.ResourceIncidents, policy.ActionRead)).Get("/", incidentHandler.Get)
					r.With(authz(policy.ResourceIncidents, policy.ActionWrite)).Put("/", incidentHandler.Update)
					r.With(authz(policy.ResourceIncidents, policy.ActionDelete)).Delete("/", incidentHandler.Delete)
					r.With(authz(policy.ResourceIncidents, policy.ActionWrite)).Put("/tags", incidentHandler.UpdateTags)
					r.With(authz(policy.ResourceTimeline, policy.ActionWrite)).Post("/timeline", incidentHandler.AddTimelineEvent)
					r.With(authz(policy.ResourceReports, policy.ActionRead)).Get("/export", incidentHandler.Export)
				})
			})

			r.Route("/action-items", func(r chi.Router) {
				r.With(authz(policy.ResourceActionItems, policy.ActionRead)).Get("/", incidentHandler.ListActionItems)
				r.With(authz(policy.ResourceActionItems, policy.ActionWrite)).Post("/", incidentHandler.CreateActionItem)
				r.With(authz(policy.ResourceActionItems, policy.ActionWrite)).Put("/{id}/status", incidentHandler.UpdateActionItemStatus)
				r.With(authz(policy.ResourceActionItems, policy.ActionDelete)).Delete("/{id}", incidentHandler.DeleteActionItem)
			})

			r.Route("/tags", func(r chi.Router) {
				r.With(authz(policy.ResourceTags, policy.ActionRead)).Get("/", catalogHandler.ListTags)
				r.With(authz(policy.ResourceTags, policy.ActionWrite)).Post("/", catalogHandler.CreateTag)
				r.With(authz(policy.ResourceTags, policy.ActionDelete)).Delete("/{id}", catalogHandler.DeleteTag)
			})

			r.Route("/templates", func(r chi.Router) {
				r.With(authz(policy.ResourceTemplates, policy.ActionRead)).Get("/", catalogHandler.ListTemplates)
				r.With(authz(policy.ResourceTemplates, policy.ActionWrite)).Post("/", catalogHandler.CreateTemplate)
				r.With(authz(policy.ResourceTemplates, policy.ActionDelete)).Delete("/{id}", catalogHandler.DeleteTemplate)
			})
		})
	})

	// Health check (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)

	return r
}
