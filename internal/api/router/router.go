package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/internal/audit"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/encounter"
	httpmiddleware "github.com/occuhealth/ehr-platform/internal/http/middleware"
	"github.com/occuhealth/ehr-platform/internal/patients"
	"github.com/occuhealth/ehr-platform/internal/sessions"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	EncounterHandler   *encounter.Handler
	PatientsHandler    *patients.Handler
	AuditHandler       *audit.Handler
	SessionsHandler    *sessions.Handler
	SessionStore       *sessions.Store
	AuthSecret         string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.SessionsHandler != nil {
			public.Post("/api/auth/login", cfg.SessionsHandler.Login)
		}
	})

	// Authenticated API.
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Authenticate(cfg.AuthSecret, cfg.SessionStore))

		if cfg.SessionsHandler != nil {
			api.Post("/api/auth/logout", cfg.SessionsHandler.Logout)
		}

		if cfg.PatientsHandler != nil {
			api.Route("/api/patients", func(r chi.Router) {
				r.Get("/", cfg.PatientsHandler.List)
				r.Post("/", cfg.PatientsHandler.Create)
				r.Route("/{patientID}", func(r chi.Router) {
					r.Get("/", cfg.PatientsHandler.Get)
					r.Patch("/", cfg.PatientsHandler.Update)
				})
			})
		}

		if cfg.EncounterHandler != nil {
			api.Route("/api/encounters", func(r chi.Router) {
				r.Get("/", cfg.EncounterHandler.List)
				r.Post("/", cfg.EncounterHandler.Create)
				r.Route("/{encounterID}", func(r chi.Router) {
					r.Get("/", cfg.EncounterHandler.Get)
					r.Patch("/", cfg.EncounterHandler.Update)
					r.Post("/submit", cfg.EncounterHandler.Submit)
					r.Post("/sign", cfg.EncounterHandler.Sign)
					r.Post("/amend", cfg.EncounterHandler.Amend)
					r.Post("/void", cfg.EncounterHandler.Void)
					r.Get("/amendments", cfg.EncounterHandler.ListAmendments)
					r.Get("/signature", cfg.EncounterHandler.GetSignature)
					r.Post("/vitals", cfg.EncounterHandler.RecordVitals)
					r.Get("/vitals", cfg.EncounterHandler.ListVitals)
				})
			})
		}

		if cfg.AuditHandler != nil {
			api.With(httpmiddleware.RequirePermission(auth.PermViewAuditLog)).
				Get("/api/audit", cfg.AuditHandler.Query)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, "ok", nil)
}
