/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the route table.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the review UI

ROUTE GROUPS:
  /api/imports/*     Upload, staging review, confirm, cancel, template, runs
  /api/records       Committed records
  /api/reports/*     Productivity report (JSON and workbook)
  /api/settings/*    Exclusion prefixes
  /api/catalog/*     Read-only master data
  /api/scenarios/*   Demo data

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. allowedOrigins
// feeds the CORS policy.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", h.UploadImport)
			r.Get("/staging", h.GetStaging)
			r.Put("/staging/{id}", h.UpdateStagingRow)
			r.Delete("/staging/{id}", h.DeleteStagingRow)
			r.Post("/confirm", h.ConfirmImport)
			r.Post("/cancel", h.CancelImport)
			r.Get("/template", h.DownloadTemplate)
			r.Get("/runs", h.ListImportRuns)
		})

		r.Get("/records", h.ListRecords)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/productivity", h.GetReport)
			r.Get("/productivity/export", h.ExportReport)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/exclusion-prefixes", h.GetExclusionPrefixes)
			r.Put("/exclusion-prefixes", h.UpdateExclusionPrefixes)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/customers", h.ListCustomers)
			r.Get("/accounts", h.ListAccounts)
			r.Get("/tasks", h.ListTasks)
			r.Get("/employees", h.ListEmployees)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
