package rest

import (
	"log/slog"
	"net/http"

	"github.com/ganpare/densai/internal/auth"
	"github.com/ganpare/densai/internal/export"
	"github.com/ganpare/densai/internal/institution"
	"github.com/ganpare/densai/internal/metrics"
	"github.com/ganpare/densai/internal/report"
	"github.com/ganpare/densai/internal/statistics"
	"github.com/ganpare/densai/internal/transport/middleware"
	"github.com/ganpare/densai/internal/transport/swagger"
	"github.com/ganpare/densai/internal/user"
	"github.com/go-chi/chi"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes out.
type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	User        *user.Handler
	Institution *institution.Handler
	Report      *report.Handler
	Export      *export.Handler
	Statistics  *statistics.Handler
	Metrics     *metrics.Metrics
	MetricsPath string
	Origins     []string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	rbac := auth.NewRBACAuthorization(logger)

	// Apply global middleware
	router.Use(middleware.CORS(h.Origins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
		router.Method(http.MethodGet, h.MetricsPath, h.Metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Method(http.MethodGet, swagger.SpecPath, swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Reference data is public
		if h.Institution != nil {
			r.Get("/institutions", h.Institution.GetInstitutions)
			r.Get("/institutions/{code}/branches", h.Institution.GetBranches)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Patch("/users/me", h.User.UpdateCurrentUser)

				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Get("/users", h.User.ListUsers)
					ar.Post("/users", h.User.CreateUser)
					ar.Patch("/users/{id}/roles", h.User.UpdateUserRoles)
					ar.Post("/users/{id}/deactivate", h.User.DeactivateUser)
					ar.Delete("/users/{id}", h.User.DeleteUser)
				})
			}

			if h.Report != nil {
				pr.Route("/reports", func(rr chi.Router) {
					rr.Post("/", h.Report.CreateReport)
					rr.Get("/", h.Report.ListReports)
					rr.Get("/{id}", h.Report.GetReport)
					rr.Patch("/{id}", h.Report.UpdateReport)
					rr.Post("/{id}/submit", h.Report.SubmitReport)
					rr.Post("/{id}/reopen", h.Report.ReopenReport)

					rr.Group(func(ar chi.Router) {
						ar.Use(rbac.RequireApprover())
						ar.Post("/{id}/status", h.Report.SetReportStatus)
						ar.Patch("/{id}/approve", h.Report.ApproveReport)
						ar.Patch("/{id}/reject", h.Report.RejectReport)
					})

					if h.Export != nil {
						rr.Get("/{id}/print", h.Export.PrintReport)
						rr.Get("/{id}/pdf", h.Export.DownloadReportPDF)
					}
				})
			}

			if h.Export != nil {
				pr.Group(func(er chi.Router) {
					er.Use(rbac.RequireApproverOrAdmin())
					er.Post("/exports/bulk", h.Export.BulkExport)
				})
			}

			if h.Statistics != nil {
				pr.Get("/statistics", h.Statistics.GetStatistics)
			}
		})
	})
}
