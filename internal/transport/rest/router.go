package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/catalog"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/export"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/hardware"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport/middleware"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport/swagger"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/user"
)

// Deps is everything the router mounts. Nil handlers are skipped.
type Deps struct {
	Auth     *auth.Handler
	Hardware *hardware.Handler
	Users    *user.Handler
	Catalog  *catalog.Handler
	Export   *export.Handler

	Health         map[string]Checker
	AllowedOrigins []string
	// OpenAPIPath enables /openapi.yml and /swagger/ when the document
	// there loads and validates.
	OpenAPIPath string
	Logger      *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps Deps) {
	base := transport.NewBaseHandler(deps.Logger)
	healthHandler := NewHealthHandler(deps.Health)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.RecoveryMiddleware(base.Logger))
	router.Use(middleware.LoggingMiddleware(base.Logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		base.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if deps.OpenAPIPath != "" {
		if _, err := swagger.LoadSpec(context.Background(), deps.OpenAPIPath); err != nil {
			base.Logger.Warn("api docs disabled", "path", deps.OpenAPIPath, "error", err)
		} else {
			router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, deps.OpenAPIPath)
			})
			router.Handle("/swagger/*", swagger.Handler())
		}
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.Auth == nil {
			return
		}

		r.Post("/auth/login", deps.Auth.Login)
		r.Post("/auth/logout", deps.Auth.Logout)

		// Everything below runs with a resolved branch identity.
		r.Group(func(pr chi.Router) {
			pr.Use(deps.Auth.AuthMiddleware)

			pr.Get("/auth/user", deps.Auth.CurrentUser)

			if h := deps.Hardware; h != nil {
				pr.Route("/hardware", func(hr chi.Router) {
					hr.Get("/", h.ListAssets)
					hr.Get("/{id}", h.GetAsset)
					hr.Patch("/{id}", h.UpdateAsset)
					hr.Post("/{id}/checkout", h.Checkout)
					hr.Post("/{id}/checkin", h.Checkin)
				})
			}

			if h := deps.Users; h != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/", h.ListUsers)
					ur.Post("/", h.CreateUser)
					ur.Get("/find", h.FindUser)
					ur.Get("/{id}", h.GetUser)
					ur.Get("/{id}/hardware", h.GetUserAssets)
				})
			}

			if h := deps.Catalog; h != nil {
				pr.Get("/locations", h.ListLocations)
				pr.Get("/locations/{id}", h.GetLocation)
				pr.Get("/companies", h.ListCompanies)
				pr.Get("/status-labels", h.ListStatusLabels)
			}

			if h := deps.Export; h != nil {
				pr.Route("/export", func(er chi.Router) {
					er.Get("/csv", h.AssetsCSV)
					er.Get("/xlsx", h.AssetsXLSX)
					er.Get("/users/csv", h.UsersCSV)
					er.Get("/users/xlsx", h.UsersXLSX)
				})
			}
		})
	})
}
