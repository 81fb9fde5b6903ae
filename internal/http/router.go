package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
	"github.com/MrJamesThe3rd/haulbook/internal/http/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/http/importcsv"
	"github.com/MrJamesThe3rd/haulbook/internal/http/pricing"
	"github.com/MrJamesThe3rd/haulbook/internal/http/trip"
)

type Options struct {
	AllowedOrigins []string
	// Auth guards /api/v1 when set.
	Auth *auth.Manager
	// Health backs /healthz, which clients use as their connectivity probe.
	Health func(ctx context.Context) error
}

func New(
	opts Options,
	tripsV1 *trip.Handler,
	expensesV1 *expense.Handler,
	pricingV1 *pricing.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", health(opts.Health))

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}

		r.Route("/trips", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			tripsV1.Routes(r)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			expensesV1.Routes(r)
		})

		r.Route("/expense-categories", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			expensesV1.CategoryRoutes(r)
		})

		r.Route("/pricing-rules", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			pricingV1.RuleRoutes(r)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			pricingV1.LocationRoutes(r)
		})

		r.Route("/import", importV1.Routes)
	})

	return router
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				slog.Error("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)

				return
			}
		}

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}
