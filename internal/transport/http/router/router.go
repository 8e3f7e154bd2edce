package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/handlers"
	authmw "github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/middleware"
)

func New(
	ev *handlers.EventsHandler,
	rq *handlers.RequestsHandler,
	auth *authmw.AuthMiddleware,
	z *handlers.HealthHandler,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.SecurityHeaders)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(authmw.AccessLog)
	r.Use(authmw.Metrics)

	r.Get("/healthz", z.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RLEnabled {
			r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
		}

		r.Get("/events", ev.ListPublic)
		r.Get("/events/{id}", ev.GetPublic)

		r.Route("/users/me", func(r chi.Router) {
			r.Use(auth.Require)

			r.Post("/events", ev.Create)
			r.Get("/events", ev.ListMine)
			r.Get("/events/{eventId}", ev.GetMine)
			r.Patch("/events/{eventId}", ev.UpdateMine)
			r.Get("/events/{eventId}/requests", rq.ListForEvent)
			r.Patch("/events/{eventId}/requests", rq.BulkUpdate)

			r.Get("/requests", rq.ListMine)
			r.Post("/requests", rq.Submit)
			r.Patch("/requests/{requestId}/cancel", rq.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(authmw.AdminOnly)

			r.Get("/events", ev.SearchAdmin)
			r.Patch("/events/{eventId}", ev.UpdateAdmin)
		})
	})

	return r
}
