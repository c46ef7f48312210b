package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/contentpipe/routerd/internal/middleware"
)

// MountRoutes registers all routes on the given chi router. The rate limiter
// guards only /route; dashboard polling endpoints stay unthrottled.
func MountRoutes(r chi.Router, h *Handlers, rl *middleware.RateLimiter) {
	r.Get("/health", h.Health)
	r.Get("/sites", h.ListSites)

	r.With(rl.Handler).Post("/route", h.RouteContent)

	r.Get("/pending-validations", h.ListPendingValidations)
	r.Post("/submit-validation", h.SubmitValidation)

	r.Get("/ws", h.Hub.HandleWS)
}
