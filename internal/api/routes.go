package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the analytics API endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/healthz", h.handleHealthz)
	r.Route("/api", func(api chi.Router) {
		api.Get("/dashboard", h.handleDashboard)
		api.Get("/registries/{name}", h.handleRegistry)
		api.Get("/dimensions/{table}", h.handleDimension)
		api.Group(func(gr chi.Router) {
			gr.Use(exportLimiter)
			gr.Get("/registries/{name}/export.csv", h.handleRegistryExport)
		})
	})
}
