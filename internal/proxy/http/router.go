package http

import (
	"net/http"

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, logger logs.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogging(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/proxies", func(r chi.Router) {
		r.Get("/", h.GetProxies)
		r.Get("/current", h.GetCurrent)
		r.Post("/rotate", h.Rotate)
		r.Post("/{address}/outcome", h.ReportOutcome)
	})

	return r
}
