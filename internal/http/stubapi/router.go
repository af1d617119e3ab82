package stubapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"videogen/internal/metrics"
	"videogen/internal/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.logger),
		metrics.Middleware,
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1/videos", func(r chi.Router) {
		r.Use(middleware.BearerKey(app.opts.APIKey))
		r.With(middleware.RateLimit(app.opts.RateLimit, app.opts.RateWindow)).Post("/", app.CreateVideo)
		r.Get("/{id}", app.GetVideo)
		r.Get("/{id}/content", app.GetVideoContent)
	})

	return r
}
