package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"renova/internal/http/handlers"
	"renova/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Cfg.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/enhance-batch", app.EnhanceBatch)
		r.Post("/{model_type}", app.Generate)
		r.Get("/{id}", app.GetGeneration)
		r.Get("/", app.ListGenerations)
	})

	r.Handle("/v1/assets/*", http.StripPrefix("/v1/assets/", app.Assets()))

	return r
}
