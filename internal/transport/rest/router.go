package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/flashcoach/backend/internal/config"
	"github.com/flashcoach/backend/internal/transport/middleware"
)

// Handlers bundles the route handlers mounted by NewRouter.
type Handlers struct {
	Health *HealthHandler
	Deck   *DeckHandler
	Study  *StudyHandler
	Test   *TestHandler
}

// NewRouter wires the API routes with the shared middleware chain. The
// submit route gets its own rate limit: evaluation calls are expensive
// upstream and a stuck UI must not hammer them.
func NewRouter(h Handlers, logger *slog.Logger, cfg config.Config, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORS.AllowedOrigins, ","),
		AllowedMethods:   strings.Split(cfg.CORS.AllowedMethods, ","),
		AllowedHeaders:   strings.Split(cfg.CORS.AllowedHeaders, ","),
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})

	base := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		corsHandler.Handler,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/health/live", h.Health.Live)
		r.Get("/health/ready", h.Health.Ready)

		r.Route("/deck", func(r chi.Router) {
			r.Post("/", h.Deck.Load)
			r.Get("/", h.Deck.List)
		})

		r.Route("/study", func(r chi.Router) {
			r.Get("/queue", h.Study.Queue)
			r.Post("/grade", h.Study.Grade)
			r.Post("/mark", h.Study.Mark)
			r.Post("/advance", h.Study.Advance)
			r.Post("/rebuild", h.Study.Rebuild)
			r.Get("/mode", h.Study.Mode)
			r.Post("/mode", h.Study.SetMode)
		})

		r.Route("/test", func(r chi.Router) {
			r.Post("/start", h.Test.Start)
			r.Get("/state", h.Test.State)
			r.Post("/next", h.Test.Next)
			r.Post("/reset", h.Test.Reset)
			r.With(limiter.Limit(cfg.Eval.SubmitPerMinute)).Post("/submit", h.Test.Submit)
		})
	})

	return base(r)
}
