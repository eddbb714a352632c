package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/health"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/middleware"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/service"
)

// kindPaths is the URL segment each item kind is mounted under.
var kindPaths = map[domain.ItemKind]string{
	domain.ItemKindMovie:  "movies",
	domain.ItemKindTVShow: "tv-shows",
}

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	ServiceName   string
	Engines       []*service.Engine
	Health        *health.Handler
	Metrics       http.Handler
	Identity      middleware.IdentityResolver
	CORS          middleware.CORSConfig
	VoteRateLimit float64
	VoteBurst     int
	PprofCIDRs    []string
	RatingMaxAge  time.Duration
	Logger        *slog.Logger
}

// NewRouter creates a chi router with the review routes of every engine.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	voteLimiter := middleware.RateLimit(cfg.VoteRateLimit, cfg.VoteBurst, cfg.Logger)
	ratingCache := middleware.CacheControl(cfg.RatingMaxAge)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Identity))
		r.Use(middleware.RequestLogger(cfg.Logger))

		for _, engine := range cfg.Engines {
			h := NewReviewHandler(engine, cfg.Logger)
			r.Route("/"+kindPaths[engine.Kind], func(r chi.Router) {
				mountReviewRoutes(r, h, voteLimiter, ratingCache)
			})
		}
	})

	return r
}

// mountReviewRoutes registers one kind's routes. Item-scoped routes live
// under /items/{itemId} so no catalog id can shadow a static segment.
func mountReviewRoutes(r chi.Router, h *ReviewHandler, voteLimiter, ratingCache func(http.Handler) http.Handler) {
	// Reads
	r.Get("/reviews", h.ListReviews)
	r.Get("/reviews/top", h.ListTopReviews)
	r.Get("/reviews/{id}", h.GetReview)
	r.Get("/reviews/{id}/comments", h.ListComments)
	r.Get("/items/{itemId}/reviews", h.ListItemReviews)
	r.With(ratingCache).Get("/items/{itemId}/rating", h.GetRating)
	r.Get("/users/{authorId}/reviews", h.ListAuthorReviews)

	// Anonymous helpfulness votes
	r.With(voteLimiter).Post("/reviews/{id}/votes", h.RecordVote)

	// Authenticated mutations
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Post("/items/{itemId}/reviews", h.CreateReview)
		r.Put("/reviews/{id}", h.UpdateReview)
		r.Delete("/reviews/{id}", h.DeleteReview)
		r.Post("/reviews/{id}/like", h.ToggleLike)
		r.Post("/reviews/{id}/dislike", h.ToggleDislike)
		r.Post("/reviews/{id}/comments", h.AddComment)
		r.Delete("/reviews/{id}/comments/{commentId}", h.DeleteComment)
	})

	// Administration
	r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/items/{itemId}/rating/recompute", h.RecomputeRating)
}
