package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options tunes the protective middleware. Zero values disable the
// corresponding limit.
type Options struct {
	RequestTimeout time.Duration
	MaxInFlight    int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds the chi router with the global middleware stack and all
// API routes.
func NewRouter(events *EventHandler, users *UserHandler, log *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(Metrics)
	r.Use(CORS)

	// Health and metrics stay outside the limits.
	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(RateLimit(opts.RateLimitRPS, max(opts.RateLimitBurst, 1)))
		}
		if opts.MaxInFlight > 0 {
			r.Use(ConcurrencyLimit(opts.MaxInFlight))
		}
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/events", func(r chi.Router) {
			r.Post("/", events.CreateEvent)
			r.Get("/", events.ListEvents)

			// Static segments win over /{id}/... in chi's radix tree.
			r.Get("/upcoming", events.Upcoming)
			r.Get("/past", events.Past)

			r.Get("/id/{id}", events.GetEvent)
			r.Put("/id/{id}", events.UpdateByID)
			r.Delete("/id/{id}", events.DeleteByID)

			r.Get("/title/{title}", events.FindByTitle)
			r.Put("/title/{title}", events.UpdateByTitle)
			r.Delete("/title/{title}", events.DeleteByTitle)

			r.Get("/date/{date}", events.FindByDate)
			r.Get("/location/{location}", events.FindByLocation)

			r.Post("/{id}/join", events.JoinEvent)
			r.Post("/{id}/leave", events.LeaveEvent)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", users.Signup)
			r.Get("/{gNumber}/{email}/eventsCreated", users.CreatedEvents)
			r.Get("/{gNumber}/{email}/eventsJoined", users.JoinedEvents)
		})
	})

	return r
}
