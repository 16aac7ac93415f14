package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"event-search/internal/middleware"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	RequestTimeout time.Duration
	Limiter        middleware.Limiter
	LimiterBackend string
}

type Router struct {
	chi.Router
}

func NewRouter(opts RouterOptions) *Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Use chi middleware with aliases to avoid conflicts
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.Limiter != nil {
		r.Use(middleware.RateLimit(opts.Limiter, opts.LimiterBackend))
	}

	r.NotFound(NotFound)

	return &Router{r}
}

// RegisterEventRoutes registers event search routes
func (r *Router) RegisterEventRoutes(eventHandler *EventHandler) {
	eventHandler.RegisterRoutes(r)
}

// RegisterHealthRoutes registers health check routes
func (r *Router) RegisterHealthRoutes() {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "ready",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}

// RegisterMetricsRoutes registers metrics routes
func (r *Router) RegisterMetricsRoutes() {
	r.Handle("/metrics", promhttp.Handler())
}
