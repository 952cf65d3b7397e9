// Package httpapi wires the HTTP boundary: routing, CORS, request
// middleware and the registration/listing handlers.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/aanand-mishra/class-registration/internal/admin"
	"github.com/aanand-mishra/class-registration/internal/http/handlers/student"
	"github.com/aanand-mishra/class-registration/internal/metrics"
	"github.com/aanand-mishra/class-registration/internal/utils/response"
)

// Deps are the collaborators the router hands to handlers.
type Deps struct {
	Service student.Service
	Gate    *admin.Gate
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// AllowedOrigins for CORS; empty means any origin.
	AllowedOrigins []string
	// ClientDir, when set, is served at "/".
	ClientDir string
}

// NewRouter builds the application handler.
//
// Route table:
//
//	POST /api/register   → student.Register
//	GET  /api/students   → admin.RequireAdminKey → student.GetList
//	GET  /health         → liveness
//	GET  /metrics        → Prometheus
//	GET  /*              → static client (optional)
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", admin.HeaderName},
	}).Handler)

	r.Post("/api/register", student.Register(d.Service, logger))

	r.With(admin.RequireAdminKey(d.Gate, logger, d.Metrics)).
		Get("/api/students", student.GetList(d.Service, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if d.ClientDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.ClientDir)))
	}

	return r
}

// requestLogger logs one line per request once it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
