package http

import (
	"log/slog"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	analyticsHandler AnalyticsHandler,
	metricsHandler MetricsHandler,
	recalculationHandler RecalculationHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(chiMiddleware.AllowContentEncoding("application/json"))

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/", analyticsHandler.Comprehensive)
				r.Get("/tee", analyticsHandler.TEEProfile)
				r.Get("/tee/{date}", analyticsHandler.TEEForDate)
				r.Get("/attendance-rate", analyticsHandler.AttendanceRate)
				r.Get("/absentees", analyticsHandler.Absentees)
				r.Get("/late-arrivals", analyticsHandler.LateArrivals)
				r.Get("/missed-punchouts", analyticsHandler.MissedPunchouts)
				r.Get("/working-hours", analyticsHandler.WorkingHours)
				r.Get("/departments", analyticsHandler.Departments)
			})

			r.Get("/metrics", metricsHandler.List)
		})

		r.Route("/recalculations", func(r chi.Router) {
			// SSE authenticates with a stream token in the query string
			r.Get("/{id}/events", recalculationHandler.Stream)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
				r.Use(middleware.AdminOnly)

				r.Post("/", recalculationHandler.Start)
				r.Get("/latest", recalculationHandler.Latest)
				r.Get("/{id}", recalculationHandler.Get)
				r.Delete("/{id}", recalculationHandler.Pause)
				r.Get("/{id}/stream-token", recalculationHandler.GetStreamToken)
			})
		})
	})
	return r
}
