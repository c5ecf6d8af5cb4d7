package server

import (
	"log/slog"
	"net/http"

	"olist-dashboard/internal/handlers"
	"olist-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Option mounts extra handlers, such as the metrics endpoint, on the server.
type Option func(*http.ServeMux)

func WithHandler(pattern string, h http.Handler) Option {
	return func(mux *http.ServeMux) {
		mux.Handle(pattern, h)
	}
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers, opts ...Option) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	for _, opt := range opts {
		opt(s.mux)
	}
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/bounds", s.apiHandlers.HandleBounds)
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/daily-orders", s.apiHandlers.HandleDailyOrders)
	s.mux.HandleFunc("GET /api/daily-spend", s.apiHandlers.HandleDailySpend)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/review-scores", s.apiHandlers.HandleReviewScores)
	s.mux.HandleFunc("GET /api/customers/states", s.apiHandlers.HandleStates)
	s.mux.HandleFunc("GET /api/customers/cities", s.apiHandlers.HandleCities)
	s.mux.HandleFunc("GET /api/order-status", s.apiHandlers.HandleOrderStatus)
	s.mux.HandleFunc("GET /api/", s.apiHandlers.HandleNotFound)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
