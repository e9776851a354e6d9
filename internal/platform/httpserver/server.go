package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	reviewqueue "triage/contexts/moderation-safety/review-queue"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "triage/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	review reviewqueue.Module
}

func New(review reviewqueue.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		review: review,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/review/flags", s.handleSubmitFlag)
	s.mux.HandleFunc("GET /api/review/queue", s.handleListQueue)
	s.mux.HandleFunc("GET /api/review/{reviewable_id}", s.handleGetReviewable)
	s.mux.HandleFunc("PUT /api/review/{reviewable_id}", s.handleUpdateReviewable)
	s.mux.HandleFunc("POST /api/review/{reviewable_id}/perform/{action_id}", s.handlePerform)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
