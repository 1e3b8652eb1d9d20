package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/model"
)

// Processor enriches a single entry.
type Processor interface {
	Process(ctx context.Context, entryID uuid.UUID) (*model.EnrichmentResult, error)
}

// Answerer answers a query over a user's entries.
type Answerer interface {
	Answer(ctx context.Context, query string, userID uuid.UUID) (string, error)
}

// Server exposes the enrichment webhook and the query endpoint.
type Server struct {
	processor Processor
	answerer  Answerer
	logger    *slog.Logger
}

// NewServer creates a new Server on top of the given pipeline implementations.
func NewServer(processor Processor, answerer Answerer, logger *slog.Logger) *Server {
	return &Server{
		processor: processor,
		answerer:  answerer,
		logger:    logger,
	}
}

// Handler returns the http handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/", s.handleHealth)
	return mux
}

// ListenAndServe starts the server on the given address and blocks.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Server listening", slog.String("addr", addr))
	return server.ListenAndServe()
}
