package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"luckysol/internal/models"
	"luckysol/internal/storage"
)

// RoundReader is the read side the API serves from
type RoundReader interface {
	Lottery(ctx context.Context, addr solana.PublicKey) (*models.Lottery, error)
	AllLotteries(ctx context.Context) ([]*models.Lottery, error)
	LotteriesByAuthority(ctx context.Context, authority solana.PublicKey) ([]*models.Lottery, error)
	TicketsByRound(ctx context.Context, round solana.PublicKey) ([]*models.Ticket, error)
	TicketsByOwner(ctx context.Context, owner solana.PublicKey) ([]*models.Ticket, error)
}

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks, and round and ticket lookups
type Server struct {
	httpServer *http.Server
	router     chi.Router
	reader     RoundReader
	repository storage.Repository // Nil when running without a snapshot store
	port       string
	now        func() time.Time
}

// NewServer creates a new API server instance
func NewServer(port string, reader RoundReader, repository storage.Repository) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:     r,
		reader:     reader,
		repository: repository,
		port:       port,
		now:        time.Now,
	}

	s.registerRoutes()

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.Recoverer)

	// Core endpoints
	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.handleMetrics())

	// Round endpoints
	s.router.Route("/rounds", func(r chi.Router) {
		r.Get("/", s.handleListRounds)
		r.Get("/{address}", s.handleGetRound)
		r.Get("/{address}/tickets", s.handleRoundTickets)
	})
	s.router.Get("/tickets", s.handleOwnerTickets)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/rounds", "/tickets"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
