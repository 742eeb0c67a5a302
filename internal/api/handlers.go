package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luckysol/internal/codec"
	"luckysol/internal/ledger"
	"luckysol/internal/models"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service":     "luckysol",
		"version":     "1.0.0",
		"description": "Read API for the on-chain lottery program",
		"endpoints": map[string]string{
			"GET /":                         "This page - Service information",
			"GET /health":                   "Health check endpoint",
			"GET /metrics":                  "Prometheus metrics for monitoring",
			"GET /rounds":                   "List rounds (supports ?authority=, ?limit=, ?offset=)",
			"GET /rounds/{address}":         "Get a round with its current status",
			"GET /rounds/{address}/tickets": "List tickets sold in a round",
			"GET /tickets?owner=":           "List tickets held by an owner",
		},
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"service":   "luckysol",
	}

	if s.repository != nil {
		ctx := r.Context()
		if err := s.repository.Ping(ctx); err != nil {
			slog.Error("Database ping failed", "error", err)
			s.sendError(w, "Database unhealthy", http.StatusServiceUnavailable)
			return
		}
		if last, err := s.repository.LastSyncedAt(ctx); err == nil && !last.IsZero() {
			health["last_synced_at"] = last.UTC()
		}
	}

	s.sendJSON(w, http.StatusOK, health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// ROUND ENDPOINTS
// =============================================================================

// handleListRounds lists rounds with optional filtering
// GET /rounds?authority=XXX&limit=50&offset=0
func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	limit := 50 // default
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	offset := 0
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var (
		rounds []*models.Lottery
		err    error
	)
	if authorityStr := query.Get("authority"); authorityStr != "" {
		authority, perr := solana.PublicKeyFromBase58(authorityStr)
		if perr != nil {
			s.sendError(w, "Invalid authority address", http.StatusBadRequest)
			return
		}
		rounds, err = s.reader.LotteriesByAuthority(ctx, authority)
	} else {
		rounds, err = s.reader.AllLotteries(ctx)
	}
	if err != nil {
		s.sendReadError(w, "Failed to list rounds", err)
		return
	}

	sortRounds(rounds)
	total := len(rounds)
	start := min(offset, total)
	end := min(start+limit, total)

	now := s.now()
	summaries := make([]models.RoundResponse, 0, end-start)
	for _, l := range rounds[start:end] {
		summaries = append(summaries, BuildRoundResponse(l, now))
	}

	s.sendJSON(w, http.StatusOK, models.RoundListResponse{
		Rounds:   summaries,
		Total:    total,
		Page:     offset/limit + 1,
		PageSize: limit,
	})
}

// handleGetRound returns a single round
// GET /rounds/{address}
func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	l, err := s.reader.Lottery(r.Context(), addr)
	if err != nil {
		s.sendReadError(w, "Round not found", err)
		return
	}

	s.sendJSON(w, http.StatusOK, BuildRoundResponse(l, s.now()))
}

// handleRoundTickets lists the tickets of a round
// GET /rounds/{address}/tickets
func (s *Server) handleRoundTickets(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	tickets, err := s.reader.TicketsByRound(r.Context(), addr)
	if err != nil {
		s.sendReadError(w, "Failed to list tickets", err)
		return
	}

	s.sendJSON(w, http.StatusOK, models.TicketListResponse{
		Round:   addr.String(),
		Tickets: BuildTicketResponses(tickets),
		Total:   len(tickets),
	})
}

// handleOwnerTickets lists the tickets held by an owner
// GET /tickets?owner=XXX
func (s *Server) handleOwnerTickets(w http.ResponseWriter, r *http.Request) {
	ownerStr := r.URL.Query().Get("owner")
	if ownerStr == "" {
		s.sendError(w, "owner query parameter required", http.StatusBadRequest)
		return
	}
	owner, err := solana.PublicKeyFromBase58(ownerStr)
	if err != nil {
		s.sendError(w, "Invalid owner address", http.StatusBadRequest)
		return
	}

	tickets, err := s.reader.TicketsByOwner(r.Context(), owner)
	if err != nil {
		s.sendReadError(w, "Failed to list tickets", err)
		return
	}

	s.sendJSON(w, http.StatusOK, models.TicketListResponse{
		Owner:   owner.String(),
		Tickets: BuildTicketResponses(tickets),
		Total:   len(tickets),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (solana.PublicKey, bool) {
	addr, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		s.sendError(w, "Invalid account address", http.StatusBadRequest)
		return solana.PublicKey{}, false
	}
	return addr, true
}

// sendReadError maps a reader failure to a status code
func (s *Server) sendReadError(w http.ResponseWriter, message string, err error) {
	var parseErr *codec.ParseError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.sendError(w, message, http.StatusNotFound)
	case errors.As(err, &parseErr):
		s.sendError(w, "Account is not a valid lottery record: "+parseErr.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("Ledger read failed", "error", err)
		s.sendError(w, "Ledger unavailable", http.StatusBadGateway)
	}
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
