package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tradebull/config"
	"tradebull/game"
	"tradebull/state"
)

// BetPlacer submits bets on behalf of the session user.
type BetPlacer interface {
	PlaceBet(ctx context.Context, side game.Side, amount float64, insurance bool) state.BetResult
}

// HealthReporter reports the outcome of the last series poll.
type HealthReporter interface {
	Health() (time.Time, error)
}

// Server holds the dependencies of the local HTTP API.
type Server struct {
	Session *state.Session
	History *state.History
	Poller  HealthReporter
	Bets    BetPlacer
	UserID  string
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	if wrap == nil {
		wrap = func(h http.HandlerFunc) http.HandlerFunc { return h }
	}
	mux.HandleFunc("/api/health", wrap(s.HandleHealthCheck))
	mux.HandleFunc("/api/status", wrap(s.HandleGetStatus))
	mux.HandleFunc("/api/candles", wrap(s.HandleGetCandles))
	mux.HandleFunc("/api/rounds", wrap(s.HandleGetRounds))
	mux.HandleFunc("/api/rounds/{id}", wrap(s.HandleGetRoundDetail))
	mux.HandleFunc("/api/history", wrap(s.HandleGetHistory))
	mux.HandleFunc("/api/bet", wrap(s.HandlePlaceBet))
	mux.HandleFunc("/api/bets", wrap(s.HandleGetBets))
}

func sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, statusCode int, message string) {
	sendJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// parseLimit reads ?limit=, clamped to [1, config.MaxRoundsPage]
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return config.DefaultRoundsPage, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > config.MaxRoundsPage {
		limit = config.MaxRoundsPage
	}
	return limit, true
}
